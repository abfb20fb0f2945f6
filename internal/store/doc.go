// Package store persists the dashboard's own state in SQLite.
//
// The REST backend owns tenants, agents, documents and channels. The
// dashboard keeps only what a browser-only client would have kept on the
// user's machine, plus a local history of what was changed through it:
//
//   - Session: the backend bearer token, tenant id and locale behind an
//     HttpOnly cookie. Tokens are sealed with a Sealer before insert.
//   - ActivityEntry: one row per dashboard mutation, scoped by tenant.
//
// SQLiteStore implements both through the Store interface. The pure-Go
// modernc driver is the default; WithDriver(DriverCGO) switches to
// mattn/go-sqlite3 for builds with cgo enabled.
//
// # Time
//
// Timestamps are stored as UTC text. Session expiry uses RFC 3339 and
// activity rows use a fixed-width nanosecond layout so ORDER BY ts is
// chronological.
package store
