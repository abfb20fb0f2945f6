// ABOUTME: Store interfaces and data types for botfy-dashboard persistence
// ABOUTME: Defines Session and ActivityEntry and the interfaces the web layer depends on

package store

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidActivity is returned when an activity entry is missing required fields.
var ErrInvalidActivity = errors.New("invalid activity entry")

// Session is a signed-in dashboard browser. It stands in for the token and
// tenant id a browser-only client would keep in local storage.
type Session struct {
	ID        string
	Token     string // backend bearer token, sealed at rest
	TenantID  string
	Email     string
	Role      string
	Locale    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore persists dashboard sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSessionLocale(ctx context.Context, id, locale string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// ActivityStore records dashboard actions per tenant.
type ActivityStore interface {
	AppendActivity(ctx context.Context, e *ActivityEntry) error
	ListActivity(ctx context.Context, f ActivityFilter) ([]ActivityEntry, error)
}

// Store is everything the dashboard persists locally.
type Store interface {
	SessionStore
	ActivityStore
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
