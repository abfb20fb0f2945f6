// Package webadmin is the tenant dashboard served to the browser.
//
// # Overview
//
// Pages are rendered on the server with html/template and enhanced with
// htmx. Every page reads its data from the Botfy backend through
// backend.Client at render time; the only state kept locally is the
// session and the activity log in store.Store.
//
// # Sessions
//
// Signing in exchanges email and password for a backend bearer token. The
// token is sealed into a session row and the browser only receives the
// opaque session id in the botfy_session cookie. When the backend answers
// 401 the session is deleted and the browser is sent to /login (htmx
// requests get an HX-Redirect header instead).
//
// # Form guards
//
// All POSTs carry a CSRF token checked against the botfy_csrf cookie, as a
// csrf_token field or an X-CSRF-Token header. Full-page forms also carry a
// one-time form_nonce; a second post with the same nonce is dropped with a
// notice so double clicks never create two agents.
//
// # Localization
//
// Pages are translated through internal/i18n. The locale comes from the
// botfy_locale cookie, then the session, then Accept-Language, then the
// configured default.
//
// # Usage
//
//	admin := webadmin.New(store, client, auth.NewJWTReader(nil), webadmin.Config{})
//	defer admin.Close()
//	admin.RegisterRoutes(mux)
package webadmin
