// ABOUTME: Maps backend and validation errors to localized messages for the UI
// ABOUTME: A backend 401 ends the session and sends the browser to the login page

package webadmin

import (
	"errors"
	"net/http"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/i18n"
	"github.com/botfy/botfy-dashboard/internal/widget"
)

// validationKeys maps client-side validation errors to catalog keys.
var validationKeys = []struct {
	err error
	key string
}{
	{backend.ErrAgentNameRequired, "errors.agent_name_required"},
	{backend.ErrInvalidBotToken, "errors.bot_token_length"},
	{backend.ErrMissingFields, "errors.missing_fields"},
	{backend.ErrNoFile, "errors.no_file"},
	{backend.ErrDocumentNameRequired, "errors.document_name_required"},
	{widget.ErrInvalidColor, "errors.invalid_color"},
	{widget.ErrInvalidPosition, "errors.invalid_position"},
	{widget.ErrMissingIDs, "errors.widget_ids"},
	{errPasswordTooShort, "errors.password_too_short"},
	{errPasswordMismatch, "errors.password_mismatch"},
	{errRequiredFields, "errors.required_fields"},
	{errForbidden, "errors.forbidden"},
}

var (
	errPasswordTooShort = errors.New("password too short")
	errPasswordMismatch = errors.New("passwords do not match")
	errRequiredFields   = errors.New("required fields missing")
	errForbidden        = errors.New("forbidden")
)

// userMessage turns err into text safe to show on the page. Backend errors
// carry their own message; known validation errors are translated; anything
// else becomes a generic notice.
func userMessage(locale string, err error) string {
	for _, v := range validationKeys {
		if errors.Is(err, v.err) {
			return i18n.T(locale, v.key)
		}
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Message
	}
	return i18n.T(locale, "errors.generic")
}

// errorMessage is userMessage in the request's locale
func (a *Admin) errorMessage(r *http.Request, err error) string {
	return userMessage(a.locale(r), err)
}

// sessionExpired handles a backend 401: the session is deleted, the cookie
// cleared and the browser redirected to /login. It reports whether it wrote
// the response.
func (a *Admin) sessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !backend.IsUnauthorized(err) {
		return false
	}
	a.logger.Info("backend rejected session token, signing out", "path", r.URL.Path)
	a.endSession(w, r)
	a.flash(w, r, flashInfo, a.t(r, "flash.session_expired"))
	a.redirectToLogin(w, r)
	return true
}

// actionFailed reports a failed form action: 401 signs out, anything else is
// flashed and the browser is sent back.
func (a *Admin) actionFailed(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if a.sessionExpired(w, r, err) {
		return
	}
	var be *backend.Error
	if errors.As(err, &be) && be.Status >= 500 || errors.Is(err, backend.ErrUnreachable) || errors.Is(err, backend.ErrTimeout) {
		a.logger.Warn("backend action failed", "path", r.URL.Path, "error", err)
	}
	a.flash(w, r, flashError, a.errorMessage(r, err))
	a.redirectBack(w, r, fallback)
}

// succeeded flashes a success message and redirects to target
func (a *Admin) succeeded(w http.ResponseWriter, r *http.Request, key, target string) {
	a.flash(w, r, flashSuccess, a.t(r, key))
	http.Redirect(w, r, target, http.StatusSeeOther)
}
