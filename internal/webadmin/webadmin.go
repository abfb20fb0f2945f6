// ABOUTME: Tenant dashboard web UI package for botfy-dashboard
// ABOUTME: Provides sessions over backend tokens, CSRF protection and route registration

package webadmin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/botfy/botfy-dashboard/internal/auth"
	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/store"
	"github.com/botfy/botfy-dashboard/internal/ttlcache"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "botfy_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "botfy_csrf"

	// DefaultSessionDuration caps sessions whose token has no exp claim
	DefaultSessionDuration = 7 * 24 * time.Hour

	// maxUploadSize bounds multipart bodies (documents, Telegram token files)
	maxUploadSize = 50 << 20

	tenantCacheTTL = time.Minute
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// Config holds dashboard UI configuration
type Config struct {
	// BaseURL is the external URL of the dashboard, used for billing return
	// URLs and widget snippets. Derived from the request when empty.
	BaseURL string

	// WidgetAPIURL is written as data-api-url into widget snippets.
	WidgetAPIURL string

	DefaultLocale string
	SessionMaxAge time.Duration
	NonceTTL      time.Duration
}

// Admin handles dashboard routes and sessions
type Admin struct {
	store   store.Store
	backend *backend.Client
	claims  auth.ClaimsReader
	config  Config
	logger  *slog.Logger

	nonces  *ttlcache.Cache[struct{}]
	tenants *ttlcache.Cache[*backend.Tenant]
}

// New creates a new Admin handler
func New(st store.Store, client *backend.Client, claims auth.ClaimsReader, cfg Config) *Admin {
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = DefaultSessionDuration
	}
	if cfg.NonceTTL <= 0 {
		cfg.NonceTTL = 10 * time.Minute
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "pt"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Admin{
		store:   st,
		backend: client,
		claims:  claims,
		config:  cfg,
		logger:  slog.Default().With("component", "webadmin"),
		nonces:  ttlcache.New[struct{}](cfg.NonceTTL, 100000),
		tenants: ttlcache.New[*backend.Tenant](tenantCacheTTL, 10000),
	}
}

// Close cleans up admin resources
func (a *Admin) Close() {
	a.nonces.Close()
	a.tenants.Close()
}

// RegisterRoutes registers all dashboard routes on the given mux
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no session required)
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /login", a.handleLoginPage)
	mux.HandleFunc("POST /login", a.handleLogin)
	mux.HandleFunc("GET /register", a.handleRegisterPage)
	mux.HandleFunc("POST /register", a.handleRegister)
	mux.HandleFunc("GET /forgot-password", a.handleForgotPasswordPage)
	mux.HandleFunc("POST /forgot-password", a.handleForgotPassword)
	mux.HandleFunc("GET /reset-password", a.handleResetPasswordPage)
	mux.HandleFunc("POST /reset-password", a.handleResetPassword)
	mux.HandleFunc("GET /verify-email", a.handleVerifyEmail)
	mux.HandleFunc("POST /prefs", a.handlePrefs)
	mux.HandleFunc("POST /logout", a.handleLogout)

	// Overview
	mux.HandleFunc("GET /dashboard", a.requireSession(a.handleDashboard))
	mux.HandleFunc("GET /dashboard/metrics", a.requireSession(a.handleMetrics))

	// Agents
	mux.HandleFunc("GET /dashboard/agents", a.requireSession(a.handleAgentsList))
	mux.HandleFunc("GET /dashboard/agents/new", a.requireSession(a.handleAgentNewPage))
	mux.HandleFunc("POST /dashboard/agents/new", a.requireSession(a.mutating(a.handleAgentCreate)))
	mux.HandleFunc("POST /dashboard/agents/generate-prompt", a.requireSession(a.htmxAction(a.handleGeneratePrompt)))
	mux.HandleFunc("GET /dashboard/agents/{id}", a.requireSession(a.handleAgentDetail))
	mux.HandleFunc("POST /dashboard/agents/{id}", a.requireSession(a.mutating(a.handleAgentUpdate)))
	mux.HandleFunc("POST /dashboard/agents/{id}/toggle", a.requireSession(a.mutating(a.handleAgentToggle)))
	mux.HandleFunc("POST /dashboard/agents/{id}/delete", a.requireSession(a.mutating(a.handleAgentDelete)))
	mux.HandleFunc("POST /dashboard/agents/{id}/team", a.requireSession(a.mutating(a.handleAgentTeam)))
	mux.HandleFunc("POST /dashboard/agents/{id}/chat", a.requireSession(a.htmxAction(a.handleAgentChat)))

	// Knowledge base
	mux.HandleFunc("GET /dashboard/documents", a.requireSession(a.handleDocumentsPage))
	mux.HandleFunc("POST /dashboard/documents/upload", a.requireSession(a.mutating(a.handleDocumentUpload)))
	mux.HandleFunc("POST /dashboard/documents/{id}/rename", a.requireSession(a.mutating(a.handleDocumentRename)))
	mux.HandleFunc("POST /dashboard/documents/{id}/delete", a.requireSession(a.mutating(a.handleDocumentDelete)))
	mux.HandleFunc("GET /dashboard/training", a.requireSession(a.handleTrainingPage))

	// Teams
	mux.HandleFunc("GET /dashboard/team", a.requireSession(a.handleTeamsPage))
	mux.HandleFunc("POST /dashboard/team", a.requireSession(a.mutating(a.handleTeamCreate)))
	mux.HandleFunc("POST /dashboard/team/{id}", a.requireSession(a.mutating(a.handleTeamUpdate)))
	mux.HandleFunc("POST /dashboard/team/{id}/delete", a.requireSession(a.mutating(a.handleTeamDelete)))

	// Channels
	mux.HandleFunc("GET /dashboard/whatsapp", a.requireSession(a.handleWhatsAppPage))
	mux.HandleFunc("POST /dashboard/whatsapp/meta", a.requireSession(a.mutating(a.handleWhatsAppMeta)))
	mux.HandleFunc("POST /dashboard/whatsapp/evolution", a.requireSession(a.mutating(a.handleWhatsAppEvolution)))
	mux.HandleFunc("POST /dashboard/whatsapp/evolution/qr", a.requireSession(a.htmxAction(a.handleWhatsAppQR)))
	mux.HandleFunc("POST /dashboard/whatsapp/agent", a.requireSession(a.mutating(a.handleWhatsAppAgent)))
	mux.HandleFunc("POST /dashboard/whatsapp/disconnect", a.requireSession(a.mutating(a.handleWhatsAppDisconnect)))
	mux.HandleFunc("GET /dashboard/telegram", a.requireSession(a.handleTelegramPage))
	mux.HandleFunc("POST /dashboard/telegram/connect", a.requireSession(a.mutating(a.handleTelegramConnect)))
	mux.HandleFunc("POST /dashboard/telegram/server-token", a.requireSession(a.mutating(a.handleTelegramServerToken)))
	mux.HandleFunc("POST /dashboard/telegram/file", a.requireSession(a.mutating(a.handleTelegramFile)))
	mux.HandleFunc("POST /dashboard/telegram/check", a.requireSession(a.htmxAction(a.handleTelegramCheck)))
	mux.HandleFunc("POST /dashboard/telegram/agent", a.requireSession(a.mutating(a.handleTelegramAgent)))
	mux.HandleFunc("POST /dashboard/telegram/disconnect", a.requireSession(a.mutating(a.handleTelegramDisconnect)))

	// Integrations, billing, settings, activity
	mux.HandleFunc("GET /dashboard/integrations", a.requireSession(a.handleIntegrationsPage))
	mux.HandleFunc("GET /dashboard/plan", a.requireSession(a.handlePlanPage))
	mux.HandleFunc("GET /dashboard/billing", a.requireSession(a.handleBillingPage))
	mux.HandleFunc("POST /dashboard/billing/checkout", a.requireSession(a.mutating(a.handleCheckout)))
	mux.HandleFunc("POST /dashboard/billing/portal", a.requireSession(a.mutating(a.handlePortal)))
	mux.HandleFunc("GET /dashboard/settings", a.requireSession(a.handleSettingsPage))
	mux.HandleFunc("POST /dashboard/settings", a.requireSession(a.mutating(a.handleSettingsUpdate)))
	mux.HandleFunc("GET /dashboard/activity", a.requireSession(a.handleActivityPage))

	a.logger.Info("dashboard routes registered")
}

func (a *Admin) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, err := a.sessionFromRequest(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// requireSession wraps a handler to require a signed-in session
func (a *Admin) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := a.sessionFromRequest(r)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) && !errors.Is(err, store.ErrSessionNotFound) {
				a.logger.Error("failed to load session", "error", err)
			}
			a.redirectToLogin(w, r)
			return
		}

		id := &auth.Identity{
			SessionID: session.ID,
			Token:     session.Token,
			TenantID:  session.TenantID,
			Email:     session.Email,
			Role:      session.Role,
			Locale:    session.Locale,
			ExpiresAt: session.ExpiresAt,
		}
		r = r.WithContext(auth.WithIdentity(r.Context(), id))
		r, _ = a.ensureCSRFToken(w, r)
		next(w, r)
	}
}

// sessionFromRequest loads the session named by the session cookie
func (a *Admin) sessionFromRequest(r *http.Request) (*store.Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, err
	}
	return a.store.GetSession(r.Context(), cookie.Value)
}

// redirectToLogin sends the browser to /login, using HX-Redirect for htmx requests
func (a *Admin) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// credentials returns the backend credentials of the signed-in user
func credentials(r *http.Request) backend.Credentials {
	id := auth.FromContext(r.Context())
	if id == nil {
		return backend.Credentials{}
	}
	return backend.Credentials{Token: id.Token, TenantID: id.TenantID}
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	if token := getCSRFToken(r); token != "" {
		return r, token
	}

	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form or header against the cookie
func (a *Admin) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// parseForm parses urlencoded or multipart bodies, bounding their size
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(8 << 20)
	}
	return r.ParseForm()
}

// mutating guards a form post: CSRF must match and the one-time form nonce
// must not have been used. A replayed nonce is dropped with a notice.
func (a *Admin) mutating(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(w, r); err != nil {
			a.flash(w, r, flashError, a.t(r, "errors.invalid_form"))
			a.redirectBack(w, r, "/dashboard")
			return
		}
		if !a.validateCSRF(r) {
			a.logger.Warn("rejected form with invalid CSRF token", "path", r.URL.Path)
			a.flash(w, r, flashError, a.t(r, "errors.invalid_request"))
			a.redirectBack(w, r, "/dashboard")
			return
		}
		if !a.consumeNonce(r.FormValue(nonceFieldName)) {
			a.logger.Info("ignored duplicate form submission", "path", r.URL.Path)
			a.flash(w, r, flashInfo, a.t(r, "flash.duplicate_submit"))
			a.redirectBack(w, r, "/dashboard")
			return
		}
		next(w, r)
	}
}

// htmxAction guards an htmx post: only CSRF is checked since these
// requests render a fragment and are safe to repeat.
func (a *Admin) htmxAction(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(w, r); err != nil || !a.validateCSRF(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			a.renderPartial(w, r, "error_inline.html", a.t(r, "errors.invalid_request"))
			return
		}
		next(w, r)
	}
}

// createSession stores the backend token and sets the session cookie.
// The session lives until the token expires, capped at SessionMaxAge.
func (a *Admin) createSession(w http.ResponseWriter, r *http.Request, token string, claims *auth.Claims, locale string) (*store.Session, error) {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expires := now.Add(a.config.SessionMaxAge)
	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(expires) {
		expires = claims.ExpiresAt
	}

	session := &store.Session{
		ID:        sessionID,
		Token:     token,
		TenantID:  claims.TenantID,
		Email:     claims.Email,
		Role:      claims.Role,
		Locale:    locale,
		CreatedAt: now,
		ExpiresAt: expires,
	}

	if err := a.store.CreateSession(r.Context(), session); err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return session, nil
}

// endSession deletes the session row and clears the session and CSRF cookies
func (a *Admin) endSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := a.store.DeleteSession(r.Context(), cookie.Value); err != nil {
			a.logger.Warn("failed to delete session", "error", err)
		}
		a.tenants.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// externalURL joins path onto the dashboard's external base URL
func (a *Admin) externalURL(r *http.Request, path string) string {
	base := a.config.BaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + path
}

// redirectBack returns the browser to the page the form was posted from,
// or to fallback when the referrer is missing or foreign.
func (a *Admin) redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ref := r.Referer(); ref != "" {
		if p := sameHostPath(ref, r.Host); p != "" {
			target = p
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
