// ABOUTME: Sign-in, registration, password reset and email verification pages
// ABOUTME: Successful sign-in stores the backend token in a new dashboard session

package webadmin

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/botfy/botfy-dashboard/internal/auth"
	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/i18n"
	"github.com/botfy/botfy-dashboard/internal/store"
)

const minPasswordLength = 8

type authPageData struct {
	Layout
	Email       string
	CompanyName string
	Plan        string
	Plans       []backend.Plan
	Token       string
	Sent        bool
	Verified    bool
}

func (a *Admin) renderAuthPage(w http.ResponseWriter, r *http.Request, page, titleKey string, data authPageData) {
	errMsg := data.Error
	data.Layout = a.layout(w, r, titleKey, "")
	data.Error = errMsg
	data.Plans = backend.Plans
	a.render(w, r, page, data)
}

// handleLoginPage renders the login page
func (a *Admin) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := a.sessionFromRequest(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	a.renderAuthPage(w, r, "login.html", "auth.login_title", authPageData{})
}

// handleLogin processes login form submission
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderAuthPage(w, r, "login.html", "auth.login_title", authPageData{Layout: Layout{Error: a.t(r, "errors.invalid_form")}})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	data := authPageData{Email: email}

	if !a.validateCSRF(r) {
		data.Error = a.t(r, "errors.invalid_request")
		a.renderAuthPage(w, r, "login.html", "auth.login_title", data)
		return
	}

	password := r.FormValue("password")
	if email == "" || password == "" {
		data.Error = a.t(r, "errors.email_password_required")
		a.renderAuthPage(w, r, "login.html", "auth.login_title", data)
		return
	}

	pair, err := a.backend.Login(r.Context(), email, password)
	if err != nil {
		data.Error = a.errorMessage(r, err)
		a.renderAuthPage(w, r, "login.html", "auth.login_title", data)
		return
	}

	session, err := a.startSession(w, r, pair.AccessToken, email)
	if err != nil {
		a.logger.Error("failed to create session", "error", err)
		data.Error = a.t(r, "errors.generic")
		a.renderAuthPage(w, r, "login.html", "auth.login_title", data)
		return
	}

	a.recordFor(r, session.TenantID, session.Email, store.ActionLogin, "session", "", nil)
	a.logger.Info("dashboard login successful", "tenant_id", session.TenantID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// startSession reads the token's claims, fills in the tenant from /auth/me
// when the token has none, and creates the session.
func (a *Admin) startSession(w http.ResponseWriter, r *http.Request, token, email string) (*store.Session, error) {
	claims, err := a.claims.Read(token)
	if err != nil {
		return nil, fmt.Errorf("reading token claims: %w", err)
	}

	if claims.TenantID == "" || claims.Email == "" {
		me, err := a.backend.Me(r.Context(), backend.Credentials{Token: token})
		if err != nil {
			return nil, fmt.Errorf("resolving tenant: %w", err)
		}
		if claims.TenantID == "" {
			claims.TenantID = me.TenantID
		}
		if claims.Email == "" {
			claims.Email = me.Email
		}
	}
	if claims.Email == "" {
		claims.Email = email
	}

	return a.createSession(w, r, token, claims, a.locale(r))
}

// handleRegisterPage renders the sign-up page
func (a *Admin) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	plan := r.URL.Query().Get("plan")
	if plan == "" {
		plan = backend.PlanFree
	}
	a.renderAuthPage(w, r, "register.html", "auth.register_title", authPageData{Plan: plan})
}

// handleRegister creates the company account and signs the user in
func (a *Admin) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderAuthPage(w, r, "register.html", "auth.register_title", authPageData{Layout: Layout{Error: a.t(r, "errors.invalid_form")}})
		return
	}

	reg := backend.Registration{
		CompanyName: strings.TrimSpace(r.FormValue("company_name")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Password:    r.FormValue("password"),
		Plan:        r.FormValue("plan"),
	}
	data := authPageData{Email: reg.Email, CompanyName: reg.CompanyName, Plan: reg.Plan}

	if !a.validateCSRF(r) {
		data.Error = a.t(r, "errors.invalid_request")
		a.renderAuthPage(w, r, "register.html", "auth.register_title", data)
		return
	}
	if err := validateRegistration(reg, r.FormValue("password_confirm")); err != nil {
		data.Error = a.errorMessage(r, err)
		a.renderAuthPage(w, r, "register.html", "auth.register_title", data)
		return
	}

	pair, err := a.backend.Register(r.Context(), reg)
	if err != nil {
		data.Error = a.errorMessage(r, err)
		a.renderAuthPage(w, r, "register.html", "auth.register_title", data)
		return
	}

	session, err := a.startSession(w, r, pair.AccessToken, reg.Email)
	if err != nil {
		a.logger.Error("failed to create session after registration", "error", err)
		a.flash(w, r, flashSuccess, a.t(r, "flash.registered_login"))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	a.recordFor(r, session.TenantID, session.Email, store.ActionLogin, "session", "", map[string]any{"registered": true})
	a.logger.Info("tenant registered", "tenant_id", session.TenantID)
	a.succeeded(w, r, "flash.welcome", "/dashboard")
}

func validateRegistration(reg backend.Registration, confirm string) error {
	if reg.CompanyName == "" || reg.Email == "" || reg.Password == "" {
		return errRequiredFields
	}
	if len(reg.Password) < minPasswordLength {
		return errPasswordTooShort
	}
	if confirm != "" && confirm != reg.Password {
		return errPasswordMismatch
	}
	return nil
}

// handleForgotPasswordPage renders the reset request form
func (a *Admin) handleForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	a.renderAuthPage(w, r, "forgot_password.html", "auth.forgot_title", authPageData{})
}

// handleForgotPassword asks the backend to mail a reset link. The page
// reads the same whether or not the address exists.
func (a *Admin) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !a.validateCSRF(r) {
		a.renderAuthPage(w, r, "forgot_password.html", "auth.forgot_title", authPageData{Layout: Layout{Error: a.t(r, "errors.invalid_request")}})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	data := authPageData{Email: email}
	if email == "" {
		data.Error = a.t(r, "errors.required_fields")
		a.renderAuthPage(w, r, "forgot_password.html", "auth.forgot_title", data)
		return
	}

	if err := a.backend.RequestPasswordReset(r.Context(), email); err != nil {
		if backend.StatusCode(err) == 0 || backend.StatusCode(err) >= 500 {
			data.Error = a.errorMessage(r, err)
			a.renderAuthPage(w, r, "forgot_password.html", "auth.forgot_title", data)
			return
		}
		a.logger.Debug("password reset request rejected", "error", err)
	}

	data.Sent = true
	a.renderAuthPage(w, r, "forgot_password.html", "auth.forgot_title", data)
}

// handleResetPasswordPage renders the new password form for a reset token
func (a *Admin) handleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	data := authPageData{Token: r.URL.Query().Get("token")}
	if data.Token == "" {
		data.Error = a.t(r, "errors.reset_token_missing")
	}
	a.renderAuthPage(w, r, "reset_password.html", "auth.reset_title", data)
}

// handleResetPassword applies the new password
func (a *Admin) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !a.validateCSRF(r) {
		a.renderAuthPage(w, r, "reset_password.html", "auth.reset_title", authPageData{Layout: Layout{Error: a.t(r, "errors.invalid_request")}})
		return
	}

	data := authPageData{Token: r.FormValue("token")}
	password := r.FormValue("password")

	var err error
	switch {
	case data.Token == "":
		err = errRequiredFields
	case len(password) < minPasswordLength:
		err = errPasswordTooShort
	case password != r.FormValue("password_confirm"):
		err = errPasswordMismatch
	default:
		err = a.backend.ResetPassword(r.Context(), data.Token, password)
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
		a.renderAuthPage(w, r, "reset_password.html", "auth.reset_title", data)
		return
	}

	a.succeeded(w, r, "flash.password_reset", "/login")
}

// handleVerifyEmail confirms an email verification token
func (a *Admin) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	data := authPageData{}
	token := r.URL.Query().Get("token")
	if token == "" {
		data.Error = a.t(r, "errors.verify_token_missing")
	} else if err := a.backend.VerifyEmail(r.Context(), token); err != nil {
		data.Error = a.errorMessage(r, err)
	} else {
		data.Verified = true
	}
	a.renderAuthPage(w, r, "verify_email.html", "auth.verify_title", data)
}

// handleLogout logs out the current user
func (a *Admin) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Validate CSRF - but don't block logout if invalid
	if err := r.ParseForm(); err == nil && !a.validateCSRF(r) {
		a.logger.Warn("logout request with invalid CSRF token")
	}

	if session, err := a.sessionFromRequest(r); err == nil {
		creds := backend.Credentials{Token: session.Token, TenantID: session.TenantID}
		if err := a.backend.Logout(r.Context(), creds); err != nil {
			a.logger.Debug("backend logout failed", "error", err)
		}
		a.recordFor(r, session.TenantID, session.Email, store.ActionLogout, "session", "", nil)
	}

	a.endSession(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handlePrefs stores the locale and theme preferences
func (a *Admin) handlePrefs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !a.validateCSRF(r) {
		http.Error(w, "invalid request", http.StatusForbidden)
		return
	}

	const year = 365 * 24 * time.Hour
	if loc := i18n.Normalize(r.FormValue("locale")); loc != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     localeCookieName,
			Value:    loc,
			Path:     "/",
			MaxAge:   int(year.Seconds()),
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		if session, err := a.sessionFromRequest(r); err == nil {
			if err := a.store.UpdateSessionLocale(r.Context(), session.ID, loc); err != nil {
				a.logger.Warn("failed to store session locale", "error", err)
			}
		}
	}

	if th := r.FormValue("theme"); th == "light" || th == "dark" {
		http.SetCookie(w, &http.Cookie{
			Name:     themeCookieName,
			Value:    th,
			Path:     "/",
			MaxAge:   int(year.Seconds()),
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}

	a.redirectBack(w, r, "/dashboard")
}

// identity is shorthand for the signed-in user in protected handlers
func identity(r *http.Request) *auth.Identity {
	return auth.MustFromContext(r.Context())
}
