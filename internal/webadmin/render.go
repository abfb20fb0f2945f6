// ABOUTME: Template rendering for the dashboard: page layout, partials and template helpers
// ABOUTME: Templates are parsed per render so each one binds the request's locale

package webadmin

import (
	"encoding/base64"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/botfy/botfy-dashboard/internal/assets"
	"github.com/botfy/botfy-dashboard/internal/auth"
	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/i18n"
)

const (
	localeCookieName = "botfy_locale"
	themeCookieName  = "botfy_theme"
	flashCookieName  = "botfy_flash"

	nonceFieldName = "form_nonce"
)

type flashKind string

const (
	flashError   flashKind = "error"
	flashSuccess flashKind = "success"
	flashInfo    flashKind = "info"
)

// Flash is a one-shot message carried across a redirect
type Flash struct {
	Kind    flashKind `json:"k"`
	Message string    `json:"m"`
}

// Layout is the data every full page needs: navigation state, the signed-in
// identity, preferences and form guards. Page data types embed it.
type Layout struct {
	Title     string
	Nav       string
	Locale    string
	Locales   []string
	Theme     string
	CSRFToken string
	Nonce     string
	Identity  *auth.Identity
	Tenant    *backend.Tenant
	Plan      backend.Plan
	Flash     *Flash
	Error     string
	Path      string
}

// TenantName is shown in the topbar
func (l Layout) TenantName() string {
	if l.Tenant != nil {
		return l.Tenant.DisplayName()
	}
	if l.Identity != nil {
		return l.Identity.Email
	}
	return ""
}

// layout assembles the shared page data. It consumes any pending flash.
func (a *Admin) layout(w http.ResponseWriter, r *http.Request, titleKey, nav string) Layout {
	r, csrf := a.ensureCSRFToken(w, r)
	locale := a.locale(r)

	l := Layout{
		Title:     i18n.T(locale, titleKey),
		Nav:       nav,
		Locale:    locale,
		Locales:   i18n.Locales,
		Theme:     theme(r),
		CSRFToken: csrf,
		Nonce:     uuid.NewString(),
		Identity:  auth.FromContext(r.Context()),
		Flash:     a.takeFlash(w, r),
		Path:      r.URL.Path,
	}

	if l.Identity != nil {
		l.Tenant = a.cachedTenant(r)
		planKey := ""
		if l.Tenant != nil {
			planKey = l.Tenant.Plan
		}
		l.Plan = backend.LookupPlan(planKey)
	}
	return l
}

// cachedTenant returns the session's tenant, fetching it at most once a minute
func (a *Admin) cachedTenant(r *http.Request) *backend.Tenant {
	id := auth.FromContext(r.Context())
	if id == nil {
		return nil
	}
	if t, ok := a.tenants.Get(id.SessionID); ok {
		return t
	}
	t, err := a.backend.Tenant(r.Context(), credentials(r))
	if err != nil {
		a.logger.Debug("tenant lookup for layout failed", "error", err)
		return nil
	}
	a.tenants.Set(id.SessionID, t)
	return t
}

// locale resolves the UI language: cookie, then session, then Accept-Language,
// then the configured default.
func (a *Admin) locale(r *http.Request) string {
	var fromCookie, fromSession string
	if c, err := r.Cookie(localeCookieName); err == nil {
		fromCookie = c.Value
	}
	if id := auth.FromContext(r.Context()); id != nil {
		fromSession = id.Locale
	}
	return i18n.Resolve(fromCookie, fromSession, i18n.FromAcceptLanguage(r.Header.Get("Accept-Language")), a.config.DefaultLocale)
}

// t translates key into the request's locale
func (a *Admin) t(r *http.Request, key string, args ...any) string {
	return i18n.T(a.locale(r), key, args...)
}

func theme(r *http.Request) string {
	if c, err := r.Cookie(themeCookieName); err == nil && c.Value == "dark" {
		return "dark"
	}
	return "light"
}

// flash queues a message for the next rendered page
func (a *Admin) flash(w http.ResponseWriter, r *http.Request, kind flashKind, message string) {
	data, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Admin) takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}

// consumeNonce marks a form nonce as used. It reports false for a blank or
// already-used nonce.
func (a *Admin) consumeNonce(nonce string) bool {
	if nonce == "" {
		return false
	}
	return !a.nonces.SeenOrMark(nonce, struct{}{})
}

// sameHostPath returns ref's path and query when ref points at host, else "".
func sameHostPath(ref, host string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Host != host || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func (a *Admin) funcs(r *http.Request) template.FuncMap {
	locale := a.locale(r)
	return template.FuncMap{
		"t": func(key string, args ...any) string {
			return i18n.T(locale, key, args...)
		},
		"asset":    assets.URL,
		"percent":  percentOf,
		"barClass": barClass,
		"limit": func(n int) string {
			if n <= 0 {
				return "∞"
			}
			return formatInt(n)
		},
		"num":  formatInt,
		"mb":   formatFloat,
		"date": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"actionLabel": func(action string) string {
			return i18n.T(locale, "activity.actions."+action)
		},
		"planName": func(key string) string {
			return backend.LookupPlan(key).Name
		},
		"localeName": func(loc string) string {
			return i18n.T(loc, "locale.name")
		},
	}
}

// render executes a page inside base.html
func (a *Admin) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	tmpl, err := template.New("base.html").Funcs(a.funcs(r)).ParseFS(templateFS, "templates/base.html", "templates/"+page)
	if err != nil {
		a.logger.Error("failed to parse template", "page", page, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render page", "page", page, "error", err)
	}
}

// renderPartial executes a fragment from templates/partials for htmx swaps
func (a *Admin) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	tmpl, err := template.New(name).Funcs(a.funcs(r)).ParseFS(templateFS, "templates/partials/"+name)
	if err != nil {
		a.logger.Error("failed to parse partial", "partial", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render partial", "partial", name, "error", err)
	}
}

// percentOf accepts the int and float counters of Usage
func percentOf(used, limit any) int {
	return backend.Percent(toFloat(used), toFloat(limit))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func barClass(p int) string {
	switch {
	case p >= 100:
		return "full"
	case p >= 80:
		return "high"
	}
	return ""
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
