// ABOUTME: Settings page: tenant display name and default locale, plus personal preferences
// ABOUTME: Only company owners may change tenant settings

package webadmin

import (
	"net/http"
	"strings"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/i18n"
	"github.com/botfy/botfy-dashboard/internal/store"
)

type settingsPageData struct {
	Layout
	DisplayName   string
	DefaultLocale string
	CanEdit       bool
}

// handleSettingsPage renders the tenant and preference forms
func (a *Admin) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	tenant, err := a.backend.Tenant(r.Context(), credentials(r))
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}

	data := settingsPageData{
		Layout:  a.layout(w, r, "settings.title", "settings"),
		CanEdit: identity(r).IsOwner(),
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}
	if tenant != nil {
		data.Tenant = tenant
		data.DisplayName = tenant.DisplayName()
		data.DefaultLocale = tenant.Setting(backend.SettingDefaultLocale)
	}
	if data.DefaultLocale == "" {
		data.DefaultLocale = a.config.DefaultLocale
	}

	a.render(w, r, "settings.html", data)
}

// handleSettingsUpdate saves the tenant's display name and default locale
func (a *Admin) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if !id.IsOwner() {
		a.actionFailed(w, r, errForbidden, "/dashboard/settings")
		return
	}

	name := strings.TrimSpace(r.FormValue("display_name"))
	if name == "" {
		a.actionFailed(w, r, errRequiredFields, "/dashboard/settings")
		return
	}
	settings := map[string]any{backend.SettingDisplayName: name}
	if loc := i18n.Normalize(r.FormValue("default_locale")); loc != "" {
		settings[backend.SettingDefaultLocale] = loc
	}

	if err := a.backend.UpdateTenantSettings(r.Context(), credentials(r), settings); err != nil {
		a.actionFailed(w, r, err, "/dashboard/settings")
		return
	}

	a.tenants.Delete(id.SessionID)
	a.record(r, store.ActionUpdateSettings, "tenant", id.TenantID, settings)
	a.succeeded(w, r, "flash.settings_saved", "/dashboard/settings")
}
