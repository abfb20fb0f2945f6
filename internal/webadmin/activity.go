// ABOUTME: Local activity history of dashboard actions per tenant
// ABOUTME: Mutating handlers record entries; the activity page lists and filters them

package webadmin

import (
	"net/http"

	"github.com/botfy/botfy-dashboard/internal/auth"
	"github.com/botfy/botfy-dashboard/internal/store"
)

const activityPageLimit = 200

// record appends an activity entry for the signed-in user. Failures are
// logged and never fail the request.
func (a *Admin) record(r *http.Request, action store.Action, targetType, targetID string, detail map[string]any) {
	id := auth.FromContext(r.Context())
	if id == nil {
		return
	}
	a.recordFor(r, id.TenantID, id.Email, action, targetType, targetID, detail)
}

func (a *Admin) recordFor(r *http.Request, tenantID, actor string, action store.Action, targetType, targetID string, detail map[string]any) {
	if tenantID == "" {
		return
	}
	if actor == "" {
		actor = "unknown"
	}
	entry := &store.ActivityEntry{
		TenantID:   tenantID,
		Actor:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	}
	if err := a.store.AppendActivity(r.Context(), entry); err != nil {
		a.logger.Warn("failed to record activity", "action", action, "error", err)
	}
}

type activityPageData struct {
	Layout
	Entries      []store.ActivityEntry
	Actions      []store.Action
	ActionFilter string
	TargetFilter string
	TargetTypes  []string
}

var activityTargetTypes = []string{"session", "agent", "document", "team", "whatsapp", "telegram", "tenant", "billing"}

// handleActivityPage lists the tenant's recent dashboard actions
func (a *Admin) handleActivityPage(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	data := activityPageData{
		Layout:       a.layout(w, r, "activity.title", "activity"),
		Actions:      store.ValidActions,
		TargetTypes:  activityTargetTypes,
		ActionFilter: r.URL.Query().Get("action"),
		TargetFilter: r.URL.Query().Get("target"),
	}

	filter := store.ActivityFilter{TenantID: id.TenantID, Limit: activityPageLimit}
	if act := store.Action(data.ActionFilter); act.Valid() {
		filter.Action = &act
	} else {
		data.ActionFilter = ""
	}
	if data.TargetFilter != "" {
		filter.TargetType = &data.TargetFilter
	}

	entries, err := a.store.ListActivity(r.Context(), filter)
	if err != nil {
		a.logger.Error("failed to list activity", "error", err)
		data.Error = a.t(r, "errors.generic")
	}
	data.Entries = entries

	a.render(w, r, "activity.html", data)
}
