// ABOUTME: Plan comparison, billing overview, checkout and customer portal redirects
// ABOUTME: Payment itself happens on the provider's pages; the dashboard only redirects

package webadmin

import (
	"errors"
	"net/http"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/store"
)

var errNoRedirect = errors.New("backend returned no redirect url")

type planPageData struct {
	Layout
	Plans   []backend.Plan
	Current string
}

// handlePlanPage compares the plans and offers checkout for upgrades
func (a *Admin) handlePlanPage(w http.ResponseWriter, r *http.Request) {
	data := planPageData{
		Layout: a.layout(w, r, "plan.title", "plan"),
		Plans:  backend.Plans,
	}
	data.Current = data.Plan.Key
	a.render(w, r, "plan.html", data)
}

// handleBillingPage shows the current plan with this month's usage
func (a *Admin) handleBillingPage(w http.ResponseWriter, r *http.Request) {
	data, ok := a.overviewData(w, r, "billing.title", "billing")
	if !ok {
		return
	}
	if r.URL.Query().Get("checkout") == "success" {
		data.Flash = &Flash{Kind: flashSuccess, Message: a.t(r, "flash.checkout_success")}
	}
	a.render(w, r, "billing.html", data)
}

// handleCheckout starts a checkout session and sends the browser to it
func (a *Admin) handleCheckout(w http.ResponseWriter, r *http.Request) {
	plan := r.FormValue("plan")
	if plan != backend.PlanPro && plan != backend.PlanEnterprise {
		a.actionFailed(w, r, errRequiredFields, "/dashboard/plan")
		return
	}

	link, err := a.backend.CreateCheckout(r.Context(), credentials(r), plan,
		a.externalURL(r, "/dashboard/billing?checkout=success"),
		a.externalURL(r, "/dashboard/plan"))
	if err == nil && link == "" {
		err = errNoRedirect
	}
	if err != nil {
		a.actionFailed(w, r, err, "/dashboard/plan")
		return
	}

	a.record(r, store.ActionStartCheckout, "billing", "", map[string]any{"plan": plan})
	http.Redirect(w, r, link, http.StatusSeeOther)
}

// handlePortal sends the browser to the customer portal
func (a *Admin) handlePortal(w http.ResponseWriter, r *http.Request) {
	link, err := a.backend.BillingPortal(r.Context(), credentials(r), a.externalURL(r, "/dashboard/billing"))
	if err == nil && link == "" {
		err = errNoRedirect
	}
	if err != nil {
		a.actionFailed(w, r, err, "/dashboard/billing")
		return
	}
	http.Redirect(w, r, link, http.StatusSeeOther)
}
