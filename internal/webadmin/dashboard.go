// ABOUTME: Overview and metrics pages built from the backend's metrics and usage counters
// ABOUTME: Both calls run concurrently and either may fail without hiding the other

package webadmin

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/botfy/botfy-dashboard/internal/backend"
)

type usageRow struct {
	Key     string
	Used    string
	Limit   string
	Percent int
}

type dashboardData struct {
	Layout
	Metrics         *backend.Metrics
	Usage           *backend.Usage
	Rows            []usageRow
	AgentsRemaining int
	ShowUpgrade     bool
}

// loadOverview fetches metrics and usage in parallel. It returns the first
// error after both calls finish.
func (a *Admin) loadOverview(r *http.Request) (*backend.Metrics, *backend.Usage, error) {
	creds := credentials(r)
	var metrics *backend.Metrics
	var usage *backend.Usage

	var g errgroup.Group
	g.Go(func() error {
		var err error
		metrics, err = a.backend.Metrics(r.Context(), creds)
		return err
	})
	g.Go(func() error {
		var err error
		usage, err = a.backend.Usage(r.Context(), creds)
		return err
	})
	err := g.Wait()
	return metrics, usage, err
}

func (a *Admin) overviewData(w http.ResponseWriter, r *http.Request, titleKey, nav string) (dashboardData, bool) {
	metrics, usage, err := a.loadOverview(r)
	if err != nil && a.sessionExpired(w, r, err) {
		return dashboardData{}, false
	}

	data := dashboardData{
		Layout:  a.layout(w, r, titleKey, nav),
		Metrics: metrics,
		Usage:   usage,
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}

	planKey := data.Plan.Key
	if metrics != nil && metrics.Plan != "" {
		planKey = metrics.Plan
	}
	plan := backend.LookupPlan(planKey)
	data.Plan = plan
	data.ShowUpgrade = plan.CanUpgrade()
	if metrics != nil {
		data.AgentsRemaining = plan.AgentsRemaining(metrics.AgentsCount)
	}
	if usage != nil {
		data.Rows = usageRows(usage)
	}
	return data, true
}

// usageRows lays out the usage counters for the percentage bars
func usageRows(u *backend.Usage) []usageRow {
	limit := func(n float64) string {
		if n <= 0 {
			return "∞"
		}
		return formatFloat(n)
	}
	intLimit := func(n int) string {
		if n <= 0 {
			return "∞"
		}
		return formatInt(n)
	}
	return []usageRow{
		{"messages", formatInt(u.MessagesUsed), intLimit(u.MessagesLimit), percentOf(u.MessagesUsed, u.MessagesLimit)},
		{"tokens", formatInt(u.TokensUsed), intLimit(u.TokensLimit), percentOf(u.TokensUsed, u.TokensLimit)},
		{"storage", formatFloat(u.StorageMB), limit(u.StorageLimitMB), percentOf(u.StorageMB, u.StorageLimitMB)},
		{"documents", formatInt(u.DocumentsCount), intLimit(u.DocumentsLimit), percentOf(u.DocumentsCount, u.DocumentsLimit)},
		{"agents", formatInt(u.AgentsCount), intLimit(u.AgentsLimit), percentOf(u.AgentsCount, u.AgentsLimit)},
	}
}

// handleDashboard renders the overview with quick actions
func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, ok := a.overviewData(w, r, "dashboard.title", "dashboard")
	if !ok {
		return
	}
	a.render(w, r, "dashboard.html", data)
}

// handleMetrics renders the detailed usage page
func (a *Admin) handleMetrics(w http.ResponseWriter, r *http.Request) {
	data, ok := a.overviewData(w, r, "metrics.title", "metrics")
	if !ok {
		return
	}
	a.render(w, r, "metrics.html", data)
}
