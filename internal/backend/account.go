// ABOUTME: Tenant, metrics, usage and billing endpoints
// ABOUTME: Tenant settings are merged server-side, so callers send only changed keys

package backend

import (
	"context"
	"net/http"
)

// Tenant returns the caller's tenant.
func (c *Client) Tenant(ctx context.Context, creds Credentials) (*Tenant, error) {
	var out Tenant
	if err := c.Do(ctx, creds, http.MethodGet, "/tenants/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTenantSettings merges settings into the tenant's settings.
func (c *Client) UpdateTenantSettings(ctx context.Context, creds Credentials, settings map[string]any) error {
	body := map[string]any{"settings": settings}
	return c.Do(ctx, creds, http.MethodPatch, "/tenants/me", body, nil)
}

// Metrics returns the tenant's headline counters.
func (c *Client) Metrics(ctx context.Context, creds Credentials) (*Metrics, error) {
	var out Metrics
	if err := c.Do(ctx, creds, http.MethodGet, "/metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Usage returns the current month's consumption.
func (c *Client) Usage(ctx context.Context, creds Credentials) (*Usage, error) {
	var out Usage
	if err := c.Do(ctx, creds, http.MethodGet, "/usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckout starts a checkout for plan and returns the URL to redirect to.
func (c *Client) CreateCheckout(ctx context.Context, creds Credentials, plan, successURL, cancelURL string) (string, error) {
	var out RedirectURL
	body := map[string]string{
		"plan":        plan,
		"success_url": successURL,
		"cancel_url":  cancelURL,
	}
	if err := c.Do(ctx, creds, http.MethodPost, "/billing/create-checkout-session", body, &out); err != nil {
		return "", err
	}
	return out.Link(), nil
}

// BillingPortal returns the customer portal URL.
func (c *Client) BillingPortal(ctx context.Context, creds Credentials, returnURL string) (string, error) {
	var out RedirectURL
	if err := c.Do(ctx, creds, http.MethodPost, "/billing/portal", nil, &out, WithQuery("return_url", returnURL)); err != nil {
		return "", err
	}
	return out.Link(), nil
}
