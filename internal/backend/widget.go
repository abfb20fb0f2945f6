// ABOUTME: Public widget endpoints used by embedded chat widgets
// ABOUTME: Called without credentials; tenant and agent ids travel in the payload

package backend

import (
	"context"
	"net/http"
	"net/url"
)

// WidgetConfig returns an active agent's public name and niche.
func (c *Client) WidgetConfig(ctx context.Context, agentID, tenantID string) (*WidgetConfig, error) {
	var out WidgetConfig
	p := "/widget/config/" + url.PathEscape(agentID)
	if err := c.Do(ctx, Credentials{}, http.MethodGet, p, nil, &out, WithQuery("tenant_id", tenantID)); err != nil {
		return nil, err
	}
	return &out, nil
}

// WidgetChat relays a visitor message.
func (c *Client) WidgetChat(ctx context.Context, in WidgetChat) (string, error) {
	var out Reply
	if err := c.Do(ctx, Credentials{}, http.MethodPost, "/widget/chat", in, &out, WithTimeout(c.uploadTimeout)); err != nil {
		return "", err
	}
	return out.Reply, nil
}
