// ABOUTME: WhatsApp channel endpoints for Meta Cloud API and Evolution API connections
// ABOUTME: Connect payloads are validated before any call is made

package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrMissingFields is returned when a connect form is incomplete.
var ErrMissingFields = errors.New("required fields missing")

// WhatsAppStatus returns the tenant's WhatsApp connection.
func (c *Client) WhatsAppStatus(ctx context.Context, creds Credentials) (*WhatsAppStatus, error) {
	var out WhatsAppStatus
	if err := c.Do(ctx, creds, http.MethodGet, "/whatsapp/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvolutionAvailable reports whether the platform offers QR pairing.
func (c *Client) EvolutionAvailable(ctx context.Context, creds Credentials) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	if err := c.Do(ctx, creds, http.MethodGet, "/whatsapp/evolution-available", nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// ConnectMeta stores Meta Cloud API credentials.
func (c *Client) ConnectMeta(ctx context.Context, creds Credentials, in MetaConnect) error {
	in.PhoneNumberID = strings.TrimSpace(in.PhoneNumberID)
	in.AccessToken = strings.TrimSpace(in.AccessToken)
	if in.PhoneNumberID == "" || in.AccessToken == "" {
		return ErrMissingFields
	}
	return c.Do(ctx, creds, http.MethodPost, "/whatsapp/connect", in, nil)
}

// ConnectEvolution stores a self-hosted Evolution API instance.
func (c *Client) ConnectEvolution(ctx context.Context, creds Credentials, in EvolutionConnect) error {
	in.BaseURL = strings.TrimRight(strings.TrimSpace(in.BaseURL), "/")
	in.APIKey = strings.TrimSpace(in.APIKey)
	in.InstanceName = strings.TrimSpace(in.InstanceName)
	if in.BaseURL == "" || in.APIKey == "" || in.InstanceName == "" {
		return ErrMissingFields
	}
	return c.Do(ctx, creds, http.MethodPost, "/whatsapp/connect-evolution", in, nil)
}

// RequestEvolutionQR asks the platform's Evolution instance for a pairing QR.
func (c *Client) RequestEvolutionQR(ctx context.Context, creds Credentials) (*EvolutionQR, error) {
	var out EvolutionQR
	if err := c.Do(ctx, creds, http.MethodPost, "/whatsapp/evolution-request-qr", nil, &out, WithTimeout(c.uploadTimeout)); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetWhatsAppAgent binds the agent that answers WhatsApp. Empty unbinds.
func (c *Client) SetWhatsAppAgent(ctx context.Context, creds Credentials, agentID string) error {
	return c.Do(ctx, creds, http.MethodPatch, "/whatsapp/agent", agentBinding(agentID), nil)
}

// DisconnectWhatsApp removes the WhatsApp connection.
func (c *Client) DisconnectWhatsApp(ctx context.Context, creds Credentials) error {
	return c.Do(ctx, creds, http.MethodDelete, "/whatsapp/disconnect", nil, nil)
}

func agentBinding(agentID string) map[string]any {
	if agentID == "" {
		return map[string]any{"agent_id": nil}
	}
	return map[string]any{"agent_id": agentID}
}
