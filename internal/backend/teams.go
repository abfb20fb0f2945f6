// ABOUTME: Team endpoints: list, create, update, delete
// ABOUTME: A team's leader agent is kept in settings.leader_agent_id

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

func teamPath(id string) string {
	return "/teams/" + url.PathEscape(id)
}

// ListTeams returns all teams of the tenant.
func (c *Client) ListTeams(ctx context.Context, creds Credentials) ([]Team, error) {
	var out []Team
	if err := c.Do(ctx, creds, http.MethodGet, "/teams", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTeam returns one team.
func (c *Client) GetTeam(ctx context.Context, creds Credentials, id string) (*Team, error) {
	var out Team
	if err := c.Do(ctx, creds, http.MethodGet, teamPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTeam creates a team.
func (c *Client) CreateTeam(ctx context.Context, creds Credentials, in TeamInput) (*Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	var out Team
	if err := c.Do(ctx, creds, http.MethodPost, "/teams", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTeam replaces a team's name, description and settings.
func (c *Client) UpdateTeam(ctx context.Context, creds Credentials, id string, in TeamInput) (*Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	var out Team
	if err := c.Do(ctx, creds, http.MethodPatch, teamPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTeam removes a team. Its agents stay, without a team.
func (c *Client) DeleteTeam(ctx context.Context, creds Credentials, id string) error {
	return c.Do(ctx, creds, http.MethodDelete, teamPath(id), nil, nil)
}
