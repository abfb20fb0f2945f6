// ABOUTME: Agent endpoints: CRUD, team assignment, AI prompt generation and test chat
// ABOUTME: Chat uses the long upload timeout since replies come from an LLM

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrAgentNameRequired is returned before any call when the name is blank.
var ErrAgentNameRequired = fmt.Errorf("agent name is required")

func agentPath(id string) string {
	return "/agents/" + url.PathEscape(id)
}

// ListAgents returns all agents of the tenant.
func (c *Client) ListAgents(ctx context.Context, creds Credentials) ([]Agent, error) {
	var out []Agent
	if err := c.Do(ctx, creds, http.MethodGet, "/agents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAgent returns one agent.
func (c *Client) GetAgent(ctx context.Context, creds Credentials, id string) (*Agent, error) {
	var out Agent
	if err := c.Do(ctx, creds, http.MethodGet, agentPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAgent creates an agent. The name is required.
func (c *Client) CreateAgent(ctx context.Context, creds Credentials, in AgentCreate) (*Agent, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrAgentNameRequired
	}
	var out Agent
	if err := c.Do(ctx, creds, http.MethodPost, "/agents", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAgent patches an agent.
func (c *Client) UpdateAgent(ctx context.Context, creds Credentials, id string, in AgentUpdate) (*Agent, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrAgentNameRequired
		}
		in.Name = &name
	}
	var out Agent
	if err := c.Do(ctx, creds, http.MethodPatch, agentPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetAgentActive flips an agent on or off.
func (c *Client) SetAgentActive(ctx context.Context, creds Credentials, id string, active bool) (*Agent, error) {
	return c.UpdateAgent(ctx, creds, id, AgentUpdate{Active: &active})
}

// SetAgentTeam moves an agent into a team. An empty teamID removes it from its team.
func (c *Client) SetAgentTeam(ctx context.Context, creds Credentials, id, teamID string) error {
	body := map[string]any{"team_id": nil}
	if teamID != "" {
		body["team_id"] = teamID
	}
	return c.Do(ctx, creds, http.MethodPatch, agentPath(id), body, nil)
}

// EnsureAgentNamespace assigns the reserved namespace to an agent that has
// none and returns the namespace to upload into.
func (c *Client) EnsureAgentNamespace(ctx context.Context, creds Credentials, agent *Agent) (string, error) {
	if agent.EmbeddingNamespace != "" {
		return agent.EmbeddingNamespace, nil
	}
	ns := AgentNamespace(agent.ID)
	if err := c.Do(ctx, creds, http.MethodPatch, agentPath(agent.ID), AgentUpdate{EmbeddingNamespace: &ns}, nil); err != nil {
		return "", err
	}
	agent.EmbeddingNamespace = ns
	return ns, nil
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, creds Credentials, id string) error {
	return c.Do(ctx, creds, http.MethodDelete, agentPath(id), nil, nil)
}

// GeneratePrompt asks the backend to draft a system prompt from a brief.
func (c *Client) GeneratePrompt(ctx context.Context, creds Credentials, brief PromptBrief) (string, error) {
	var out struct {
		Prompt string `json:"prompt"`
	}
	if err := c.Do(ctx, creds, http.MethodPost, "/agents/generate-prompt", brief, &out, WithTimeout(c.uploadTimeout)); err != nil {
		return "", err
	}
	return out.Prompt, nil
}

// ChatWithAgent sends a test message to an agent.
func (c *Client) ChatWithAgent(ctx context.Context, creds Credentials, id, message string) (string, error) {
	var out Reply
	body := map[string]string{"message": message}
	if err := c.Do(ctx, creds, http.MethodPost, agentPath(id)+"/chat", body, &out, WithTimeout(c.uploadTimeout)); err != nil {
		return "", err
	}
	return out.Reply, nil
}
