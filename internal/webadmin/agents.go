// ABOUTME: Agent pages: list, create, edit, activate/deactivate, delete, team and delegation
// ABOUTME: Also serves the htmx fragments for AI prompt generation and test chat

package webadmin

import (
	"net/http"
	"strings"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/store"
	"github.com/botfy/botfy-dashboard/internal/widget"
)

type agentsListData struct {
	Layout
	Agents    []backend.Agent
	TeamNames map[string]string
}

type agentFormData struct {
	Layout
	Agent     backend.Agent
	Teams     []backend.Team
	Others    []backend.Agent // candidates for delegation
	Delegates map[string]bool
	Documents []backend.Document
	Snippet   string
	IsNew     bool
}

type promptResultData struct {
	Prompt string
	Error  string
}

type chatReplyData struct {
	Message string
	Reply   string
	Error   string
}

// handleAgentsList renders the tenant's agents
func (a *Admin) handleAgentsList(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	agents, err := a.backend.ListAgents(r.Context(), creds)
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}

	data := agentsListData{
		Layout:    a.layout(w, r, "agents.title", "agents"),
		Agents:    agents,
		TeamNames: map[string]string{},
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}

	if teams, terr := a.backend.ListTeams(r.Context(), creds); terr == nil {
		for _, t := range teams {
			data.TeamNames[t.ID] = t.Name
		}
	}

	a.render(w, r, "agents.html", data)
}

// handleAgentNewPage renders an empty agent form
func (a *Admin) handleAgentNewPage(w http.ResponseWriter, r *http.Request) {
	data := agentFormData{
		Layout: a.layout(w, r, "agents.new_title", "agents"),
		Agent:  backend.Agent{Active: true},
		IsNew:  true,
	}
	a.render(w, r, "agent_form.html", data)
}

// handleAgentCreate creates an agent from the new-agent form
func (a *Admin) handleAgentCreate(w http.ResponseWriter, r *http.Request) {
	in := backend.AgentCreate{
		Name:         strings.TrimSpace(r.FormValue("name")),
		Niche:        strings.TrimSpace(r.FormValue("niche")),
		PromptCustom: r.FormValue("prompt_custom"),
	}

	agent, err := a.backend.CreateAgent(r.Context(), credentials(r), in)
	if err != nil {
		if a.sessionExpired(w, r, err) {
			return
		}
		data := agentFormData{
			Layout: a.layout(w, r, "agents.new_title", "agents"),
			Agent:  backend.Agent{Name: in.Name, Niche: in.Niche, PromptCustom: in.PromptCustom, Active: true},
			IsNew:  true,
		}
		data.Error = a.errorMessage(r, err)
		a.render(w, r, "agent_form.html", data)
		return
	}

	a.record(r, store.ActionCreateAgent, "agent", agent.ID, map[string]any{"name": agent.Name})
	a.succeeded(w, r, "flash.agent_created", "/dashboard/agents/"+agent.ID)
}

// loadAgentForm gathers everything the agent edit page shows
func (a *Admin) loadAgentForm(w http.ResponseWriter, r *http.Request, agent *backend.Agent) agentFormData {
	creds := credentials(r)
	data := agentFormData{
		Layout:    a.layout(w, r, "agents.edit_title", "agents"),
		Agent:     *agent,
		Delegates: map[string]bool{},
	}
	for _, id := range agent.Settings.CanDelegateTo {
		data.Delegates[id] = true
	}

	if teams, err := a.backend.ListTeams(r.Context(), creds); err == nil {
		data.Teams = teams
	}
	if agents, err := a.backend.ListAgents(r.Context(), creds); err == nil {
		for _, other := range agents {
			if other.ID != agent.ID {
				data.Others = append(data.Others, other)
			}
		}
	}
	if docs, err := a.backend.ListDocuments(r.Context(), creds); err == nil {
		data.Documents = backend.DocumentsInNamespace(docs, agent.Namespace())
	}

	snippet, err := widget.Snippet(widget.Options{
		ScriptURL: a.externalURL(r, "/widget.js"),
		APIURL:    a.widgetAPIURL(),
		AgentID:   agent.ID,
		TenantID:  identity(r).TenantID,
	})
	if err == nil {
		data.Snippet = snippet
	}
	return data
}

// widgetAPIURL is the data-api-url written into snippets
func (a *Admin) widgetAPIURL() string {
	if a.config.WidgetAPIURL != "" {
		return a.config.WidgetAPIURL
	}
	return a.backend.BaseURL()
}

// handleAgentDetail renders the edit form for one agent
func (a *Admin) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	agent, err := a.backend.GetAgent(r.Context(), credentials(r), r.PathValue("id"))
	if err != nil {
		if a.sessionExpired(w, r, err) {
			return
		}
		a.flash(w, r, flashError, a.errorMessage(r, err))
		http.Redirect(w, r, "/dashboard/agents", http.StatusSeeOther)
		return
	}
	a.render(w, r, "agent_form.html", a.loadAgentForm(w, r, agent))
}

// handleAgentUpdate saves the edit form
func (a *Admin) handleAgentUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	creds := credentials(r)

	name := strings.TrimSpace(r.FormValue("name"))
	niche := strings.TrimSpace(r.FormValue("niche"))
	prompt := r.FormValue("prompt_custom")
	active := r.FormValue("active") == "on" || r.FormValue("active") == "true"
	delegates := nonEmpty(r.Form["can_delegate_to"])

	update := backend.AgentUpdate{
		Name:         &name,
		Niche:        &niche,
		PromptCustom: &prompt,
		Active:       &active,
		Settings:     &backend.AgentSettings{CanDelegateTo: delegates},
	}

	agent, err := a.backend.UpdateAgent(r.Context(), creds, id, update)
	if err == nil {
		teamID := r.FormValue("team_id")
		if teamID != r.FormValue("current_team_id") {
			if err = a.backend.SetAgentTeam(r.Context(), creds, id, teamID); err == nil {
				agent.TeamID = teamID
			}
		}
	}
	if err != nil {
		if a.sessionExpired(w, r, err) {
			return
		}
		current := backend.Agent{ID: id, Name: name, Niche: niche, PromptCustom: prompt, Active: active,
			TeamID: r.FormValue("current_team_id"), Settings: backend.AgentSettings{CanDelegateTo: delegates}}
		if agent != nil {
			current = *agent
		}
		data := a.loadAgentForm(w, r, &current)
		data.Error = a.errorMessage(r, err)
		a.render(w, r, "agent_form.html", data)
		return
	}

	a.record(r, store.ActionUpdateAgent, "agent", id, map[string]any{"name": name, "active": active})
	a.succeeded(w, r, "flash.agent_saved", "/dashboard/agents/"+id)
}

// handleAgentToggle sets the agent's active flag to the posted state
func (a *Admin) handleAgentToggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	active := r.FormValue("active") == "true"

	if _, err := a.backend.SetAgentActive(r.Context(), credentials(r), id, active); err != nil {
		a.actionFailed(w, r, err, "/dashboard/agents")
		return
	}

	a.record(r, store.ActionToggleAgent, "agent", id, map[string]any{"active": active})
	key := "flash.agent_deactivated"
	if active {
		key = "flash.agent_activated"
	}
	a.flash(w, r, flashSuccess, a.t(r, key))
	a.redirectBack(w, r, "/dashboard/agents")
}

// handleAgentDelete removes an agent
func (a *Admin) handleAgentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.backend.DeleteAgent(r.Context(), credentials(r), id); err != nil {
		a.actionFailed(w, r, err, "/dashboard/agents")
		return
	}

	a.record(r, store.ActionDeleteAgent, "agent", id, nil)
	a.succeeded(w, r, "flash.agent_deleted", "/dashboard/agents")
}

// handleAgentTeam moves an agent into a team, or out of any team
func (a *Admin) handleAgentTeam(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	teamID := r.FormValue("team_id")
	if err := a.backend.SetAgentTeam(r.Context(), credentials(r), id, teamID); err != nil {
		a.actionFailed(w, r, err, "/dashboard/team")
		return
	}

	a.record(r, store.ActionUpdateAgent, "agent", id, map[string]any{"team_id": teamID})
	a.flash(w, r, flashSuccess, a.t(r, "flash.team_assignment_saved"))
	a.redirectBack(w, r, "/dashboard/team")
}

// handleGeneratePrompt returns a generated system prompt (htmx)
func (a *Admin) handleGeneratePrompt(w http.ResponseWriter, r *http.Request) {
	brief := backend.PromptBrief{
		Context:  strings.TrimSpace(r.FormValue("context")),
		Audience: strings.TrimSpace(r.FormValue("audience")),
		Tone:     strings.TrimSpace(r.FormValue("tone")),
		Goal:     strings.TrimSpace(r.FormValue("goal")),
	}

	var data promptResultData
	if brief.Context == "" {
		data.Error = a.t(r, "errors.prompt_context_required")
		a.renderPartial(w, r, "prompt_result.html", data)
		return
	}

	prompt, err := a.backend.GeneratePrompt(r.Context(), credentials(r), brief)
	if err != nil {
		if a.sessionExpired(w, r, err) {
			return
		}
		data.Error = a.errorMessage(r, err)
	}
	data.Prompt = prompt
	a.renderPartial(w, r, "prompt_result.html", data)
}

// handleAgentChat sends one test message to the agent (htmx)
func (a *Admin) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	data := chatReplyData{Message: strings.TrimSpace(r.FormValue("message"))}
	if data.Message == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	reply, err := a.backend.ChatWithAgent(r.Context(), credentials(r), r.PathValue("id"), data.Message)
	if err != nil {
		if a.sessionExpired(w, r, err) {
			return
		}
		data.Error = a.errorMessage(r, err)
	}
	data.Reply = reply
	a.renderPartial(w, r, "chat_reply.html", data)
}

func nonEmpty(values []string) []string {
	out := []string{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
