// ABOUTME: Team pages: list teams with their agents, create, update and delete
// ABOUTME: The leader agent is stored in the team's settings

package webadmin

import (
	"net/http"
	"strings"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/store"
)

type teamView struct {
	backend.Team
	Members    []backend.Agent
	LeaderName string
}

type teamsPageData struct {
	Layout
	Teams      []teamView
	Unassigned []backend.Agent
	Agents     []backend.Agent
}

// handleTeamsPage lists teams with their member agents
func (a *Admin) handleTeamsPage(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	teams, err := a.backend.ListTeams(r.Context(), creds)
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}
	agents, aerr := a.backend.ListAgents(r.Context(), creds)
	if aerr != nil && err == nil {
		err = aerr
	}

	data := teamsPageData{
		Layout: a.layout(w, r, "team.title", "team"),
		Agents: agents,
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}
	data.Teams, data.Unassigned = groupByTeam(teams, agents)

	a.render(w, r, "teams.html", data)
}

// groupByTeam attaches agents to their team. Agents whose team is unknown
// count as unassigned.
func groupByTeam(teams []backend.Team, agents []backend.Agent) ([]teamView, []backend.Agent) {
	names := make(map[string]string, len(agents))
	for _, ag := range agents {
		names[ag.ID] = ag.Name
	}

	views := make([]teamView, 0, len(teams))
	index := make(map[string]int, len(teams))
	for i, t := range teams {
		index[t.ID] = i
		views = append(views, teamView{Team: t, LeaderName: names[t.Settings.LeaderAgentID]})
	}

	var unassigned []backend.Agent
	for _, ag := range agents {
		if i, ok := index[ag.TeamID]; ok && ag.TeamID != "" {
			views[i].Members = append(views[i].Members, ag)
			continue
		}
		unassigned = append(unassigned, ag)
	}
	return views, unassigned
}

func teamInputFromForm(r *http.Request) backend.TeamInput {
	in := backend.TeamInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if leader := r.FormValue("leader_agent_id"); leader != "" {
		in.Settings = &backend.TeamSettings{LeaderAgentID: leader}
	}
	return in
}

// handleTeamCreate creates a team
func (a *Admin) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	in := teamInputFromForm(r)
	if in.Name == "" {
		a.actionFailed(w, r, errRequiredFields, "/dashboard/team")
		return
	}

	team, err := a.backend.CreateTeam(r.Context(), credentials(r), in)
	if err != nil {
		a.actionFailed(w, r, err, "/dashboard/team")
		return
	}

	a.record(r, store.ActionCreateTeam, "team", team.ID, map[string]any{"name": team.Name})
	a.succeeded(w, r, "flash.team_created", "/dashboard/team")
}

// handleTeamUpdate saves a team's name, description and leader
func (a *Admin) handleTeamUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	in := teamInputFromForm(r)
	if in.Name == "" {
		a.actionFailed(w, r, errRequiredFields, "/dashboard/team")
		return
	}
	if in.Settings == nil {
		in.Settings = &backend.TeamSettings{}
	}

	if _, err := a.backend.UpdateTeam(r.Context(), credentials(r), id, in); err != nil {
		a.actionFailed(w, r, err, "/dashboard/team")
		return
	}

	a.record(r, store.ActionUpdateTeam, "team", id, map[string]any{
		"name":            in.Name,
		"leader_agent_id": in.Settings.LeaderAgentID,
	})
	a.succeeded(w, r, "flash.team_saved", "/dashboard/team")
}

// handleTeamDelete removes a team; its agents become unassigned
func (a *Admin) handleTeamDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.backend.DeleteTeam(r.Context(), credentials(r), id); err != nil {
		a.actionFailed(w, r, err, "/dashboard/team")
		return
	}

	a.record(r, store.ActionDeleteTeam, "team", id, nil)
	a.succeeded(w, r, "flash.team_deleted", "/dashboard/team")
}
