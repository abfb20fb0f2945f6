// ABOUTME: Knowledge base pages: document list, upload, rename, delete and per-agent training
// ABOUTME: Uploads for an agent go to its namespace, assigning one first when it has none

package webadmin

import (
	"errors"
	"net/http"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/store"
)

type documentsPageData struct {
	Layout
	Documents  []backend.Document
	Agents     []backend.Agent
	Namespaces map[string]string // namespace -> agent name
}

type trainingPageData struct {
	Layout
	Agents    []backend.Agent
	Selected  *backend.Agent
	Documents []backend.Document
}

// handleDocumentsPage lists every document of the tenant
func (a *Admin) handleDocumentsPage(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	docs, err := a.backend.ListDocuments(r.Context(), creds)
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}

	data := documentsPageData{
		Layout:     a.layout(w, r, "documents.title", "documents"),
		Documents:  docs,
		Namespaces: map[string]string{},
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}

	if agents, aerr := a.backend.ListAgents(r.Context(), creds); aerr == nil {
		data.Agents = agents
		for _, ag := range agents {
			data.Namespaces[ag.Namespace()] = ag.Name
		}
	}

	a.render(w, r, "documents.html", data)
}

// handleTrainingPage shows one agent's knowledge base
func (a *Admin) handleTrainingPage(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)
	agents, err := a.backend.ListAgents(r.Context(), creds)
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}

	data := trainingPageData{
		Layout: a.layout(w, r, "training.title", "training"),
		Agents: agents,
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
		a.render(w, r, "training.html", data)
		return
	}

	want := r.URL.Query().Get("agent")
	for i := range agents {
		if agents[i].ID == want || (want == "" && i == 0) {
			data.Selected = &agents[i]
			break
		}
	}

	if data.Selected != nil {
		docs, derr := a.backend.ListDocuments(r.Context(), creds)
		if derr != nil {
			if a.sessionExpired(w, r, derr) {
				return
			}
			data.Error = a.errorMessage(r, derr)
		}
		data.Documents = backend.DocumentsInNamespace(docs, data.Selected.Namespace())
	}

	a.render(w, r, "training.html", data)
}

// handleDocumentUpload uploads one file, optionally into an agent's namespace
func (a *Admin) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = backend.ErrNoFile
		}
		a.actionFailed(w, r, err, "/dashboard/documents")
		return
	}
	defer func() { _ = file.Close() }()

	namespace := ""
	agentID := r.FormValue("agent_id")
	if agentID != "" {
		agent, err := a.backend.GetAgent(r.Context(), creds, agentID)
		if err != nil {
			a.actionFailed(w, r, err, "/dashboard/documents")
			return
		}
		namespace, err = a.backend.EnsureAgentNamespace(r.Context(), creds, agent)
		if err != nil {
			a.actionFailed(w, r, err, "/dashboard/documents")
			return
		}
	}

	doc, err := a.backend.UploadDocument(r.Context(), creds, header.Filename, file, namespace)
	if err != nil {
		a.actionFailed(w, r, err, "/dashboard/documents")
		return
	}

	a.record(r, store.ActionUploadDocument, "document", doc.ID, map[string]any{
		"file_name": header.Filename,
		"namespace": namespace,
		"agent_id":  agentID,
	})
	a.flash(w, r, flashSuccess, a.t(r, "flash.document_uploaded"))
	a.redirectBack(w, r, "/dashboard/documents")
}

// handleDocumentRename changes a document's display name
func (a *Admin) handleDocumentRename(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.FormValue("file_name")
	if err := a.backend.RenameDocument(r.Context(), credentials(r), id, name); err != nil {
		a.actionFailed(w, r, err, "/dashboard/documents")
		return
	}

	a.record(r, store.ActionRenameDocument, "document", id, map[string]any{"file_name": name})
	a.flash(w, r, flashSuccess, a.t(r, "flash.document_renamed"))
	a.redirectBack(w, r, "/dashboard/documents")
}

// handleDocumentDelete removes a document
func (a *Admin) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.backend.DeleteDocument(r.Context(), credentials(r), id); err != nil {
		a.actionFailed(w, r, err, "/dashboard/documents")
		return
	}

	a.record(r, store.ActionDeleteDocument, "document", id, nil)
	a.flash(w, r, flashSuccess, a.t(r, "flash.document_deleted"))
	a.redirectBack(w, r, "/dashboard/documents")
}
