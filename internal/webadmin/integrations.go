// ABOUTME: Integrations page: widget snippet generator and channel setup guides
// ABOUTME: Guides are embedded Markdown per locale, rendered with goldmark

package webadmin

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/i18n"
	"github.com/botfy/botfy-dashboard/internal/widget"
)

const defaultGuide = "website"

var guideMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var guideOrder = map[string]int{
	"website":  1,
	"whatsapp": 2,
	"telegram": 3,
	"api":      4,
}

type guideTopic struct {
	Slug   string
	Title  string
	Active bool
}

type integrationsPageData struct {
	Layout
	Agents   []backend.Agent
	AgentID  string
	Color    string
	Position string
	Snippet  string
	Topics   []guideTopic
	Guide    template.HTML
}

// handleIntegrationsPage renders the snippet generator and the selected guide
func (a *Admin) handleIntegrationsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	agents, err := a.backend.ListAgents(r.Context(), credentials(r))
	if err != nil && a.sessionExpired(w, r, err) {
		return
	}

	data := integrationsPageData{
		Layout:   a.layout(w, r, "integrations.title", "integrations"),
		Agents:   agents,
		AgentID:  q.Get("agent"),
		Color:    q.Get("color"),
		Position: q.Get("position"),
	}
	if err != nil {
		data.Error = a.errorMessage(r, err)
	}
	if data.AgentID == "" && len(agents) > 0 {
		data.AgentID = agents[0].ID
	}

	if data.AgentID != "" {
		snippet, err := widget.Snippet(widget.Options{
			ScriptURL: a.externalURL(r, "/widget.js"),
			APIURL:    a.widgetAPIURL(),
			AgentID:   data.AgentID,
			TenantID:  identity(r).TenantID,
			Color:     data.Color,
			Position:  data.Position,
		})
		if err != nil {
			data.Error = a.errorMessage(r, err)
		}
		data.Snippet = snippet
	}
	if data.Color == "" {
		data.Color = widget.DefaultColor
	}
	if data.Position == "" {
		data.Position = widget.DefaultPosition
	}

	locale := a.locale(r)
	selected := q.Get("guide")
	data.Topics = a.guideTopics(locale, selected)
	data.Guide = a.renderGuide(locale, selected)

	a.render(w, r, "integrations.html", data)
}

// guideDir returns the guide directory for locale, falling back to the
// default locale when it has no guides.
func guideDir(locale string) string {
	dir := path.Join("docs", locale)
	if _, err := fs.Stat(guidesFS, dir); err != nil {
		return path.Join("docs", i18n.DefaultLocale)
	}
	return dir
}

func (a *Admin) guideTopics(locale, selected string) []guideTopic {
	if selected == "" {
		selected = defaultGuide
	}
	entries, err := guidesFS.ReadDir(guideDir(locale))
	if err != nil {
		a.logger.Error("failed to read guides", "error", err)
		return nil
	}

	var topics []guideTopic
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ".md")
		topics = append(topics, guideTopic{
			Slug:   slug,
			Title:  i18n.T(locale, "integrations.guides."+slug),
			Active: slug == selected,
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		oi, ok := guideOrder[topics[i].Slug]
		if !ok {
			oi = 100
		}
		oj, ok := guideOrder[topics[j].Slug]
		if !ok {
			oj = 100
		}
		if oi != oj {
			return oi < oj
		}
		return topics[i].Slug < topics[j].Slug
	})
	return topics
}

// renderGuide converts one guide to HTML. Slugs are looked up by name
// only, so a crafted value cannot leave the guide directory.
func (a *Admin) renderGuide(locale, slug string) template.HTML {
	if slug == "" || strings.ContainsAny(slug, "/\\.") {
		slug = defaultGuide
	}
	md, err := guidesFS.ReadFile(path.Join(guideDir(locale), slug+".md"))
	if err != nil {
		md = []byte("# " + i18n.T(locale, "integrations.guide_not_found"))
	}

	var buf bytes.Buffer
	if err := guideMarkdown.Convert(md, &buf); err != nil {
		a.logger.Error("failed to convert guide", "guide", slug, "error", err)
		return ""
	}
	return template.HTML(buf.String())
}
