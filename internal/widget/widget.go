// ABOUTME: Embedded widget script and the script-tag snippet generator
// ABOUTME: Snippet validates color and position the same way the script does

package widget

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
)

//go:embed widget.js
var script []byte

// Defaults mirrored by widget.js.
const (
	DefaultColor    = "#2563EB"
	DefaultPosition = "right"
)

var (
	ErrMissingIDs      = errors.New("agent id and tenant id are required")
	ErrInvalidColor    = errors.New("color must be #RGB or #RRGGBB")
	ErrInvalidPosition = errors.New("position must be left or right")
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ScriptHandler serves widget.js. Third-party sites load it cross-origin.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(script)
	})
}

// Options describe one embed tag.
type Options struct {
	ScriptURL string // where widget.js is served
	APIURL    string // data-api-url; omitted when empty
	AgentID   string
	TenantID  string
	Color     string // defaults to DefaultColor
	Position  string // defaults to DefaultPosition
}

// Normalize fills defaults and validates o.
func (o Options) Normalize() (Options, error) {
	o.AgentID = strings.TrimSpace(o.AgentID)
	o.TenantID = strings.TrimSpace(o.TenantID)
	o.Color = strings.TrimSpace(o.Color)
	o.Position = strings.ToLower(strings.TrimSpace(o.Position))

	if o.AgentID == "" || o.TenantID == "" {
		return o, ErrMissingIDs
	}
	if o.Color == "" {
		o.Color = DefaultColor
	}
	if !colorPattern.MatchString(o.Color) {
		return o, fmt.Errorf("%w: %q", ErrInvalidColor, o.Color)
	}
	if o.Position == "" {
		o.Position = DefaultPosition
	}
	if o.Position != "left" && o.Position != "right" {
		return o, fmt.Errorf("%w: %q", ErrInvalidPosition, o.Position)
	}
	if o.ScriptURL == "" {
		o.ScriptURL = "/widget.js"
	}
	return o, nil
}

// Snippet renders the <script> tag a tenant pastes into their site.
func Snippet(o Options) (string, error) {
	o, err := o.Normalize()
	if err != nil {
		return "", err
	}

	attr := func(name, value string) string {
		return fmt.Sprintf("\n        %s=\"%s\"", name, html.EscapeString(value))
	}

	var b strings.Builder
	b.WriteString("<script src=\"")
	b.WriteString(html.EscapeString(o.ScriptURL))
	b.WriteString("\"")
	b.WriteString(attr("data-agent-id", o.AgentID))
	b.WriteString(attr("data-tenant-id", o.TenantID))
	b.WriteString(attr("data-color", o.Color))
	b.WriteString(attr("data-position", o.Position))
	if o.APIURL != "" {
		b.WriteString(attr("data-api-url", o.APIURL))
	}
	b.WriteString(">\n</script>")
	return b.String(), nil
}
