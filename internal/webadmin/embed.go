// ABOUTME: Embeds the page templates and integration guides using go:embed
// ABOUTME: Guides live under docs/<locale>/<topic>.md

package webadmin

import "embed"

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS

//go:embed docs
var guidesFS embed.FS
