// ABOUTME: Tests for mapping errors to page messages and for the template number helpers
// ABOUTME: Backend messages pass through; validation errors are translated

package webadmin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/botfy/botfy-dashboard/internal/backend"
	"github.com/botfy/botfy-dashboard/internal/widget"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		err    error
		want   string
	}{
		{"backend detail", "en", &backend.Error{Kind: backend.ErrStatus, Status: 400, Message: "Plan limit reached"}, "Plan limit reached"},
		{"wrapped backend", "en", fmt.Errorf("saving: %w", &backend.Error{Kind: backend.ErrStatus, Status: 409, Message: "Duplicate"}), "Duplicate"},
		{"bot token", "en", fmt.Errorf("%w: got 3", backend.ErrInvalidBotToken), "The bot token must have 40 to 70 characters."},
		{"document name", "en", backend.ErrDocumentNameRequired, "Enter a document name."},
		{"widget color", "en", widget.ErrInvalidColor, "Invalid color. Use #RGB or #RRGGBB."},
		{"password", "en", errPasswordTooShort, "The password must have at least 8 characters."},
		{"unknown", "en", errors.New("boom"), "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.locale, tt.err))
		})
	}
}

func TestUserMessage_Localized(t *testing.T) {
	en := userMessage("en", errForbidden)
	pt := userMessage("pt", errForbidden)
	es := userMessage("es", errForbidden)
	assert.NotEqual(t, en, pt)
	assert.NotEqual(t, en, es)
	assert.NotEmpty(t, pt)
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 50, percentOf(50, 100))
	assert.Equal(t, 25, percentOf(2.5, 10.0))
	assert.Equal(t, 100, percentOf(300, 100))
	assert.Equal(t, 0, percentOf(10, 0))
	assert.Equal(t, 0, percentOf("x", 10))
}

func TestBarClass(t *testing.T) {
	assert.Equal(t, "", barClass(10))
	assert.Equal(t, "high", barClass(80))
	assert.Equal(t, "full", barClass(100))
}

func TestSameHostPath(t *testing.T) {
	assert.Equal(t, "/dashboard/team", sameHostPath("https://dash.local/dashboard/team", "dash.local"))
	assert.Equal(t, "/a?b=c", sameHostPath("http://dash.local/a?b=c", "dash.local"))
	assert.Equal(t, "", sameHostPath("https://evil.test/a", "dash.local"))
	assert.Equal(t, "", sameHostPath("/relative", "dash.local"))
}
