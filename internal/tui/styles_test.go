package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/snipcap/snipcap/internal/engine"
)

func TestColorPalette_AllDefined(t *testing.T) {
	t.Parallel()
	// Verify that every package-level color var has non-empty Light and Dark hex values.
	colors := []struct {
		name  string
		color lipgloss.AdaptiveColor
	}{
		{"ColorPrimary", ColorPrimary},
		{"ColorAccent", ColorAccent},
		{"ColorSuccess", ColorSuccess},
		{"ColorWarning", ColorWarning},
		{"ColorError", ColorError},
		{"ColorMuted", ColorMuted},
	}
	for _, c := range colors {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert.NotEmpty(t, c.color.Light, "%s Light color must not be empty", c.name)
			assert.NotEmpty(t, c.color.Dark, "%s Dark color must not be empty", c.name)
		})
	}
}

func TestDefaultTheme_NoZeroValueStyles(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	// Render a sentinel string through each style to confirm that no field
	// was left as an accidentally broken value.
	const sentinel = "x"

	checks := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Title", theme.Title},
		{"TitleProject", theme.TitleProject},
		{"SnippetName", theme.SnippetName},
		{"RowDetail", theme.RowDetail},
		{"StatusRunning", theme.StatusRunning},
		{"StatusCaptured", theme.StatusCaptured},
		{"StatusSkipped", theme.StatusSkipped},
		{"StatusFailed", theme.StatusFailed},
		{"StatusDrifted", theme.StatusDrifted},
		{"StatusPending", theme.StatusPending},
		{"Spinner", theme.Spinner},
		{"ErrorText", theme.ErrorText},
		{"HelpKey", theme.HelpKey},
		{"HelpDesc", theme.HelpDesc},
	}

	for _, c := range checks {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			out := c.style.Render(sentinel)
			assert.NotEmpty(t, out, "style %s must render non-empty output", c.name)
		})
	}
}

// TestTheme_StatusIndicator_Glyphs verifies the status-to-symbol mapping for
// every snippet status, including the zero value for rows that have not
// settled yet.
func TestTheme_StatusIndicator_Glyphs(t *testing.T) {
	t.Parallel()
	theme := DefaultTheme()

	tests := []struct {
		name   string
		status engine.Status
		glyph  string
	}{
		{"captured", engine.StatusCaptured, "✓"},
		{"clean", engine.StatusClean, "✓"},
		{"skipped", engine.StatusSkipped, "✓"},
		{"failed", engine.StatusFailed, "!"},
		{"drifted", engine.StatusDrifted, "×"},
		{"missing", engine.StatusMissing, "×"},
		{"planned", engine.StatusPlanned, "○"},
		{"unsettled", engine.Status(""), "○"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := theme.StatusIndicator(tt.status)
			assert.Contains(t, got, tt.glyph)
		})
	}
}
