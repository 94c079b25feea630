package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/snipcap/snipcap/internal/engine"
)

// ---------------------------------------------------------------------------
// Color Palette
// ---------------------------------------------------------------------------

// ColorPrimary is the main brand/accent color used for titles and highlights.
var ColorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}

// ColorAccent is a green-teal accent for positive indicators and active states.
var ColorAccent = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}

// ColorSuccess represents successful operations (green).
var ColorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}

// ColorWarning represents cautionary states such as drift (amber/yellow).
var ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// ColorError represents failures and error states (red).
var ColorError = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// ColorMuted is a subdued foreground color for secondary text.
var ColorMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// ---------------------------------------------------------------------------
// Theme
// ---------------------------------------------------------------------------

// Theme holds all Lipgloss styles for the progress UI. Every field is a
// pre-built lipgloss.Style value with colors only; widths are applied at
// render time.
type Theme struct {
	// Header
	Title        lipgloss.Style
	TitleProject lipgloss.Style

	// Snippet rows
	SnippetName lipgloss.Style
	RowDetail   lipgloss.Style

	// Status indicators
	StatusRunning  lipgloss.Style
	StatusCaptured lipgloss.Style
	StatusSkipped  lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusDrifted  lipgloss.Style
	StatusPending  lipgloss.Style

	// General
	Spinner   lipgloss.Style
	ErrorText lipgloss.Style
	HelpKey   lipgloss.Style
	HelpDesc  lipgloss.Style
}

// DefaultTheme returns the default snipcap theme. All colors use
// lipgloss.AdaptiveColor for automatic light/dark terminal support.
func DefaultTheme() Theme {
	return Theme{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		TitleProject: lipgloss.NewStyle().
			Foreground(ColorMuted),

		SnippetName: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}),

		RowDetail: lipgloss.NewStyle().
			Foreground(ColorMuted),

		StatusRunning: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent),

		StatusCaptured: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		StatusSkipped: lipgloss.NewStyle().
			Foreground(ColorMuted),

		StatusFailed: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),

		StatusDrifted: lipgloss.NewStyle().
			Foreground(ColorWarning),

		StatusPending: lipgloss.NewStyle().
			Foreground(ColorMuted),

		Spinner: lipgloss.NewStyle().
			Foreground(ColorAccent),

		ErrorText: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),

		HelpKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		HelpDesc: lipgloss.NewStyle().
			Foreground(ColorMuted),
	}
}

// StatusIndicator returns a styled Unicode symbol string for the given
// snippet status. The returned string is ready to embed in a view.
//
// Symbol mapping:
//   - captured, clean → "✓" (check mark, success green)
//   - skipped         → "✓" (check mark, muted: done, nothing to do)
//   - failed          → "!" (exclamation, red)
//   - drifted, missing → "×" (times/cross, warning)
//   - anything else   → "○" (open circle, muted: not yet settled)
func (t Theme) StatusIndicator(status engine.Status) string {
	switch status {
	case engine.StatusCaptured, engine.StatusClean:
		return t.StatusCaptured.Render("✓")
	case engine.StatusSkipped:
		return t.StatusSkipped.Render("✓")
	case engine.StatusFailed:
		return t.StatusFailed.Render("!")
	case engine.StatusDrifted, engine.StatusMissing:
		return t.StatusDrifted.Render("×")
	default:
		return t.StatusPending.Render("○")
	}
}
