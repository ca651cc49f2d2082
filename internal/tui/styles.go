package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the view.
type Styles struct {
	Title  lipgloss.Style
	User   lipgloss.Style
	Bot    lipgloss.Style
	Typing lipgloss.Style
	Prompt lipgloss.Style
}

// DefaultStyles mirrors the web widget: blue user bubbles, grey bot bubbles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1F2937")).
			Background(lipgloss.Color("#E5E7EB")).Padding(0, 1),
		User: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#3B82F6")).Padding(0, 1),
		Bot: lipgloss.NewStyle().Foreground(lipgloss.Color("#1F2937")).
			Background(lipgloss.Color("#E5E7EB")).Padding(0, 1),
		Typing: lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true),
		Prompt: lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
	}
}
