package render

import "github.com/charmbracelet/lipgloss"

// Styles defines the lipgloss styles used for transcript output.
var Styles = struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Label     lipgloss.Style
	RealData  lipgloss.Style
	Streaming lipgloss.Style
	StatusBox lipgloss.Style
}{
	User: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true),

	Assistant: lipgloss.NewStyle().
		PaddingLeft(2),

	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	RealData: lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Italic(true),

	Streaming: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	StatusBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(0, 1),
}
