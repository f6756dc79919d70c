// Package console is the terminal intake application: pick or create a CSV
// database, queue PDF reports with PID and ORDER, then commit them through
// text extraction and pseudonymization.
package console

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used across the console.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Help     lipgloss.Style
	Focused  lipgloss.Style
	TableBox lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#8BC34A")),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("#d6dae0")),
		Error: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#e53935")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		Help:    lipgloss.NewStyle().Faint(true),
		Focused: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#FFC107")),
		TableBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#2a3850")),
	}
}
