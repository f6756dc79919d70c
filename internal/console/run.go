package console

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the intake console and blocks until the user quits.
func Run(deps Deps, dbPath string) error {
	p := tea.NewProgram(New(deps, dbPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
