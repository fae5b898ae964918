package internal

import (
	tea "github.com/charmbracelet/bubbletea"
)

// RunClient starts the dashboard program and blocks until it exits.
func RunClient(serverURL, apiBaseURL, tokenFile, roomID string) error {
	model := NewTUIModel(serverURL, apiBaseURL, tokenFile, roomID)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	model.manager.Close()
	return err
}
