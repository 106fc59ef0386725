package tui

import tea "github.com/charmbracelet/bubbletea"

// Page ids known to App.
const (
	ShellPageID = "shell"
	HelpPageID  = "help"
)

// Page represents a top-level screen in the TUI (route shell, help).
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// PageNav is returned from Update to request a page switch.
type PageNav struct {
	PageID string
}
