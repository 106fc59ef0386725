package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyPress dispatches key events: an editing view first, then global
// shortcuts, then the focused section.
func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	// An input field in the active view owns the keyboard.
	if m.editing() {
		return m, m.sendToView(msg)
	}

	return m.handleGlobalKeys(msg)
}

// handleGlobalKeys handles shell-level shortcuts.
func (m *DashboardModel) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.ToggleSidebar):
		m.sidebarVisible = !m.sidebarVisible
		if !m.sidebarVisible {
			m.activeSection = SectionContent
		}
		return m, nil

	case key.Matches(msg, k.NextSection):
		m.toggleSection()
		return m, nil

	case key.Matches(msg, k.NextView):
		return m, m.nextView()

	case key.Matches(msg, k.PrevView):
		return m, m.prevView()

	case key.Matches(msg, k.Refresh):
		return m, m.reload()

	case key.Matches(msg, k.Escape):
		if m.status != "" {
			m.status = ""
			return m, nil
		}
	}

	if m.activeSection == SectionSidebar {
		return m, m.handleSidebarKeys(msg)
	}
	return m, m.sendToView(msg)
}

func (m *DashboardModel) handleSidebarKeys(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.Up):
		return m.moveSidebarCursor(-1)
	case key.Matches(msg, k.Down):
		return m.moveSidebarCursor(1)
	case key.Matches(msg, k.Enter), key.Matches(msg, k.Right):
		return m.activateSidebarCursor()
	}
	return nil
}

// toggleSection moves focus between the sidebar and the content.
func (m *DashboardModel) toggleSection() {
	if !m.sidebarVisible {
		m.activeSection = SectionContent
		return
	}
	if m.activeSection == SectionSidebar {
		m.activeSection = SectionContent
		return
	}
	m.activeSection = SectionSidebar
	m.sidebarCursor = m.activeViewIdx
}
