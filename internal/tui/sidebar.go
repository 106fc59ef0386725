package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const sidebarWidth = 22

func (m *DashboardModel) clampSidebarCursor() {
	if len(m.views) == 0 {
		m.sidebarCursor = 0
		return
	}
	if m.sidebarCursor < 0 {
		m.sidebarCursor = 0
	}
	if m.sidebarCursor >= len(m.views) {
		m.sidebarCursor = len(m.views) - 1
	}
}

func (m *DashboardModel) moveSidebarCursor(delta int) tea.Cmd {
	if len(m.views) == 0 {
		return nil
	}
	m.sidebarCursor += delta
	m.clampSidebarCursor()
	return m.activateView(m.sidebarCursor)
}

func (m *DashboardModel) activateSidebarCursor() tea.Cmd {
	if len(m.views) == 0 {
		return nil
	}
	m.clampSidebarCursor()
	cmd := m.activateView(m.sidebarCursor)
	m.activeSection = SectionContent
	return cmd
}

// buildSidebarLines renders one line per route view. The map gives the
// sidebar cursor for each rendered row.
func (m *DashboardModel) buildSidebarLines() ([]string, map[int]int) {
	rowToCursor := make(map[int]int)
	lines := make([]string, 0, len(m.views)+4)

	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(ColorBlue).Render("OLAM"))
	lines = append(lines, "")

	for i, r := range m.viewRoutes {
		label := fmt.Sprintf("  %s", r.Title)
		if m.activeViewIdx == i {
			label = fmt.Sprintf("> %s", r.Title)
		}

		maxLabelWidth := sidebarWidth - 4
		if len(label) > maxLabelWidth && maxLabelWidth > 3 {
			label = label[:maxLabelWidth-1] + "~"
		}

		rowToCursor[len(lines)] = i
		if m.activeSection == SectionSidebar && m.sidebarCursor == i {
			label = selectedStyle.Render(label)
		}
		lines = append(lines, label)
	}

	lines = append(lines, "")
	lines = append(lines, helpStyle.Render(m.currentPath()))

	return lines, rowToCursor
}

func (m *DashboardModel) sidebarCursorAtMouseRow(y int) (int, bool) {
	_, rowToCursor := m.buildSidebarLines()

	// Bubble Tea mouse row can include border rows depending on renderer.
	for _, offset := range []int{-1, 0, -2, 1} {
		row := y + offset
		if row < 0 {
			continue
		}
		if idx, ok := rowToCursor[row]; ok {
			return idx, true
		}
	}
	return 0, false
}

// renderSidebar renders route navigation in the left sidebar.
func (m *DashboardModel) renderSidebar(height int) string {
	m.clampSidebarCursor()

	style := lipgloss.NewStyle().
		Width(sidebarWidth-2).
		Height(height).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Padding(0, 1)

	if m.activeSection == SectionSidebar {
		style = style.BorderForeground(ColorBlue)
	}

	lines, _ := m.buildSidebarLines()
	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return style.Render(content)
}
