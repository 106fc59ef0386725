package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// contentWidth returns the width available for main content, accounting for sidebar.
func (m *DashboardModel) contentWidth() int {
	if m.sidebarVisible {
		w := m.width - sidebarWidth
		if w < 40 {
			w = 40
		}
		return w
	}
	return m.width
}

// View renders the shell
func (m *DashboardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing dashboard..."
	}
	if m.height < 20 || m.width < 60 {
		return "Terminal too small. Resize to at least 60x20."
	}

	contentWidth := m.contentWidth()
	statusLineHeight := 1
	contentHeight := m.height - statusLineHeight - 2

	var content string
	if v := m.activeView(); v != nil {
		content = m.renderView(v, contentWidth, contentHeight)
	} else {
		content = renderEmptyPagePlaceholder("No views", contentWidth, contentHeight)
	}

	contentArea := lipgloss.JoinVertical(lipgloss.Left, content, m.renderStatusLine())

	if !m.sidebarVisible {
		return contentArea
	}
	sidebar := m.renderSidebar(m.height - 2)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, contentArea)
}

// renderView frames the active view, showing the loading placeholder while
// its store has a request in flight.
func (m *DashboardModel) renderView(v RouteView, width, height int) string {
	style := sectionStyle
	if m.activeSection == SectionContent {
		style = activeSectionStyle
	}
	innerW := max(10, width-4)
	innerH := max(3, height-1)

	title := chartTitleStyle.Render(v.Title())
	bodyH := innerH - 1

	var body string
	switch {
	case v.Loading():
		body = renderLoadingPlaceholder(innerW, bodyH)
	default:
		body = v.Render(m.viewContext(), innerW, bodyH)
		if err := v.Err(); err != "" {
			body = lipgloss.JoinVertical(lipgloss.Left, errorStyle.Render("Error: "+err), body)
		}
	}
	body = lipgloss.NewStyle().MaxHeight(bodyH).Render(body)

	return style.
		Width(width - 2).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

// renderStatusLine renders the status/help line at the bottom of the screen
func (m *DashboardModel) renderStatusLine() string {
	baseStyle := lipgloss.NewStyle().
		Background(ColorNavy).
		Foreground(ColorWhite)

	w := m.contentWidth()

	section := "Content"
	if m.activeSection == SectionSidebar {
		section = "Sidebar"
	}
	left := fmt.Sprintf("[%s/%s]", m.currentViewTitle(), section)

	var center string
	switch {
	case m.editing():
		center = "Enter: Apply • ESC: Cancel"
	case w < 80:
		center = "?: Help • []: View • r • q"
	default:
		center = "?: Help • Tab: Sidebar • []: Switch view • r: Refresh • /: Edit • q: Quit"
	}

	right := ""
	if m.anyLoading() {
		right = "loading"
	}
	if err := m.visibleError(); err != "" {
		right = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorRed).Render("error: " + err)
	} else if m.status != "" {
		right = m.status
	}

	gap := w - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right) - 4
	if gap < 1 {
		center = ""
		gap = max(1, w-lipgloss.Width(left)-lipgloss.Width(right)-4)
	}
	line := " " + left + " " + center + strings.Repeat(" ", gap) + right + " "
	return baseStyle.Width(w).MaxWidth(w).Render(line)
}

// renderEmptyPagePlaceholder renders a centered placeholder.
func renderEmptyPagePlaceholder(title string, width, height int) string {
	heading := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWhite).
		Render(title)

	subtitle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render("Nothing to show")

	block := lipgloss.JoinVertical(lipgloss.Center, heading, subtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}
