package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/olam/internal/routes"
)

// helpPage lists the key bindings and the routes of the shell.
type helpPage struct {
	keys     KeyMap
	table    routes.Table
	viewport viewport.Model
}

// NewHelpPage returns the help page for keys and table.
func NewHelpPage(keys KeyMap, table routes.Table) Page {
	return &helpPage{keys: keys, table: table, viewport: viewport.New(80, 20)}
}

func (h *helpPage) ID() string { return HelpPageID }

func (h *helpPage) Init() tea.Cmd {
	h.viewport.GotoTop()
	return nil
}

func (h *helpPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, h.keys.ForceQuit):
			return tea.Quit, nil
		case key.Matches(msg, h.keys.Escape), key.Matches(msg, h.keys.Help), key.Matches(msg, h.keys.Quit):
			return nil, &PageNav{PageID: ShellPageID}
		case key.Matches(msg, h.keys.Up):
			h.viewport.ScrollUp(1)
			return nil, nil
		case key.Matches(msg, h.keys.Down):
			h.viewport.ScrollDown(1)
			return nil, nil
		}
		var cmd tea.Cmd
		h.viewport, cmd = h.viewport.Update(msg)
		return cmd, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				h.viewport.ScrollUp(1)
			case tea.MouseButtonWheelDown:
				h.viewport.ScrollDown(1)
			}
		}
	}
	return nil, nil
}

func (h *helpPage) content() string {
	titles := []string{"GLOBAL", "NAVIGATION", "ACTIONS"}
	var b strings.Builder
	b.WriteString("OLAM Dashboard Help\n")
	for i, group := range h.keys.Groups() {
		b.WriteString("\n" + titles[i] + ":\n")
		for _, k := range group {
			hk := k.Help()
			b.WriteString("  " + padRight(hk.Key, 14) + " - " + hk.Desc + "\n")
		}
	}
	b.WriteString("\nROUTES:\n")
	for _, r := range h.table {
		if r.Redirect != "" {
			b.WriteString("  " + padRight(r.Path, 14) + " → " + r.Redirect + "\n")
			continue
		}
		b.WriteString("  " + padRight(r.Path, 14) + " - " + r.Title + "\n")
	}
	return b.String()
}

func (h *helpPage) View(width, height int) string {
	if width < 20 || height < 8 {
		return "Terminal too small"
	}
	modalWidth := width - 8
	modalHeight := height - 4
	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	h.viewport.Width = contentWidth
	h.viewport.Height = contentHeight
	h.viewport.SetContent(lipgloss.NewStyle().Width(contentWidth).Render(h.content()))

	pane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(h.viewport.View())

	header := lipgloss.NewStyle().Width(contentWidth).Foreground(ColorBlue).Bold(true).Render("Help")
	status := helpStyle.Render("↑/↓ wheel: scroll | ?/esc/q: close")

	modal := lipgloss.NewStyle().
		Width(modalWidth).
		Height(modalHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, pane, status))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
