package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit          key.Binding
	ForceQuit     key.Binding
	Help          key.Binding
	Escape        key.Binding
	ToggleSidebar key.Binding

	// Navigation
	NextSection key.Binding
	Up          key.Binding
	Down        key.Binding
	Enter       key.Binding
	Left        key.Binding
	Right       key.Binding

	// Views
	NextView key.Binding
	PrevView key.Binding

	// Actions
	Refresh   key.Binding
	Edit      key.Binding
	Inspect   key.Binding
	ResetChat key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/close"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle sidebar"),
		),

		NextSection: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "sidebar/content"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open/apply"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "prev page/day"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next page/day"),
		),

		NextView: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev view"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Edit: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "edit filter/message"),
		),
		Inspect: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "initial variance"),
		),
		ResetChat: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reset chat"),
		),
	}
}

// Groups returns the bindings shown on the help page.
func (k KeyMap) Groups() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.ForceQuit, k.Help, k.Escape, k.ToggleSidebar},
		{k.NextSection, k.Up, k.Down, k.Enter, k.Left, k.Right, k.NextView, k.PrevView},
		{k.Refresh, k.Edit, k.Inspect, k.ResetChat},
	}
}
