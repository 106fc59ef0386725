package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/olam/internal/normalize"
	"github.com/tinytelemetry/olam/internal/routes"
)

// ViewContext provides read-only context to route views for rendering.
type ViewContext struct {
	ContentWidth  int
	ContentHeight int
	Focused       bool // content section has focus
	Formatter     normalize.Formatter
}

// Action identifies what a view wants the shell to do.
type Action int

const (
	ActionNavigate Action = iota
	ActionSetStatus
	ActionOpenBatch // Payload is a batch id
)

// ActionMsg lets a view talk to the shell without holding a reference to it.
type ActionMsg struct {
	Action  Action
	Payload any
}

// actionMsg wraps ActionMsg as a tea.Msg.
func actionMsg(a ActionMsg) tea.Cmd {
	return func() tea.Msg { return a }
}

// navigateTo asks the shell to show the view serving path.
func navigateTo(path string) tea.Cmd {
	return actionMsg(ActionMsg{Action: ActionNavigate, Payload: path})
}

// batchOpener is implemented by the view that shows a single batch.
type batchOpener interface {
	Open(ctx context.Context, batchID string) tea.Cmd
}

// ViewDataMsg reports that a store action started by a view has finished.
type ViewDataMsg struct {
	View routes.View
	Err  string
}

// loadCmd runs fn off the update loop and reports the store error after it.
func loadCmd(id routes.View, errOf func() string, fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return ViewDataMsg{View: id, Err: errOf()}
	}
}
