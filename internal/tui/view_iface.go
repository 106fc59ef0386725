package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/olam/internal/routes"
)

// RouteView is the content shown for one route.
type RouteView interface {
	ID() routes.View
	Title() string
	Load(ctx context.Context) tea.Cmd // returns ViewDataMsg
	Loading() bool
	Err() string
	Render(ctx ViewContext, width, height int) string
}

// KeyHandler is implemented by views that react to keys. While Editing
// reports true the view receives every key except force quit. HandleKey
// reports load=true when cmd ends in exactly one ViewDataMsg.
type KeyHandler interface {
	HandleKey(ctx context.Context, msg tea.KeyMsg) (cmd tea.Cmd, load bool)
	Editing() bool
}
