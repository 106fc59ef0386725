package tui

import tea "github.com/charmbracelet/bubbletea"

// App is the top-level Bubble Tea model that routes between pages.
type App struct {
	pages      map[string]Page
	activePage string
	width      int
	height     int
}

// NewApp creates a new App with the given pages. The first page is the default.
func NewApp(pages ...Page) *App {
	pageMap := make(map[string]Page, len(pages))
	var firstID string
	for i, p := range pages {
		pageMap[p.ID()] = p
		if i == 0 {
			firstID = p.ID()
		}
	}
	return &App{
		pages:      pageMap,
		activePage: firstID,
	}
}

// ActivePage returns the id of the page on screen.
func (a *App) ActivePage() string { return a.activePage }

func (a *App) Init() tea.Cmd {
	if p, ok := a.pages[a.activePage]; ok {
		return p.Init()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = wsm.Width
		a.height = wsm.Height
	}

	p, ok := a.pages[a.activePage]
	if !ok {
		return a, nil
	}

	// Input goes to the page on screen; everything else (load results,
	// spinner ticks) reaches every page so hidden pages stay consistent.
	var cmd tea.Cmd
	var nav *PageNav
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		cmd, nav = p.Update(msg)
	default:
		cmds := make([]tea.Cmd, 0, len(a.pages))
		for id, page := range a.pages {
			c, n := page.Update(msg)
			cmds = append(cmds, c)
			if id == a.activePage {
				nav = n
			}
		}
		cmd = tea.Batch(cmds...)
	}
	if nav == nil || nav.PageID == a.activePage {
		return a, cmd
	}
	next, exists := a.pages[nav.PageID]
	if !exists {
		return a, cmd
	}
	a.activePage = nav.PageID
	return a, tea.Batch(cmd, next.Init())
}

func (a *App) View() string {
	if p, ok := a.pages[a.activePage]; ok {
		return p.View(a.width, a.height)
	}
	return "No active page"
}
