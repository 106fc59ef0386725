package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/normalize"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

// Section represents the focusable areas of the shell.
type Section int

const (
	SectionSidebar Section = iota // route sidebar
	SectionContent                // the active route view
)

// SidebarState holds route sidebar state.
type SidebarState struct {
	sidebarCursor  int
	sidebarVisible bool // toggled with 'a'
}

// NavigationState holds section and view navigation state.
type NavigationState struct {
	activeSection Section
	views         []RouteView
	viewRoutes    []routes.Route
	activeViewIdx int
	loaded        map[routes.View]bool
}

// ViewDeps provides dependencies for view constructors.
type ViewDeps struct {
	Stores    *store.Stores
	Formatter normalize.Formatter
	Now       func() time.Time
}

// ViewSpec defines how to build the view of one route.
type ViewSpec struct {
	View  routes.View
	Build func(deps ViewDeps) RouteView
}

// Options configures NewDashboardModel.
type Options struct {
	StartPath string // resolved against the route table; "/" by default
	Formatter normalize.Formatter
	Logger    *zap.Logger
	Now       func() time.Time
}

// DashboardModel is the route shell: a sidebar built from the route table,
// the active route view and a status line.
type DashboardModel struct {
	SidebarState
	NavigationState

	width  int
	height int

	ctx       context.Context
	stores    *store.Stores
	table     routes.Table
	keys      KeyMap
	formatter normalize.Formatter
	logger    *zap.Logger

	// Store actions issued and not yet reported back.
	pending  int
	spinning bool

	// Last store error for the status line (auto-clears after 30s).
	lastError   string
	lastErrorAt time.Time
	status      string
}

// DefaultViewSpecs declares the view of every route.
func DefaultViewSpecs() []ViewSpec {
	return []ViewSpec{
		{View: routes.Dashboard, Build: func(d ViewDeps) RouteView { return newDashboardView(d) }},
		{View: routes.Variance, Build: func(d ViewDeps) RouteView { return newVarianceView(d) }},
		{View: routes.Grid, Build: func(d ViewDeps) RouteView { return newGridView(d) }},
		{View: routes.Timeline, Build: func(d ViewDeps) RouteView { return newTimelineView(d) }},
		{View: routes.Device, Build: func(d ViewDeps) RouteView { return newDeviceView(d) }},
		{View: routes.Operator, Build: func(d ViewDeps) RouteView { return newOperatorView(d) }},
		{View: routes.Batch, Build: func(d ViewDeps) RouteView { return newBatchView(d) }},
		{View: routes.AI, Build: func(d ViewDeps) RouteView { return newAIView(d) }},
	}
}

// NewDashboardModel builds one view per route of table that has a ViewSpec.
func NewDashboardModel(ctx context.Context, stores *store.Stores, table routes.Table, opts Options) *DashboardModel {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &DashboardModel{
		SidebarState: SidebarState{
			sidebarVisible: true,
		},
		NavigationState: NavigationState{
			activeSection: SectionContent,
			loaded:        make(map[routes.View]bool),
		},
		ctx:       ctx,
		stores:    stores,
		table:     table,
		keys:      DefaultKeyMap(),
		formatter: opts.Formatter,
		logger:    logger,
	}
	m.SetViews(DefaultViewSpecs(), ViewDeps{Stores: stores, Formatter: opts.Formatter, Now: now})

	start := opts.StartPath
	if start == "" {
		start = "/"
	}
	if r, ok := table.Resolve(start); ok {
		m.selectView(r.View)
	}
	return m
}

// SetViews builds the views in route table order. Routes without a spec
// are skipped.
func (m *DashboardModel) SetViews(specs []ViewSpec, deps ViewDeps) {
	byView := make(map[routes.View]ViewSpec, len(specs))
	for _, s := range specs {
		if s.Build != nil {
			byView[s.View] = s
		}
	}

	m.views = nil
	m.viewRoutes = nil
	for _, r := range m.table.Views() {
		spec, ok := byView[r.View]
		if !ok {
			continue
		}
		m.views = append(m.views, spec.Build(deps))
		m.viewRoutes = append(m.viewRoutes, r)
	}
	m.activeViewIdx = 0
	m.sidebarCursor = 0
}

// selectView makes v active without loading it.
func (m *DashboardModel) selectView(v routes.View) bool {
	for i, vw := range m.views {
		if vw.ID() == v {
			m.activeViewIdx = i
			m.sidebarCursor = i
			return true
		}
	}
	return false
}

func (m *DashboardModel) activeView() RouteView {
	if m.activeViewIdx < 0 || m.activeViewIdx >= len(m.views) {
		return nil
	}
	return m.views[m.activeViewIdx]
}

func (m *DashboardModel) currentViewTitle() string {
	if v := m.activeView(); v != nil {
		return v.Title()
	}
	return ""
}

// currentPath returns the route path of the active view.
func (m *DashboardModel) currentPath() string {
	if m.activeViewIdx < 0 || m.activeViewIdx >= len(m.viewRoutes) {
		return ""
	}
	return m.viewRoutes[m.activeViewIdx].Path
}

// activateView shows view idx and loads it the first time it is shown.
func (m *DashboardModel) activateView(idx int) tea.Cmd {
	if idx < 0 || idx >= len(m.views) {
		return nil
	}
	m.activeViewIdx = idx
	m.sidebarCursor = idx
	v := m.views[idx]
	if m.loaded[v.ID()] {
		return nil
	}
	m.loaded[v.ID()] = true
	return m.track(v.Load(m.ctx))
}

// reload re-runs the active view's load regardless of earlier loads.
func (m *DashboardModel) reload() tea.Cmd {
	v := m.activeView()
	if v == nil {
		return nil
	}
	m.loaded[v.ID()] = true
	return m.track(v.Load(m.ctx))
}

// navigate resolves path against the route table and activates its view.
func (m *DashboardModel) navigate(path string) tea.Cmd {
	r, ok := m.table.Resolve(path)
	if !ok {
		m.setStatus("no route for " + path)
		return nil
	}
	for i, v := range m.views {
		if v.ID() == r.View {
			return m.activateView(i)
		}
	}
	m.setStatus("no view for " + path)
	return nil
}

func (m *DashboardModel) nextView() tea.Cmd {
	if len(m.views) <= 1 {
		return nil
	}
	return m.activateView((m.activeViewIdx + 1) % len(m.views))
}

func (m *DashboardModel) prevView() tea.Cmd {
	if len(m.views) <= 1 {
		return nil
	}
	return m.activateView((m.activeViewIdx - 1 + len(m.views)) % len(m.views))
}

// editing reports whether the active view owns the keyboard.
func (m *DashboardModel) editing() bool {
	if kh, ok := m.activeView().(KeyHandler); ok {
		return kh.Editing()
	}
	return false
}

func (m *DashboardModel) setStatus(s string) {
	m.status = s
}

// viewContext builds a ViewContext snapshot for view rendering.
func (m *DashboardModel) viewContext() ViewContext {
	return ViewContext{
		ContentWidth:  m.contentWidth(),
		ContentHeight: m.height,
		Focused:       m.activeSection == SectionContent,
		Formatter:     m.formatter,
	}
}

// Init loads the start view.
func (m *DashboardModel) Init() tea.Cmd {
	return m.activateView(m.activeViewIdx)
}

// ShellPage adapts DashboardModel to the Page interface.
type ShellPage struct {
	Model *DashboardModel
}

// NewShellPage wraps a DashboardModel as a Page.
func NewShellPage(m *DashboardModel) *ShellPage {
	return &ShellPage{Model: m}
}

func (p *ShellPage) ID() string { return ShellPageID }

func (p *ShellPage) Init() tea.Cmd {
	return p.Model.Init()
}

func (p *ShellPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if k, ok := msg.(tea.KeyMsg); ok && !p.Model.editing() && key.Matches(k, p.Model.keys.Help) {
		return nil, &PageNav{PageID: HelpPageID}
	}
	_, cmd := p.Model.Update(msg)
	return cmd, nil
}

func (p *ShellPage) View(width, height int) string {
	p.Model.width = width
	p.Model.height = height
	return p.Model.View()
}
