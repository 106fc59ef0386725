package tui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/olam/internal/apiclient"
	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/mockapi"
	"github.com/tinytelemetry/olam/internal/normalize"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, start string) (*DashboardModel, *mockapi.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock := mockapi.NewServer("", mockapi.SampleFixtures())
	ts := httptest.NewServer(mock.Handler())
	t.Cleanup(ts.Close)

	client, err := apiclient.New(ts.URL+"/api", apiclient.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	storage, err := kvstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	formatter := normalize.Formatter{Layout: "2006/01/02 15:04", Location: time.UTC}
	stores := store.New(client, storage, store.WithFormatter(formatter))

	m := NewDashboardModel(context.Background(), stores, routes.Default(), Options{
		StartPath: start,
		Formatter: formatter,
		Now:       func() time.Time { return fixedNow },
	})
	m.width, m.height = 140, 40
	return m, mock
}

// collect runs cmd and returns the messages it produces, unpacking batches.
// Spinner ticks and quit messages are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, SpinnerTickMsg, tea.QuitMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// drain feeds every message cmd produces back into m until nothing is left.
func drain(m *DashboardModel, cmd tea.Cmd) {
	queue := collect(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		_, next := m.Update(msg)
		queue = append(queue, collect(next)...)
	}
}

func press(m *DashboardModel, s string) tea.Cmd {
	var k tea.KeyMsg
	switch s {
	case "enter":
		k = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		k = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		k = tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		k = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		k = tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		k = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		k = tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+r":
		k = tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		k = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	_, cmd := m.Update(k)
	return cmd
}

func TestNewDashboardModelDefaults(t *testing.T) {
	m, _ := newTestModel(t, "")

	if !m.sidebarVisible {
		t.Fatal("expected sidebar visible by default")
	}
	if m.activeSection != SectionContent {
		t.Fatalf("expected content focus, got %v", m.activeSection)
	}
	if len(m.views) != len(routes.Default().Views()) {
		t.Fatalf("expected one view per route, got %d", len(m.views))
	}
	if got := m.activeView().ID(); got != routes.Dashboard {
		t.Fatalf("root should resolve to the dashboard, got %q", got)
	}
	if got := m.currentPath(); got != "/dashboard" {
		t.Fatalf("current path = %q", got)
	}
}

func TestStartPathSelectsView(t *testing.T) {
	m, mock := newTestModel(t, "/grid")
	if got := m.activeView().ID(); got != routes.Grid {
		t.Fatalf("active view = %q, want grid", got)
	}
	if n := len(mock.Requests()); n != 0 {
		t.Fatalf("constructing the model should not load, got %d requests", n)
	}
}

func TestInitLoadsStartViewOnce(t *testing.T) {
	m, mock := newTestModel(t, "/")

	drain(m, m.Init())
	if m.pending != 0 {
		t.Fatalf("pending = %d after drain", m.pending)
	}
	if got := m.stores.Dashboard.Snapshot().Overview.TotalBatches; got != 4 {
		t.Fatalf("total batches = %d, want 4", got)
	}
	if got := mock.Count("/dashboard"); got != 1 {
		t.Fatalf("dashboard requests = %d, want 1", got)
	}

	// Re-activating a loaded view does not fetch again; refresh does.
	drain(m, m.Init())
	if got := mock.Count("/dashboard"); got != 1 {
		t.Fatalf("dashboard requests after re-init = %d, want 1", got)
	}
	drain(m, press(m, "r"))
	if got := mock.Count("/dashboard"); got != 2 {
		t.Fatalf("dashboard requests after refresh = %d, want 2", got)
	}
}

func TestNextPrevViewWraps(t *testing.T) {
	m, _ := newTestModel(t, "/")
	n := len(m.views)

	drain(m, press(m, "["))
	if m.activeViewIdx != n-1 {
		t.Fatalf("prev from first view should wrap to %d, got %d", n-1, m.activeViewIdx)
	}
	drain(m, press(m, "]"))
	if m.activeViewIdx != 0 {
		t.Fatalf("next from last view should wrap to 0, got %d", m.activeViewIdx)
	}
	drain(m, press(m, "]"))
	if got := m.activeView().ID(); got != routes.Variance {
		t.Fatalf("second view = %q, want variance", got)
	}
	if m.sidebarCursor != m.activeViewIdx {
		t.Fatal("sidebar cursor should follow the active view")
	}
}

func TestNavigateAction(t *testing.T) {
	m, _ := newTestModel(t, "/")

	drain(m, navigateTo("/timeline"))
	if got := m.activeView().ID(); got != routes.Timeline {
		t.Fatalf("active view = %q, want timeline", got)
	}
	if got := m.stores.Timeline.Day().Date; got != "2024-01-01" {
		t.Fatalf("timeline day = %q", got)
	}

	drain(m, navigateTo("/nowhere"))
	if m.status == "" {
		t.Fatal("unknown path should set a status message")
	}
	if got := m.activeView().ID(); got != routes.Timeline {
		t.Fatalf("unknown path changed the view to %q", got)
	}
}

func TestSidebarKeysActivateViews(t *testing.T) {
	m, _ := newTestModel(t, "/")

	press(m, "tab")
	if m.activeSection != SectionSidebar {
		t.Fatal("tab should focus the sidebar")
	}
	drain(m, press(m, "down"))
	if got := m.activeView().ID(); got != routes.Variance {
		t.Fatalf("moving the cursor should activate variance, got %q", got)
	}
	drain(m, press(m, "enter"))
	if m.activeSection != SectionContent {
		t.Fatal("enter should move focus back to content")
	}

	press(m, "a")
	if m.sidebarVisible {
		t.Fatal("a should hide the sidebar")
	}
	press(m, "tab")
	if m.activeSection != SectionContent {
		t.Fatal("tab with a hidden sidebar keeps content focus")
	}
}

func TestLoadErrorReachesStatusLine(t *testing.T) {
	m, mock := newTestModel(t, "/")
	mock.FailPath("/dashboard", 500)

	drain(m, m.Init())
	if m.visibleError() == "" {
		t.Fatal("expected the store error on the status line")
	}

	mock.FailPath("/dashboard", 0)
	drain(m, press(m, "r"))
	if got := m.visibleError(); got != "" {
		t.Fatalf("successful reload should clear the error, got %q", got)
	}
}

func TestVarianceEnterOpensBatch(t *testing.T) {
	m, mock := newTestModel(t, "/variance")
	drain(m, m.Init())

	drain(m, press(m, "down"))
	drain(m, press(m, "enter"))

	if got := m.activeView().ID(); got != routes.Batch {
		t.Fatalf("active view = %q, want batch", got)
	}
	data := m.stores.Data.BatchData()
	if len(data.BatchIDs) != 1 || data.BatchIDs[0] != "B240101-02" {
		t.Fatalf("batch data = %+v", data.BatchIDs)
	}
	if _, ok := m.stores.Data.Rounds()["B240101-02"]; !ok {
		t.Fatal("opening a batch should load its rounds")
	}
	f, ok := m.stores.Data.CurrentFilter()
	if !ok || len(f.BatchIDs) != 1 {
		t.Fatalf("current filter = %+v, %v", f, ok)
	}
	if got := mock.Count("/batches"); got != 1 {
		t.Fatalf("batches requests = %d, want 1", got)
	}
}

func TestBatchFilterInput(t *testing.T) {
	m, mock := newTestModel(t, "/batch")
	drain(m, m.Init())

	if got := m.stores.Data.BatchData().Len(); got != 4 {
		t.Fatalf("first load should replay an empty filter, got %d batches", got)
	}
	if got := len(m.stores.Data.Snapshot().DeviceOptions); got != 3 {
		t.Fatalf("device options = %d, want 3", got)
	}

	drain(m, press(m, "/"))
	if !m.editing() {
		t.Fatal("/ should focus the filter input")
	}
	drain(m, press(m, "lot:L02 dev:x"))
	drain(m, press(m, "enter"))
	if !m.editing() {
		t.Fatal("a bad filter should keep the input open")
	}
	if got := mock.Count("/batches"); got != 1 {
		t.Fatalf("a bad filter should not query, got %d batch requests", got)
	}

	bv := m.activeView().(*batchView)
	bv.input.SetValue("lot:L02")
	drain(m, press(m, "enter"))
	if m.editing() {
		t.Fatal("enter with a valid filter should close the input")
	}
	data := m.stores.Data.BatchData()
	if data.Len() != 2 || data.BatchIDs[0] != "B240102-01" {
		t.Fatalf("filtered batches = %+v", data.BatchIDs)
	}
	// B240102-02 has no final frequency.
	if data.Frequencies[1] != 0 {
		t.Fatalf("missing frequency should be 0, got %v", data.Frequencies[1])
	}

	// The mock answers every initial-variance request with the same batch.
	drain(m, press(m, "i"))
	if got := m.stores.Data.Snapshot().InitialVariance.BatchID; got != "B240101-01" {
		t.Fatalf("initial variance batch = %q", got)
	}
	if got := mock.Count("/analysis/initial-variance"); got != 1 {
		t.Fatalf("initial variance requests = %d", got)
	}
}

func TestBatchLookupFailureReachesStatusLine(t *testing.T) {
	m, mock := newTestModel(t, "/batch")
	mock.FailPath("/devices", 500)
	drain(m, m.Init())

	if got := m.visibleError(); got != store.ErrInitialLoad {
		t.Fatalf("status error = %q, want %q", got, store.ErrInitialLoad)
	}
	if got := m.stores.Data.BatchData().Len(); got != 4 {
		t.Fatalf("replay should still load batches, got %d", got)
	}
}

func TestBatchRenderKeepsSelection(t *testing.T) {
	m, mock := newTestModel(t, "/batch")
	drain(m, m.Init())

	bv := m.activeView().(*batchView)
	bv.selected = 10
	if out := m.View(); out == "" {
		t.Fatal("batch view rendered nothing")
	}
	if bv.selected != 10 {
		t.Fatalf("render changed the selection to %d", bv.selected)
	}

	drain(m, press(m, "i"))
	if bv.selected != 3 {
		t.Fatalf("selection = %d, want 3", bv.selected)
	}
	reqs := mock.Requests()
	if got := reqs[len(reqs)-1].Query.Get("batchId"); got != "B240102-02" {
		t.Fatalf("initial variance batch = %q", got)
	}
}

func TestHelpPageRoundTrip(t *testing.T) {
	m, _ := newTestModel(t, "/")
	app := NewApp(NewShellPage(m), NewHelpPage(DefaultKeyMap(), routes.Default()))

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	if app.ActivePage() != HelpPageID {
		t.Fatalf("active page = %q, want help", app.ActivePage())
	}
	if view := app.View(); view == "" {
		t.Fatal("help page rendered nothing")
	}

	// Load results still reach the hidden shell.
	m.pending = 1
	app.Update(ViewDataMsg{View: routes.Dashboard})
	if m.pending != 0 {
		t.Fatalf("shell pending = %d while help is shown", m.pending)
	}

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if app.ActivePage() != ShellPageID {
		t.Fatalf("active page = %q, want shell", app.ActivePage())
	}
}

func TestViewsRender(t *testing.T) {
	m, _ := newTestModel(t, "/")
	for i := range m.views {
		drain(m, m.activateView(i))
		out := m.View()
		if out == "" {
			t.Fatalf("view %q rendered nothing", m.views[i].ID())
		}
		if v := m.views[i]; v.Err() != "" {
			t.Fatalf("view %q: %s", v.ID(), v.Err())
		}
	}
}

func TestSmallTerminal(t *testing.T) {
	m, _ := newTestModel(t, "/")
	m.width, m.height = 40, 10
	if got := m.View(); got != "Terminal too small. Resize to at least 60x20." {
		t.Fatalf("unexpected view %q", got)
	}
}
