package tui

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

// scoreRow is one device or operator line.
type scoreRow struct {
	ID, Name string
	Batches  int
	AvgStdev float64
}

// renderScores draws the score table above the trend sparkline.
func renderScores(kind string, rows []scoreRow, trend []model.TrendPoint, selected, width, height int) string {
	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.ID, r.Name, strconv.Itoa(r.Batches), fmtFloat(r.AvgStdev, 3)}
	}
	values := make([]float64, len(trend))
	for i, p := range trend {
		values[i] = p.AvgStdev
	}

	chartH := max(3, height/3)
	start, end := windowRows(len(table), selected, height-chartH-3)
	return lipgloss.JoinVertical(lipgloss.Left,
		renderTable([]string{kind, "Name", "Batches", "Avg stdev"}, table[start:end], width, selected-start),
		"",
		chartTitleStyle.Render("Trend"),
		renderSparkline(values, width, chartH),
	)
}

// deviceView lists device variance scores. Enter narrows to one device.
type deviceView struct {
	st       *store.DeviceStore
	keys     KeyMap
	query    model.DeviceQuery
	selected int
}

func newDeviceView(d ViewDeps) *deviceView {
	return &deviceView{st: d.Stores.Device, keys: DefaultKeyMap()}
}

func (v *deviceView) ID() routes.View { return routes.Device }
func (v *deviceView) Title() string {
	if v.query.DeviceID != "" {
		return "Device " + v.query.DeviceID
	}
	return "Devices"
}
func (v *deviceView) Loading() bool { return v.st.Loading() }
func (v *deviceView) Err() string   { return v.st.Err() }
func (v *deviceView) Editing() bool { return false }

func (v *deviceView) Load(ctx context.Context) tea.Cmd {
	q := v.query
	return loadCmd(v.ID(), v.st.Err, func() { v.st.FetchDeviceData(ctx, q) })
}

func (v *deviceView) HandleKey(ctx context.Context, msg tea.KeyMsg) (tea.Cmd, bool) {
	devices := v.st.Data().Devices
	switch {
	case key.Matches(msg, v.keys.Up):
		v.selected = clamp(v.selected-1, 0, len(devices)-1)
	case key.Matches(msg, v.keys.Down):
		v.selected = clamp(v.selected+1, 0, len(devices)-1)
	case key.Matches(msg, v.keys.Enter):
		if v.selected < len(devices) && v.query.DeviceID == "" {
			v.query.DeviceID = devices[v.selected].DeviceID
			v.selected = 0
			return v.Load(ctx), true
		}
	case key.Matches(msg, v.keys.Escape):
		if v.query.DeviceID != "" {
			v.query.DeviceID = ""
			return v.Load(ctx), true
		}
	}
	return nil, false
}

func (v *deviceView) Render(_ ViewContext, width, height int) string {
	data := v.st.Data()
	rows := make([]scoreRow, len(data.Devices))
	for i, d := range data.Devices {
		rows[i] = scoreRow{ID: d.DeviceID, Name: d.DeviceName, Batches: d.BatchCount, AvgStdev: d.AvgStdev}
	}
	v.selected = clamp(v.selected, 0, len(rows)-1)
	return renderScores("Device", rows, data.Trend, v.selected, width, height)
}

// operatorView lists operator variance scores. Enter narrows to one operator.
type operatorView struct {
	st       *store.OperatorStore
	keys     KeyMap
	query    model.OperatorQuery
	selected int
}

func newOperatorView(d ViewDeps) *operatorView {
	return &operatorView{st: d.Stores.Operator, keys: DefaultKeyMap()}
}

func (v *operatorView) ID() routes.View { return routes.Operator }
func (v *operatorView) Title() string {
	if v.query.OperatorID != "" {
		return "Operator " + v.query.OperatorID
	}
	return "Operators"
}
func (v *operatorView) Loading() bool { return v.st.Loading() }
func (v *operatorView) Err() string   { return v.st.Err() }
func (v *operatorView) Editing() bool { return false }

func (v *operatorView) Load(ctx context.Context) tea.Cmd {
	q := v.query
	return loadCmd(v.ID(), v.st.Err, func() { v.st.FetchOperatorData(ctx, q) })
}

func (v *operatorView) HandleKey(ctx context.Context, msg tea.KeyMsg) (tea.Cmd, bool) {
	ops := v.st.Data().Operators
	switch {
	case key.Matches(msg, v.keys.Up):
		v.selected = clamp(v.selected-1, 0, len(ops)-1)
	case key.Matches(msg, v.keys.Down):
		v.selected = clamp(v.selected+1, 0, len(ops)-1)
	case key.Matches(msg, v.keys.Enter):
		if v.selected < len(ops) && v.query.OperatorID == "" {
			v.query.OperatorID = ops[v.selected].OperatorID
			v.selected = 0
			return v.Load(ctx), true
		}
	case key.Matches(msg, v.keys.Escape):
		if v.query.OperatorID != "" {
			v.query.OperatorID = ""
			return v.Load(ctx), true
		}
	}
	return nil, false
}

func (v *operatorView) Render(_ ViewContext, width, height int) string {
	data := v.st.Data()
	rows := make([]scoreRow, len(data.Operators))
	for i, o := range data.Operators {
		rows[i] = scoreRow{ID: o.OperatorID, Name: o.OperatorName, Batches: o.BatchCount, AvgStdev: o.AvgStdev}
	}
	v.selected = clamp(v.selected, 0, len(rows)-1)
	return renderScores("Operator", rows, data.Trend, v.selected, width, height)
}
