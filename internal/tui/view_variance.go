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

// varianceView lists per-batch standard deviations with summary stats.
type varianceView struct {
	st       *store.VarianceStore
	keys     KeyMap
	query    model.VarianceQuery
	selected int
}

func newVarianceView(d ViewDeps) *varianceView {
	return &varianceView{st: d.Stores.Variance, keys: DefaultKeyMap()}
}

func (v *varianceView) ID() routes.View { return routes.Variance }
func (v *varianceView) Title() string   { return "Variance" }
func (v *varianceView) Loading() bool   { return v.st.Loading() }
func (v *varianceView) Err() string     { return v.st.Err() }
func (v *varianceView) Editing() bool   { return false }

func (v *varianceView) Load(ctx context.Context) tea.Cmd {
	q := v.query
	return loadCmd(v.ID(), v.st.Err, func() { v.st.FetchVarianceData(ctx, q) })
}

func (v *varianceView) HandleKey(_ context.Context, msg tea.KeyMsg) (tea.Cmd, bool) {
	n := len(v.st.Data().Records)
	switch {
	case key.Matches(msg, v.keys.Up):
		v.selected = clamp(v.selected-1, 0, n-1)
	case key.Matches(msg, v.keys.Down):
		v.selected = clamp(v.selected+1, 0, n-1)
	case key.Matches(msg, v.keys.Enter):
		if v.selected < n {
			id := v.st.Data().Records[v.selected].BatchID
			return actionMsg(ActionMsg{Action: ActionOpenBatch, Payload: id}), false
		}
	}
	return nil, false
}

func (v *varianceView) Render(ctx ViewContext, width, height int) string {
	data := v.st.Data()
	s := data.Stats
	stats := renderStats([]StatItem{
		{"Batches", strconv.Itoa(s.Count)},
		{"Mean", fmtFloat(s.Mean, 3)},
		{"Min", fmtFloat(s.Min, 3)},
		{"Max", fmtFloat(s.Max, 3)},
	})

	rows := make([][]string, len(data.Records))
	for i, r := range data.Records {
		rows[i] = []string{r.BatchID, r.DeviceID, fmtFloat(r.Stdev, 3), ctx.Formatter.Format(r.EndTime)}
	}
	tableH := height - lipgloss.Height(stats) - 2
	v.selected = clamp(v.selected, 0, len(rows)-1)
	start, end := windowRows(len(rows), v.selected, tableH)

	return lipgloss.JoinVertical(lipgloss.Left,
		stats,
		"",
		renderTable([]string{"Batch", "Device", "Stdev", "End"}, rows[start:end], width, v.selected-start),
	)
}
