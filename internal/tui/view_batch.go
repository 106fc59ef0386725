package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/query"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

// batchView filters batches, charts their final frequencies and shows the
// per-round curve of the selected batch.
type batchView struct {
	st       *store.DataStore
	keys     KeyMap
	input    textinput.Model
	selected int
	inputErr string
}

func newBatchView(d ViewDeps) *batchView {
	in := textinput.New()
	in.Placeholder = "lot:L01  ids:B1,B2  device:D01 op:O1 from:2024-01-01 to:2024-01-31 fmin:32760 limit:50"
	in.CharLimit = 400
	return &batchView{st: d.Stores.Data, keys: DefaultKeyMap(), input: in}
}

func (v *batchView) ID() routes.View { return routes.Batch }
func (v *batchView) Title() string   { return "Batches" }
func (v *batchView) Loading() bool   { return v.st.Loading() }
func (v *batchView) Err() string     { return v.st.Err() }
func (v *batchView) Editing() bool   { return v.input.Focused() }

// Load fills the lookups, then replays the last filter if nothing is shown.
// The replay clears the store error, so a lookup failure is reported unless
// the replay failed too.
func (v *batchView) Load(ctx context.Context) tea.Cmd {
	var lookupErr string
	errOf := func() string {
		if err := v.st.Err(); err != "" {
			return err
		}
		return lookupErr
	}
	return loadCmd(v.ID(), errOf, func() {
		v.st.InitialLoad(ctx)
		lookupErr = v.st.Err()
		v.st.ReloadLastData(ctx)
	})
}

// apply fetches f and then the rounds of every returned batch.
func (v *batchView) apply(ctx context.Context, f model.Filter) tea.Cmd {
	v.selected = 0
	return loadCmd(v.ID(), v.st.Err, func() {
		v.st.FetchBatchData(ctx, f)
		v.st.FetchBatchRounds(ctx, v.st.BatchData().BatchIDs)
	})
}

// Open shows a single batch.
func (v *batchView) Open(ctx context.Context, batchID string) tea.Cmd {
	return v.apply(ctx, model.Filter{BatchIDs: []string{batchID}})
}

func (v *batchView) selectedID() (string, bool) {
	ids := v.st.BatchData().BatchIDs
	if v.selected < 0 || v.selected >= len(ids) {
		return "", false
	}
	return ids[v.selected], true
}

func (v *batchView) HandleKey(ctx context.Context, msg tea.KeyMsg) (tea.Cmd, bool) {
	if v.input.Focused() {
		switch {
		case key.Matches(msg, v.keys.Escape):
			v.input.Blur()
			v.inputErr = ""
			return nil, false
		case key.Matches(msg, v.keys.Enter):
			f, err := ParseFilter(v.input.Value())
			if err != nil {
				v.inputErr = err.Error()
				return nil, false
			}
			v.inputErr = ""
			v.input.Blur()
			return v.apply(ctx, f), true
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd, false
	}

	n := v.st.BatchData().Len()
	v.selected = clamp(v.selected, 0, n-1)
	switch {
	case key.Matches(msg, v.keys.Edit):
		if f, ok := v.st.CurrentFilter(); ok {
			v.input.SetValue(FormatFilter(f))
			v.input.CursorEnd()
		}
		return v.input.Focus(), false
	case key.Matches(msg, v.keys.Up):
		v.selected = clamp(v.selected-1, 0, n-1)
	case key.Matches(msg, v.keys.Down):
		v.selected = clamp(v.selected+1, 0, n-1)
	case key.Matches(msg, v.keys.Inspect):
		id, ok := v.selectedID()
		if !ok {
			return nil, false
		}
		return loadCmd(v.ID(), v.st.Err, func() {
			v.st.FetchInitialVariance(ctx, id, model.DefaultRoundCount)
		}), true
	}
	return nil, false
}

func (v *batchView) Render(ctx ViewContext, width, height int) string {
	snap := v.st.Snapshot()
	data := snap.BatchData

	var header []string
	if v.input.Focused() {
		header = append(header, "Filter: "+v.input.View())
		if v.inputErr != "" {
			header = append(header, errorStyle.Render(v.inputErr))
		}
	} else {
		desc := "(none)"
		mode := query.ModeCombined
		if snap.CurrentFilter != nil {
			desc = FormatFilter(*snap.CurrentFilter)
			if desc == "" {
				desc = "(all)"
			}
			mode = query.ModeOf(*snap.CurrentFilter)
		}
		header = append(header, helpStyle.Render(fmt.Sprintf("filter [%s] %s   / edit  i initial variance", mode, desc)))
	}
	header = append(header, helpStyle.Render(fmt.Sprintf("%d batches total  %d devices  %d operators  showing %d",
		snap.TotalBatches, len(snap.DeviceOptions), len(snap.OperatorOptions), data.Len())))

	if data.Len() == 0 {
		header = append(header, "", helpStyle.Render("No batches match the filter"))
		return strings.Join(header, "\n")
	}

	chartH := 3
	spark := renderSparkline(data.Frequencies, width, chartH)

	rows := make([][]string, data.Len())
	for i, id := range data.BatchIDs {
		rows[i] = []string{id, fmtFloat(data.Frequencies[i], 2), fmtFloat(data.Stdevs[i], 3), data.Timestamps[i]}
	}
	sel := clamp(v.selected, 0, len(rows)-1)

	detail := v.renderDetail(snap, sel)
	tableH := height - len(header) - chartH - lipgloss.Height(detail) - 3
	start, end := windowRows(len(rows), sel, max(3, tableH))

	return lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(header, "\n"),
		spark,
		renderTable([]string{"Batch", "Frequency", "Stdev", "Time"}, rows[start:end], width, sel-start),
		"",
		detail,
	)
}

// renderDetail shows the rounds and initial variance of batch sel.
func (v *batchView) renderDetail(snap store.DataSnapshot, sel int) string {
	if sel < 0 || sel >= snap.BatchData.Len() {
		return ""
	}
	id := snap.BatchData.BatchIDs[sel]
	rounds := snap.Rounds[id]

	parts := []string{chartTitleStyle.Render("Rounds of " + id)}
	if len(rounds) == 0 {
		parts = append(parts, helpStyle.Render("no rounds"))
	} else {
		cells := make([]string, len(rounds))
		for i, r := range rounds {
			cells[i] = fmt.Sprintf("#%d %s±%s", r.Count, fmtFloat(r.Resonant, 1), fmtFloat(r.Stdev, 2))
		}
		parts = append(parts, strings.Join(cells, "  "))
	}

	if iv := snap.InitialVariance; iv.BatchID == id {
		parts = append(parts, renderStats([]StatItem{
			{"Initial stdev", fmtFloat(iv.InitialStdev, 3)},
			{"Final stdev", fmtFloat(iv.FinalStdev, 3)},
			{"Rounds", strconv.Itoa(iv.RoundCount)},
		}))
	}
	return strings.Join(parts, "\n")
}
