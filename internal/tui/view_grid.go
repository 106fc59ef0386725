package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

const gridPageSize = 20

// gridView pages through device-level grid records.
type gridView struct {
	st       *store.GridStore
	keys     KeyMap
	offset   int
	selected int
}

func newGridView(d ViewDeps) *gridView {
	return &gridView{st: d.Stores.Grid, keys: DefaultKeyMap()}
}

func (v *gridView) ID() routes.View { return routes.Grid }
func (v *gridView) Title() string   { return "Grid" }
func (v *gridView) Loading() bool   { return v.st.Loading() }
func (v *gridView) Err() string     { return v.st.Err() }
func (v *gridView) Editing() bool   { return false }

func (v *gridView) query() model.GridQuery {
	return model.GridQuery{Limit: gridPageSize, Offset: v.offset}
}

func (v *gridView) Load(ctx context.Context) tea.Cmd {
	q := v.query()
	return loadCmd(v.ID(), v.st.Err, func() {
		v.st.FetchGridOptions(ctx)
		v.st.FetchGridData(ctx, q)
	})
}

func (v *gridView) fetchPage(ctx context.Context) tea.Cmd {
	q := v.query()
	return loadCmd(v.ID(), v.st.Err, func() { v.st.FetchGridData(ctx, q) })
}

func (v *gridView) HandleKey(ctx context.Context, msg tea.KeyMsg) (tea.Cmd, bool) {
	page := v.st.Page()
	switch {
	case key.Matches(msg, v.keys.Up):
		v.selected = clamp(v.selected-1, 0, len(page.Records)-1)
	case key.Matches(msg, v.keys.Down):
		v.selected = clamp(v.selected+1, 0, len(page.Records)-1)
	case key.Matches(msg, v.keys.Right):
		if v.offset+gridPageSize < page.Total {
			v.offset += gridPageSize
			v.selected = 0
			return v.fetchPage(ctx), true
		}
	case key.Matches(msg, v.keys.Left):
		if v.offset > 0 {
			v.offset = max(0, v.offset-gridPageSize)
			v.selected = 0
			return v.fetchPage(ctx), true
		}
	}
	return nil, false
}

func (v *gridView) Render(ctx ViewContext, width, height int) string {
	page := v.st.Page()
	opts := v.st.Options()

	rows := make([][]string, len(page.Records))
	for i, r := range page.Records {
		rows[i] = []string{
			strconv.Itoa(r.GridID),
			r.DeviceID,
			r.OperatorID,
			strconv.Itoa(r.GridMod),
			strconv.Itoa(r.EndWay),
			ctx.Formatter.Format(r.StartTime),
			fmtFloat(r.DurationSec, 0) + "s",
		}
	}

	pages := max(1, (page.Total+gridPageSize-1)/gridPageSize)
	footer := helpStyle.Render(fmt.Sprintf("page %d/%d  (%d records)  ←/→ page",
		v.offset/gridPageSize+1, pages, page.Total))
	optLine := helpStyle.Render(fmt.Sprintf("grid mods %v  end ways %v", opts.GridMods, opts.EndWays))

	v.selected = clamp(v.selected, 0, len(rows)-1)
	start, end := windowRows(len(rows), v.selected, height-4)
	return lipgloss.JoinVertical(lipgloss.Left,
		optLine,
		renderTable([]string{"Grid", "Device", "Operator", "Mod", "End", "Start", "Duration"}, rows[start:end], width, v.selected-start),
		footer,
	)
}
