package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/normalize"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

const dateLayout = "2006-01-02"

// timelineView draws one 24h lane per device for a chosen day.
type timelineView struct {
	st    *store.TimelineStore
	keys  KeyMap
	date  time.Time
	input textinput.Model
}

func newTimelineView(d ViewDeps) *timelineView {
	in := textinput.New()
	in.Placeholder = "YYYY-MM-DD"
	in.CharLimit = 10
	now := d.Now()
	return &timelineView{
		st:    d.Stores.Timeline,
		keys:  DefaultKeyMap(),
		date:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		input: in,
	}
}

func (v *timelineView) ID() routes.View { return routes.Timeline }
func (v *timelineView) Title() string   { return "Timeline " + v.date.Format(dateLayout) }
func (v *timelineView) Loading() bool   { return v.st.Loading() }
func (v *timelineView) Err() string     { return v.st.Err() }
func (v *timelineView) Editing() bool   { return v.input.Focused() }

func (v *timelineView) Load(ctx context.Context) tea.Cmd {
	q := model.TimelineQuery{Date: v.date.Format(dateLayout)}
	return loadCmd(v.ID(), v.st.Err, func() { v.st.FetchDay(ctx, q) })
}

func (v *timelineView) HandleKey(ctx context.Context, msg tea.KeyMsg) (tea.Cmd, bool) {
	if v.input.Focused() {
		switch {
		case key.Matches(msg, v.keys.Escape):
			v.input.Blur()
			return nil, false
		case key.Matches(msg, v.keys.Enter):
			v.input.Blur()
			d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(v.input.Value()), v.date.Location())
			if err != nil {
				return actionMsg(ActionMsg{Action: ActionSetStatus, Payload: "invalid date " + v.input.Value()}), false
			}
			v.date = d
			return v.Load(ctx), true
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd, false
	}

	switch {
	case key.Matches(msg, v.keys.Edit):
		v.input.SetValue(v.date.Format(dateLayout))
		v.input.CursorEnd()
		return v.input.Focus(), false
	case key.Matches(msg, v.keys.Left):
		v.date = v.date.AddDate(0, 0, -1)
		return v.Load(ctx), true
	case key.Matches(msg, v.keys.Right):
		v.date = v.date.AddDate(0, 0, 1)
		return v.Load(ctx), true
	}
	return nil, false
}

func (v *timelineView) Render(ctx ViewContext, width, height int) string {
	day := v.st.Day()

	var lines []string
	if v.input.Focused() {
		lines = append(lines, "Date: "+v.input.View())
	}

	labelW := 8
	laneW := max(24, width-labelW-2)
	lines = append(lines, strings.Repeat(" ", labelW+1)+hourRuler(laneW))

	if len(day.Devices) == 0 {
		lines = append(lines, helpStyle.Render("No activity on "+v.date.Format(dateLayout)))
	}
	for _, dev := range day.Devices {
		lane := laneFor(dev.Segments, v.date, ctx.Formatter, laneW)
		lines = append(lines, padRight(truncate(dev.DeviceID, labelW), labelW)+" "+lane)
	}
	lines = append(lines, "", helpStyle.Render("█ batch  ▒ grid   ←/→ day  / date"))

	return lipgloss.NewStyle().MaxHeight(height).Render(strings.Join(lines, "\n"))
}

// hourRuler marks every sixth hour across width columns.
func hourRuler(width int) string {
	r := []rune(strings.Repeat(" ", width))
	for _, h := range []int{0, 6, 12, 18} {
		label := []rune(time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15h"))
		col := h * width / 24
		for i, c := range label {
			if col+i < width {
				r[col+i] = c
			}
		}
	}
	return helpStyle.Render(string(r))
}

// laneFor maps segments of one device onto a width-column lane for day.
func laneFor(segs []model.TimelineSegment, day time.Time, f normalize.Formatter, width int) string {
	lane := []rune(strings.Repeat("·", width))
	dayStart := day
	dayLen := 24 * time.Hour

	col := func(t time.Time) int {
		c := int(t.Sub(dayStart) * time.Duration(width) / dayLen)
		return clamp(c, 0, width-1)
	}

	for _, s := range segs {
		start, ok := f.Parse(s.Start)
		if !ok {
			continue
		}
		end, ok := f.Parse(s.End)
		if !ok || end.Before(start) {
			end = start
		}
		mark := '█'
		if s.Kind == "grid" {
			mark = '▒'
		}
		for c := col(start); c <= col(end); c++ {
			lane[c] = mark
		}
	}
	return lipgloss.NewStyle().Foreground(ColorBlue).Render(string(lane))
}
