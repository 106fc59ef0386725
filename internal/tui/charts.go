package tui

import (
	"slices"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
)

// renderSparkline draws values as a sparkline. Values are shifted so that
// small variations around a large baseline stay visible.
func renderSparkline(values []float64, width, height int) string {
	if len(values) == 0 {
		return helpStyle.Render("No data available")
	}
	width = max(width, 10)
	height = max(height, 1)

	shifted := liftToFloor(values)
	if len(shifted) > width {
		shifted = shifted[len(shifted)-width:]
	}

	sl := sparkline.New(width, height,
		sparkline.WithStyle(lipgloss.NewStyle().Foreground(ColorBlue)),
	)
	sl.PushAll(shifted)
	sl.Draw()
	return sl.View()
}

// liftToFloor subtracts a floor just below the minimum.
func liftToFloor(values []float64) []float64 {
	lo, hi := slices.Min(values), slices.Max(values)
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	floor := lo - pad
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - floor
	}
	return out
}

// BarItem is one labeled bar.
type BarItem struct {
	Label string
	Value float64
}

// renderBars draws one bar per item, worst (highest) values in orange.
func renderBars(items []BarItem, width, height int) string {
	if len(items) == 0 {
		return helpStyle.Render("No data available")
	}
	height = max(height, 4)
	width = max(width, 20)

	barWidth := max(1, min(6, (width/len(items))-1))
	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barWidth),
	)

	hi := 0.0
	for _, it := range items {
		hi = max(hi, it.Value)
	}
	normal := lipgloss.NewStyle().Foreground(ColorBlue).Background(ColorBlue)
	worst := lipgloss.NewStyle().Foreground(ColorOrange).Background(ColorOrange)

	for _, it := range items {
		style := normal
		if it.Value == hi && hi > 0 {
			style = worst
		}
		bc.Push(barchart.BarData{
			Label: truncate(it.Label, barWidth),
			Values: []barchart.BarValue{
				{Name: it.Label, Value: it.Value, Style: style},
			},
		})
	}
	bc.Draw()
	return bc.View()
}
