package tui

import (
	"context"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

// dashboardView shows the overview counters, the variance trend and the
// per-device performance.
type dashboardView struct {
	st *store.DashboardStore
}

func newDashboardView(d ViewDeps) *dashboardView {
	return &dashboardView{st: d.Stores.Dashboard}
}

func (v *dashboardView) ID() routes.View { return routes.Dashboard }
func (v *dashboardView) Title() string   { return "Dashboard" }
func (v *dashboardView) Loading() bool   { return v.st.Loading() }
func (v *dashboardView) Err() string     { return v.st.Err() }

func (v *dashboardView) Load(ctx context.Context) tea.Cmd {
	return loadCmd(v.ID(), v.st.Err, func() { v.st.FetchDashboardData(ctx) })
}

func (v *dashboardView) Render(ctx ViewContext, width, height int) string {
	snap := v.st.Snapshot()
	o := snap.Overview

	stats := renderStats([]StatItem{
		{"Batches", strconv.Itoa(o.TotalBatches)},
		{"Devices", strconv.Itoa(o.TotalDevices)},
		{"Operators", strconv.Itoa(o.TotalOperators)},
		{"Avg stdev", fmtFloat(o.AvgStdev, 3)},
		{"Latest batch", ctx.Formatter.Format(o.LatestBatchTime)},
	})

	trend := make([]float64, len(snap.VarianceTrend))
	for i, p := range snap.VarianceTrend {
		trend[i] = p.AvgStdev
	}
	trendTitle := chartTitleStyle.Render("Variance trend")
	if n := len(snap.VarianceTrend); n > 0 {
		trendTitle += helpStyle.Render("  " + snap.VarianceTrend[0].Date + " .. " + snap.VarianceTrend[n-1].Date)
	}

	bars := make([]BarItem, len(snap.DevicePerformance))
	for i, d := range snap.DevicePerformance {
		label := d.DeviceName
		if label == "" {
			label = d.DeviceID
		}
		bars[i] = BarItem{Label: label, Value: d.AvgStdev}
	}

	statsH := lipgloss.Height(stats)
	chartH := max(3, (height-statsH-4)/2)

	return lipgloss.JoinVertical(lipgloss.Left,
		stats,
		"",
		trendTitle,
		renderSparkline(trend, width, chartH),
		chartTitleStyle.Render("Device performance (avg stdev)"),
		renderBars(bars, width, chartH),
	)
}
