package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 120 * time.Millisecond

// renderLoadingPlaceholder renders an animated loading indicator.
// The frame is selected based on the current time so it animates on re-render.
func renderLoadingPlaceholder(width, height int) string {
	frame := spinnerFrames[time.Now().UnixMilli()/120%int64(len(spinnerFrames))]

	loadingStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true)

	text := loadingStyle.Render(frame + " Loading...")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

// SpinnerTickMsg triggers a re-render for loading spinners.
type SpinnerTickMsg struct{}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(_ time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}

// track counts cmd as an outstanding store action and starts the spinner.
// A nil cmd is returned unchanged.
func (m *DashboardModel) track(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	m.pending++
	return tea.Batch(cmd, m.startSpinnerIfNeeded())
}

// finish records that one tracked action reported back.
func (m *DashboardModel) finish() {
	if m.pending > 0 {
		m.pending--
	}
}

// handleSpinnerTick re-schedules spinner ticks while any action is pending.
func (m *DashboardModel) handleSpinnerTick() (tea.Model, tea.Cmd) {
	if m.anyLoading() {
		return m, spinnerTick()
	}
	m.spinning = false
	return m, nil
}

// anyLoading returns true if a tracked action is in flight.
func (m *DashboardModel) anyLoading() bool {
	return m.pending > 0
}

// startSpinnerIfNeeded schedules a spinner tick unless one is already running.
func (m *DashboardModel) startSpinnerIfNeeded() tea.Cmd {
	if m.spinning || !m.anyLoading() {
		return nil
	}
	m.spinning = true
	return spinnerTick()
}
