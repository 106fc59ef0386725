package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const errorDisplayDuration = 30 * time.Second

// Update handles messages
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouseEvent(msg)

	case ActionMsg:
		switch msg.Action {
		case ActionNavigate:
			if path, ok := msg.Payload.(string); ok {
				return m, m.navigate(path)
			}
		case ActionSetStatus:
			if s, ok := msg.Payload.(string); ok {
				m.setStatus(s)
			}
		case ActionOpenBatch:
			if id, ok := msg.Payload.(string); ok {
				return m, m.openBatch(id)
			}
		}
		return m, nil

	case ViewDataMsg:
		m.finish()
		m.applyViewData(msg)
		return m, nil

	case SpinnerTickMsg:
		return m.handleSpinnerTick()
	}

	return m, nil
}

// openBatch shows batch id in the view that implements batchOpener.
func (m *DashboardModel) openBatch(id string) tea.Cmd {
	for i, v := range m.views {
		bo, ok := v.(batchOpener)
		if !ok {
			continue
		}
		m.activeViewIdx = i
		m.sidebarCursor = i
		m.activeSection = SectionContent
		m.loaded[v.ID()] = true
		return m.track(bo.Open(m.ctx, id))
	}
	return nil
}

// applyViewData surfaces store errors on the status line; they auto-clear
// on the next successful load.
func (m *DashboardModel) applyViewData(msg ViewDataMsg) {
	if msg.Err != "" {
		m.lastError = msg.Err
		m.lastErrorAt = time.Now()
		m.logger.Debug("view load failed", zap.String("view", string(msg.View)), zap.String("error", msg.Err))
		return
	}
	m.lastError = ""
}

// visibleError returns the last error while it is fresh.
func (m *DashboardModel) visibleError() string {
	if m.lastError == "" || time.Since(m.lastErrorAt) > errorDisplayDuration {
		return ""
	}
	return m.lastError
}

// handleMouseEvent processes mouse interactions
func (m *DashboardModel) handleMouseEvent(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		return m.handleMouseClick(msg.X, msg.Y)
	case tea.MouseButtonWheelUp:
		return m, m.forwardKey(tea.KeyMsg{Type: tea.KeyUp})
	case tea.MouseButtonWheelDown:
		return m, m.forwardKey(tea.KeyMsg{Type: tea.KeyDown})
	}
	return m, nil
}

// handleMouseClick focuses the sidebar or the content area.
func (m *DashboardModel) handleMouseClick(x, y int) (tea.Model, tea.Cmd) {
	if m.width <= 0 || m.height <= 0 {
		return m, nil
	}

	if m.sidebarVisible && x < sidebarWidth {
		m.activeSection = SectionSidebar
		if idx, ok := m.sidebarCursorAtMouseRow(y); ok {
			m.sidebarCursor = idx
			return m, m.activateSidebarCursor()
		}
		return m, nil
	}

	m.activeSection = SectionContent
	return m, nil
}

// forwardKey hands a synthetic key to the active view.
func (m *DashboardModel) forwardKey(k tea.KeyMsg) tea.Cmd {
	if m.activeSection == SectionSidebar {
		if k.Type == tea.KeyUp {
			return m.moveSidebarCursor(-1)
		}
		return m.moveSidebarCursor(1)
	}
	return m.sendToView(k)
}

// sendToView hands k to the active view and tracks any store action it
// starts.
func (m *DashboardModel) sendToView(k tea.KeyMsg) tea.Cmd {
	kh, ok := m.activeView().(KeyHandler)
	if !ok {
		return nil
	}
	cmd, load := kh.HandleKey(m.ctx, k)
	if load {
		return m.track(cmd)
	}
	return cmd
}
