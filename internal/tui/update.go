package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"codepair/internal/events"
	"codepair/internal/services"
)

func (m *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(clamp(m.width-2, 20, 200))
		m.viewport.Width = m.width
		m.viewport.Height = clamp(m.height-chromeHeight, 4, 120)
		m.updateMarkdownRenderer()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case transcriptMsg:
		m.syncRunning()
		if m.active == paneChat {
			m.refreshViewport()
		}
		return m, waitUpdate(m.updates)

	case engineEventMsg:
		m.setStatus(msg.event.Type, msg.event.Message)
		if msg.topic == events.TopicReview && m.active == paneReview {
			m.refreshViewport()
		}
		return m, waitEvent(m.eventCh)

	case priorMsg:
		if msg.err != nil {
			m.logger.Warn("loading stored transcript failed", zap.Error(msg.err))
			return m, nil
		}
		m.prior = msg.entries
		m.refreshViewport()
		return m, nil

	case sendFailedMsg:
		m.running = false
		m.setStatus(events.EventError, services.FriendlyMessage(msg.err))
		return m, nil

	case reviewActedMsg:
		if msg.err != nil {
			m.setStatus(events.EventError, msg.err.Error())
		} else {
			m.setStatus(events.EventSuccess, msg.note)
		}
		m.clampReviewIndex()
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Shell) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		if m.running {
			m.session.Stop()
			m.setStatus(events.EventWarn, "Interrupting the current turn")
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyTab:
		if m.active == paneChat {
			m.active = paneReview
			m.input.Blur()
			m.clampReviewIndex()
		} else {
			m.active = paneChat
			m.input.Focus()
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.active == paneReview {
		return m.handleReviewKey(msg)
	}

	if msg.Type == tea.KeyEnter {
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.running {
			m.setStatus(events.EventWarn, "A turn is already streaming, Esc to interrupt")
			return m, nil
		}
		m.input.Reset()
		m.running = true
		m.setStatus(events.EventInfo, "Waiting for the agent")
		return m, tea.Batch(sendMessage(m.session, text), m.spin.Tick)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Shell) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	orch := m.session.Orchestrator()
	edits := orch.State().Edits

	switch msg.String() {
	case "up", "k":
		m.reviewIndex = clamp(m.reviewIndex-1, 0, maxIndex(len(edits)))
		m.markActive(edits)
		m.refreshViewport()
		return m, nil
	case "down", "j":
		m.reviewIndex = clamp(m.reviewIndex+1, 0, maxIndex(len(edits)))
		m.markActive(edits)
		m.refreshViewport()
		return m, nil
	case "a":
		if id, ok := m.selectedEdit(edits); ok {
			return m, acceptEdit(orch, id)
		}
		return m, nil
	case "r":
		if id, ok := m.selectedEdit(edits); ok {
			return m, rejectEdit(orch, id)
		}
		return m, nil
	case "A":
		if len(edits) == 0 {
			return m, nil
		}
		m.setStatus(events.EventInfo, "Applying all pending edits")
		return m, acceptAll(orch)
	case "R":
		if len(edits) == 0 {
			return m, nil
		}
		return m, rejectAll(orch)
	case "c":
		return m, clearCompleted(orch)
	}
	return m, nil
}

// syncRunning derives the streaming flag from the newest bubble.
func (m *Shell) syncRunning() {
	bubbles := m.session.Accumulator().Bubbles()
	running := false
	if len(bubbles) > 0 {
		running = bubbles[len(bubbles)-1].IsStreaming
	}
	m.running = running
}

func (m *Shell) refreshViewport() {
	var content string
	if m.active == paneReview {
		content = m.renderReview()
	} else {
		content = m.renderTranscript()
	}
	m.viewport.SetContent(content)
	if m.active == paneChat {
		m.viewport.GotoBottom()
	}
}

func maxIndex(n int) int {
	if n == 0 {
		return 0
	}
	return n - 1
}
