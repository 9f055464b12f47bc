package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"codepair/internal/events"
	"codepair/internal/models"
	"codepair/internal/services"
)

// pane selects which view owns the viewport and the keyboard.
type pane int

const (
	paneChat pane = iota
	paneReview
)

// Options wires a live session into the shell program.
type Options struct {
	Session *services.Session
	Emitter *services.EventEmitterService
	Updates <-chan struct{} // fed by the session's transcript callback
	Logger  *zap.Logger
}

// Shell is the bubbletea model for one pairing session: a chat pane over the
// streaming transcript and a review pane over the pending edit ledger.
type Shell struct {
	session *services.Session
	emitter *services.EventEmitterService
	logger  *zap.Logger

	input    textarea.Model
	viewport viewport.Model
	spin     spinner.Model

	width  int
	height int
	active pane

	prior       []*models.TranscriptEntry
	running     bool
	reviewIndex int

	status      string
	statusLevel events.EventType

	md      *glamour.TermRenderer
	mdWidth int

	updates  <-chan struct{}
	eventCh  chan engineEventMsg
	quitting bool
}

func New(opts Options) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ta := textarea.New()
	ta.Placeholder = "Describe the change you want... (Enter to send)"
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.SetWidth(80)
	ta.CharLimit = 4000
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorActive))

	vp := viewport.New(80, 20)

	sh := &Shell{
		session:     opts.Session,
		emitter:     opts.Emitter,
		logger:      logger.Named("tui"),
		input:       ta,
		viewport:    vp,
		spin:        sp,
		active:      paneChat,
		status:      "Ready",
		statusLevel: events.EventInfo,
		updates:     opts.Updates,
		eventCh:     make(chan engineEventMsg, 64),
	}
	sh.updateMarkdownRenderer()
	return sh
}

// Run drives the program until the user quits. Engine events stream into
// the program for the lifetime of the run.
func Run(opts Options) error {
	sh := New(opts)
	p := tea.NewProgram(sh, tea.WithAltScreen())

	if sh.emitter != nil {
		sh.emitter.SetSink(func(name string, evt events.EngineEvent) {
			select {
			case sh.eventCh <- engineEventMsg{topic: name, event: evt}:
			default:
				// the status line is best effort; drop under burst
			}
		})
		sh.emitter.StartStream()
		defer sh.emitter.StopStream()
	}

	_, err := p.Run()
	return err
}

func (m *Shell) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spin.Tick,
		waitUpdate(m.updates),
		waitEvent(m.eventCh),
		loadPrior(m.session),
	)
}

// setStatus replaces the status line. Errors stick until the next event.
func (m *Shell) setStatus(level events.EventType, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m.status = text
	m.statusLevel = level
}

func (m *Shell) updateMarkdownRenderer() {
	contentWidth := m.viewport.Width - 2
	if contentWidth < 20 {
		contentWidth = 78
	}
	if m.md != nil && m.mdWidth == contentWidth {
		return
	}
	m.mdWidth = contentWidth
	m.md = newMarkdownRenderer(contentWidth)
}

func newMarkdownRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
