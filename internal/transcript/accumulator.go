// Package transcript assembles the live conversation view: one growing
// response bubble per agent turn, fed by dispatcher callbacks. When a turn
// produces edit proposals, the accumulator hands them to the review
// orchestrator; that hand-off is the only place the transcript and review
// subsystems touch.
package transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codepair/internal/edit"
	"codepair/internal/protocol"
	"codepair/internal/review"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Bubble is one transcript entry. While IsStreaming is true the bubble is
// the turn's single open accumulation target.
type Bubble struct {
	ID          string
	Role        Role
	Text        string
	Code        string
	Intent      string
	Changes     []string
	IsStreaming bool
}

// turnMode separates the two text-update styles. Chunk turns append,
// explanation turns replace; the first update fixes the mode and updates of
// the other style are dropped for the rest of the turn.
type turnMode int

const (
	modeUnset turnMode = iota
	modeAppend
	modeReplace
)

// EditSink receives forwarded edit instructions. The review orchestrator is
// the production implementation.
type EditSink interface {
	AddEditsFromInstructions(ctx context.Context, instrs []edit.Instruction, resolve review.ContentResolver, explanation string) int
}

// Accumulator owns all per-turn bookkeeping the dispatcher deliberately
// refuses to hold: the open bubble, its accumulation mode, and the change
// log of the current turn.
type Accumulator struct {
	mu      sync.Mutex
	bubbles []Bubble
	openID  string
	mode    turnMode

	sink     EditSink
	resolve  review.ContentResolver
	onUpdate func()
	logger   *zap.Logger
}

func NewAccumulator(sink EditSink, resolve review.ContentResolver, onUpdate func(), logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{
		sink:     sink,
		resolve:  resolve,
		onUpdate: onUpdate,
		logger:   logger,
	}
}

// Handlers binds the accumulator to a dispatcher. ctx scopes the forwarded
// proposals (session key, cancellation) for the lifetime of the binding.
func (a *Accumulator) Handlers(ctx context.Context) protocol.Handlers {
	return protocol.Handlers{
		TurnStarted: a.StartTurn,
		Fragment:    a.AppendFragment,
		CodeAction:  func(m protocol.CodeActionResult) { a.ApplyCodeAction(ctx, m) },
		Debug:       a.ApplyDebugResult,
		Workflow:    a.ApplyWorkflowResult,
		Explanation: a.ApplyExplanation,
		DoneFlat:    a.CompleteFlat,
		DoneRich:    a.CompleteRich,
		TurnFailed:  a.FailTurn,
	}
}

// Bubbles returns a snapshot of the transcript.
func (a *Accumulator) Bubbles() []Bubble {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Bubble, len(a.bubbles))
	copy(out, a.bubbles)
	return out
}

// AddUserMessage appends the user's side of the conversation as a closed
// bubble.
func (a *Accumulator) AddUserMessage(text string) {
	a.mu.Lock()
	a.bubbles = append(a.bubbles, Bubble{
		ID:   uuid.NewString(),
		Role: RoleUser,
		Text: text,
	})
	a.mu.Unlock()
	a.notify()
}

// StartTurn opens the turn's bubble with empty text. A still-open bubble
// from an unterminated previous turn is finalized first so at most one
// bubble streams at a time.
func (a *Accumulator) StartTurn(start protocol.TurnStart) {
	a.mu.Lock()
	if a.openID != "" {
		a.logger.Warn("turn started while previous turn still open", zap.String("bubble", a.openID))
		a.closeLocked()
	}
	b := Bubble{
		ID:          uuid.NewString(),
		Role:        RoleAssistant,
		Intent:      start.Intent,
		IsStreaming: true,
	}
	a.bubbles = append(a.bubbles, b)
	a.openID = b.ID
	a.mode = modeUnset
	a.mu.Unlock()
	a.notify()
}

// AppendFragment concatenates one chunk onto the open bubble, in arrival
// order, exactly once.
func (a *Accumulator) AppendFragment(text string) {
	a.mu.Lock()
	b := a.openLocked()
	if b == nil || a.mode == modeReplace {
		a.mu.Unlock()
		return
	}
	a.mode = modeAppend
	b.Text += text
	a.mu.Unlock()
	a.notify()
}

// ApplyExplanation replaces the open bubble's text wholesale.
func (a *Accumulator) ApplyExplanation(res protocol.ExplanationResult) {
	a.replaceText(res.Text)
}

// ApplyCodeAction forwards the proposed edits into the review sink and
// renders the turn's change descriptions into the bubble.
func (a *Accumulator) ApplyCodeAction(ctx context.Context, res protocol.CodeActionResult) {
	explanation := res.Explanation
	if explanation == "" {
		explanation = res.Summary
	}

	changes := make([]string, 0, len(res.Edits))
	for _, in := range res.Edits {
		changes = append(changes, in.Describe())
	}

	added := 0
	if a.sink != nil && len(res.Edits) > 0 {
		added = a.sink.AddEditsFromInstructions(ctx, res.Edits, a.resolve, explanation)
	}
	a.logger.Info("code action received",
		zap.Int("proposed", len(res.Edits)),
		zap.Int("added", added))

	a.mu.Lock()
	if b := a.openLocked(); b != nil && a.mode != modeAppend {
		a.mode = modeReplace
		b.Changes = append(b.Changes, changes...)
		b.Text = codeActionText(explanation, b.Changes)
	}
	a.mu.Unlock()
	a.notify()
}

// ApplyDebugResult renders a diagnosis result.
func (a *Accumulator) ApplyDebugResult(res protocol.DebugResult) {
	var sb strings.Builder
	sb.WriteString(res.Diagnosis)
	for _, f := range res.Findings {
		sb.WriteString("\n- ")
		sb.WriteString(f)
	}
	if res.FixSuggestion != "" {
		sb.WriteString("\n\nSuggested fix: ")
		sb.WriteString(res.FixSuggestion)
	}
	a.replaceText(sb.String())
}

// ApplyWorkflowResult renders a workflow result.
func (a *Accumulator) ApplyWorkflowResult(res protocol.WorkflowResult) {
	var sb strings.Builder
	sb.WriteString(res.Summary)
	for _, s := range res.Steps {
		sb.WriteString(fmt.Sprintf("\n- %s: %s", s.Name, s.Status))
		if s.Detail != "" {
			sb.WriteString(" (" + s.Detail + ")")
		}
	}
	a.replaceText(sb.String())
}

// CompleteFlat finalizes a flat-generation turn: the completion text is
// authoritative when present, and the produced code attaches to the bubble.
func (a *Accumulator) CompleteFlat(done protocol.CompletionFlat) {
	a.mu.Lock()
	b := a.ensureOpenLocked()
	if done.Text != "" {
		b.Text = done.Text
	}
	b.Code = done.Code
	a.closeLocked()
	a.mu.Unlock()
	a.notify()
}

// CompleteRich finalizes a rich-generation turn.
func (a *Accumulator) CompleteRich(done protocol.CompletionRich) {
	a.mu.Lock()
	b := a.ensureOpenLocked()
	if b.Intent == "" {
		b.Intent = done.Intent
	}
	if done.Text != "" {
		b.Text = done.Text
	}
	if done.Err != "" {
		b.Text = appendErrorNote(b.Text, done.Err)
	}
	a.closeLocked()
	a.mu.Unlock()
	a.notify()
}

// FailTurn terminates the turn on an explicit protocol error.
func (a *Accumulator) FailTurn(perr protocol.ProtocolError) {
	a.mu.Lock()
	b := a.ensureOpenLocked()
	b.Text = appendErrorNote(b.Text, perr.Message)
	a.closeLocked()
	a.mu.Unlock()
	a.notify()
}

func (a *Accumulator) replaceText(text string) {
	a.mu.Lock()
	b := a.openLocked()
	if b == nil || a.mode == modeAppend {
		a.mu.Unlock()
		return
	}
	a.mode = modeReplace
	b.Text = text
	a.mu.Unlock()
	a.notify()
}

// openLocked returns the open bubble, or nil when no turn is streaming.
func (a *Accumulator) openLocked() *Bubble {
	if a.openID == "" {
		return nil
	}
	for i := range a.bubbles {
		if a.bubbles[i].ID == a.openID {
			return &a.bubbles[i]
		}
	}
	return nil
}

// ensureOpenLocked returns the open bubble, opening one when a terminal
// message arrives without a preceding turn start so its payload is kept.
func (a *Accumulator) ensureOpenLocked() *Bubble {
	if b := a.openLocked(); b != nil {
		return b
	}
	b := Bubble{
		ID:          uuid.NewString(),
		Role:        RoleAssistant,
		IsStreaming: true,
	}
	a.bubbles = append(a.bubbles, b)
	a.openID = b.ID
	a.mode = modeUnset
	return a.openLocked()
}

// closeLocked releases the open reference so the next turn can stream.
func (a *Accumulator) closeLocked() {
	if b := a.openLocked(); b != nil {
		b.IsStreaming = false
	}
	a.openID = ""
	a.mode = modeUnset
}

func (a *Accumulator) notify() {
	if a.onUpdate != nil {
		a.onUpdate()
	}
}

func codeActionText(explanation string, changes []string) string {
	var sb strings.Builder
	if explanation != "" {
		sb.WriteString(explanation)
	}
	for _, c := range changes {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(c)
	}
	return sb.String()
}

func appendErrorNote(text, msg string) string {
	note := "Error: " + msg
	if text == "" {
		return note
	}
	return text + "\n\n" + note
}
