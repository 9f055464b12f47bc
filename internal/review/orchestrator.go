package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codepair/internal/edit"
	"codepair/internal/events"
)

var (
	// ErrEditNotFound reports an id that is not in the ledger.
	ErrEditNotFound = errors.New("edit not found")
	// ErrEditNotPending reports an edit that was already resolved.
	ErrEditNotPending = errors.New("edit is not pending")
)

// ResolvedFile is the content resolver's answer for one path: the snapshot
// the edit will be computed against, plus the capability to write it back
// when the file is part of the working set.
type ResolvedFile struct {
	Content    string
	Capability WriteCapability
}

// ContentResolver fetches the current content of a file at proposal time.
// It is called once per instruction.
type ContentResolver func(path string) (ResolvedFile, error)

// Storage is the collaborator that owns physical file bytes. Write redeems
// a capability; Create materializes a new file and returns the capability
// for it. Both report failure as errors, never panics.
type Storage interface {
	Write(ctx context.Context, cap WriteCapability, content string) error
	Create(ctx context.Context, path, content string) (WriteCapability, error)
}

// AppliedFunc is notified with the full edit record after a successful
// accept, for consumers that re-sync a live view of the file.
type AppliedFunc func(e PendingEdit)

// BatchResult reports an AcceptAll run: how many edits were physically
// applied and how many failed and remain pending.
type BatchResult struct {
	Success int
	Failed  int
}

// Orchestrator owns the ledger. All mutation funnels through it; reads get
// value snapshots. Methods are safe to call from the channel reader, the
// shell program, and tests concurrently.
type Orchestrator struct {
	mu      sync.Mutex
	state   State
	storage Storage
	applied AppliedFunc
	logger  *zap.Logger
}

func NewOrchestrator(storage Storage, applied AppliedFunc, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		storage: storage,
		applied: applied,
		logger:  logger,
	}
}

// State returns a snapshot. The edit slice is copied so callers can hold it
// across later mutations.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.state
	s.Edits = make([]PendingEdit, len(o.state.Edits))
	copy(s.Edits, o.state.Edits)
	return s
}

// AddEditsFromInstructions resolves each instruction against a fresh content
// snapshot, projects the proposed content, and appends the batch as pending
// edits. A resolution failure skips that instruction and the rest still
// proceed. Returns how many edits were added.
func (o *Orchestrator) AddEditsFromInstructions(ctx context.Context, instrs []edit.Instruction, resolve ContentResolver, explanation string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Reduce(o.state, SetError{})
	s = Reduce(s, SetProcessing{Processing: true})
	o.state = s

	adds := make([]PendingEdit, 0, len(instrs))
	for _, in := range instrs {
		var original string
		var capability WriteCapability
		if in.Action != edit.ActionCreateFile {
			resolved, err := resolve(in.FilePath)
			if err != nil {
				o.logger.Warn("skipping instruction, content resolution failed",
					zap.String("file", in.FilePath),
					zap.String("action", string(in.Action)),
					zap.Error(err))
				events.Emit(ctx, events.TopicReview, events.NewWarn(
					fmt.Sprintf("Skipped proposal for %s: %v", in.FilePath, err)))
				continue
			}
			original = resolved.Content
			capability = resolved.Capability
		}

		adds = append(adds, PendingEdit{
			ID:              uuid.NewString(),
			FilePath:        in.FilePath,
			OriginalContent: original,
			ProposedContent: edit.Project(original, in),
			Action:          in.Action,
			Status:          StatusPending,
			Explanation:     explanation,
			Capability:      capability,
		})
	}

	s = Reduce(o.state, AddEdits{Edits: adds})
	s = ensureActive(s)
	s = Reduce(s, SetProcessing{Processing: false})
	o.state = s

	if len(adds) > 0 {
		events.Emit(ctx, events.TopicReview, events.NewInfo(
			fmt.Sprintf("%d edit(s) proposed for review", len(adds))))
	}
	return len(adds)
}

// SetActiveEdit moves the review selection. Passing an empty id clears it.
func (o *Orchestrator) SetActiveEdit(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Reduce(o.state, SetActive{ID: id})
}

// AcceptEdit performs the physical effect for one pending edit and, only if
// that succeeds (or none is required), resolves it as accepted and notifies
// the applied consumer. On failure the edit stays pending and the ledger
// carries the error.
func (o *Orchestrator) AcceptEdit(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Reduce(o.state, SetError{})
	return o.acceptLocked(ctx, id)
}

func (o *Orchestrator) acceptLocked(ctx context.Context, id string) error {
	e, ok := o.state.Edit(id)
	if !ok {
		return fmt.Errorf("accept %s: %w", id, ErrEditNotFound)
	}
	if e.Status != StatusPending {
		return fmt.Errorf("accept %s: %w", id, ErrEditNotPending)
	}

	var boundCap WriteCapability
	switch {
	case e.Action == edit.ActionCreateFile:
		created, err := o.storage.Create(ctx, e.FilePath, e.ProposedContent)
		if err != nil {
			o.recordWriteFailure(ctx, e, err)
			return fmt.Errorf("create %s: %w", e.FilePath, err)
		}
		boundCap = created
	case e.Capability != nil:
		if err := o.storage.Write(ctx, e.Capability, e.ProposedContent); err != nil {
			o.recordWriteFailure(ctx, e, err)
			return fmt.Errorf("write %s: %w", e.FilePath, err)
		}
	default:
		// No capability and nothing to create: the file is outside the
		// working set, so acceptance is recorded without a physical write
		// and downstream sync picks it up.
		o.logger.Debug("accepting edit without physical write", zap.String("file", e.FilePath))
	}

	s := Reduce(o.state, AcceptEdit{ID: id, Capability: boundCap})
	o.state = advanceActive(s, id)

	if accepted, ok := o.state.Edit(id); ok && o.applied != nil {
		o.applied(accepted)
	}
	events.Emit(ctx, events.TopicReview, events.NewSuccess(
		fmt.Sprintf("Applied %s to %s", e.Action, e.FilePath)))
	return nil
}

func (o *Orchestrator) recordWriteFailure(ctx context.Context, e PendingEdit, err error) {
	msg := fmt.Sprintf("failed to write %s: %v", e.FilePath, err)
	o.state = Reduce(o.state, SetError{Message: msg})
	o.logger.Error("edit write failed", zap.String("file", e.FilePath), zap.Error(err))
	events.Emit(ctx, events.TopicReview, events.NewError(msg))
}

// RejectEdit resolves one pending edit as rejected. No I/O.
func (o *Orchestrator) RejectEdit(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Reduce(o.state, SetError{})

	e, ok := o.state.Edit(id)
	if !ok {
		return fmt.Errorf("reject %s: %w", id, ErrEditNotFound)
	}
	if e.Status != StatusPending {
		return fmt.Errorf("reject %s: %w", id, ErrEditNotPending)
	}

	s := Reduce(o.state, RejectEdit{ID: id})
	o.state = advanceActive(s, id)
	return nil
}

// AcceptAll attempts the accept path for every edit pending at call time.
// Failures are independent: one bad write never blocks the rest. The counts
// cover exactly that snapshot.
func (o *Orchestrator) AcceptAll(ctx context.Context) BatchResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Reduce(o.state, SetError{})

	var ids []string
	for _, e := range o.state.Edits {
		if e.Status == StatusPending {
			ids = append(ids, e.ID)
		}
	}

	var res BatchResult
	for _, id := range ids {
		if err := o.acceptLocked(ctx, id); err != nil {
			res.Failed++
			continue
		}
		res.Success++
	}
	return res
}

// RejectAll resolves every pending edit as rejected in a single transition.
func (o *Orchestrator) RejectAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Reduce(o.state, SetError{})
	o.state = Reduce(o.state, RejectAll{})
}

// ClearCompleted drops all resolved edits from the ledger.
func (o *Orchestrator) ClearCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Reduce(o.state, SetError{})
	o.state = Reduce(o.state, ClearCompleted{})
}

// ensureActive points the selection at the first pending edit when nothing
// valid is selected. The selection must never rest on a resolved edit while
// a pending one exists.
func ensureActive(s State) State {
	if active, ok := s.Edit(s.ActiveEditID); ok && active.Status == StatusPending {
		return s
	}
	if next, ok := s.NextPendingAfter(""); ok {
		return Reduce(s, SetActive{ID: next})
	}
	return s
}

// advanceActive moves the selection after resolving resolvedID: it stays if
// still on a pending edit, otherwise it goes to the next pending one after
// the resolved position, or clears when none remain.
func advanceActive(s State, resolvedID string) State {
	if active, ok := s.Edit(s.ActiveEditID); ok && active.Status == StatusPending {
		return s
	}
	if next, ok := s.NextPendingAfter(resolvedID); ok {
		return Reduce(s, SetActive{ID: next})
	}
	return Reduce(s, SetActive{ID: ""})
}
