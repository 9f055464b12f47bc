package tools

import (
	"sync"

	"codepair/internal/edit"
)

// Recorder accumulates the edit instructions the propose tools emit during
// one agent turn. The runner drains it after the stream finishes and ships
// the batch to the shell as a structured code-action result.
type Recorder struct {
	mu      sync.Mutex
	edits   []edit.Instruction
	notes   []string
	summary string
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a batch of proposed instructions with an optional
// human-readable note describing the batch.
func (r *Recorder) Record(instructions []edit.Instruction, note string) {
	if len(instructions) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, instructions...)
	if note != "" {
		r.notes = append(r.notes, note)
	}
}

// SetSummary records the agent-provided summary of the whole change set.
// The latest one wins.
func (r *Recorder) SetSummary(summary string) {
	if summary == "" {
		return
	}
	r.mu.Lock()
	r.summary = summary
	r.mu.Unlock()
}

// Len reports how many instructions are currently recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edits)
}

// Drain returns everything recorded so far and resets the recorder for the
// next turn.
func (r *Recorder) Drain() (instructions []edit.Instruction, notes []string, summary string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	instructions = r.edits
	notes = r.notes
	summary = r.summary
	r.edits = nil
	r.notes = nil
	r.summary = ""
	return instructions, notes, summary
}

// Reset discards any recorded state without returning it.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.edits = nil
	r.notes = nil
	r.summary = ""
	r.mu.Unlock()
}
