// Package review tracks proposed edits from proposal to acceptance or
// rejection. The ledger is a reducer over a closed set of transitions; the
// orchestrator is the only component that applies them, and the only one
// that talks to storage.
package review

import (
	"codepair/internal/edit"
)

// Status is the lifecycle position of one pending edit. Transitions are
// one-way: pending to accepted or pending to rejected, never back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// WriteCapability is an opaque token authorizing a write to one file. It is
// issued and redeemed by the storage collaborator; the review engine stores
// it on the edit record and never looks inside.
type WriteCapability any

// PendingEdit is the engine's record of one proposed change: a snapshot of
// the file content at proposal time, the projected content, and review
// state. It is created when an instruction is resolved and removed only by
// an explicit clear of completed edits.
type PendingEdit struct {
	ID              string
	FilePath        string
	OriginalContent string
	ProposedContent string
	Action          edit.Action
	Status          Status
	Explanation     string
	Capability      WriteCapability
}

// Diff derives the line-level summary of this edit. It is computed on
// demand so it can never drift from the content pair.
func (e PendingEdit) Diff() edit.Summary {
	return edit.Summarize(e.OriginalContent, e.ProposedContent)
}
