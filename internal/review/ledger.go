package review

// State is the ledger: the ordered working set of proposed edits plus
// review-session selection and auxiliary flags. Values are immutable from
// the caller's point of view; every change goes through Reduce, which
// returns a fresh state.
//
// ActiveEditID and Err use the empty string for "none". Counts are always
// derived from Edits, never tracked alongside them.
type State struct {
	Edits        []PendingEdit
	ActiveEditID string
	Processing   bool
	Err          string
}

// Action is one ledger transition. The set is closed: every mutation of a
// ledger anywhere in the program is one of the variants below passing
// through Reduce.
type Action interface {
	isLedgerAction()
}

// AddEdits appends a batch in arrival order. The active edit is untouched.
type AddEdits struct {
	Edits []PendingEdit
}

// SetActive points the review selection at an edit, or at nothing when ID
// is empty. It is unconditional: validity is the caller's responsibility.
type SetActive struct {
	ID string
}

// AcceptEdit resolves a pending edit as accepted. When the physical effect
// produced a write capability (file creation), Capability binds it to the
// record. Applying it to an absent or already-resolved edit changes nothing.
type AcceptEdit struct {
	ID         string
	Capability WriteCapability
}

// RejectEdit resolves a pending edit as rejected, with the same guard.
type RejectEdit struct {
	ID string
}

// RejectAll resolves every pending edit as rejected in one transition.
type RejectAll struct{}

// ClearCompleted drops every edit that is no longer pending. If the active
// edit is dropped, the selection clears.
type ClearCompleted struct{}

// SetProcessing toggles the batch-resolution flag.
type SetProcessing struct {
	Processing bool
}

// SetError records the latest error message, replacing any prior one. An
// empty message clears it.
type SetError struct {
	Message string
}

func (AddEdits) isLedgerAction()       {}
func (SetActive) isLedgerAction()      {}
func (AcceptEdit) isLedgerAction()     {}
func (RejectEdit) isLedgerAction()     {}
func (RejectAll) isLedgerAction()      {}
func (ClearCompleted) isLedgerAction() {}
func (SetProcessing) isLedgerAction()  {}
func (SetError) isLedgerAction()       {}

// Reduce applies one transition and returns the resulting state. The input
// state is never mutated.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddEdits:
		edits := make([]PendingEdit, 0, len(s.Edits)+len(a.Edits))
		edits = append(edits, s.Edits...)
		edits = append(edits, a.Edits...)
		s.Edits = edits
	case SetActive:
		s.ActiveEditID = a.ID
	case AcceptEdit:
		s.Edits = resolve(s.Edits, a.ID, StatusAccepted, a.Capability)
	case RejectEdit:
		s.Edits = resolve(s.Edits, a.ID, StatusRejected, nil)
	case RejectAll:
		edits := make([]PendingEdit, len(s.Edits))
		copy(edits, s.Edits)
		for i := range edits {
			if edits[i].Status == StatusPending {
				edits[i].Status = StatusRejected
			}
		}
		s.Edits = edits
	case ClearCompleted:
		edits := make([]PendingEdit, 0, len(s.Edits))
		activeSurvives := s.ActiveEditID == ""
		for _, e := range s.Edits {
			if e.Status != StatusPending {
				continue
			}
			edits = append(edits, e)
			if e.ID == s.ActiveEditID {
				activeSurvives = true
			}
		}
		s.Edits = edits
		if !activeSurvives {
			s.ActiveEditID = ""
		}
	case SetProcessing:
		s.Processing = a.Processing
	case SetError:
		s.Err = a.Message
	}
	return s
}

// resolve flips one pending edit to a terminal status, copying the slice.
// Absent ids and already-resolved edits pass through unchanged.
func resolve(edits []PendingEdit, id string, to Status, cap WriteCapability) []PendingEdit {
	for i, e := range edits {
		if e.ID != id || e.Status != StatusPending {
			continue
		}
		out := make([]PendingEdit, len(edits))
		copy(out, edits)
		out[i].Status = to
		if cap != nil {
			out[i].Capability = cap
		}
		return out
	}
	return edits
}

// Edit finds an edit by id.
func (s State) Edit(id string) (PendingEdit, bool) {
	for _, e := range s.Edits {
		if e.ID == id {
			return e, true
		}
	}
	return PendingEdit{}, false
}

// PendingCount, AcceptedCount and RejectedCount are always derived so they
// cannot drift from the edit set.
func (s State) PendingCount() int  { return s.countByStatus(StatusPending) }
func (s State) AcceptedCount() int { return s.countByStatus(StatusAccepted) }
func (s State) RejectedCount() int { return s.countByStatus(StatusRejected) }

func (s State) countByStatus(st Status) int {
	n := 0
	for _, e := range s.Edits {
		if e.Status == st {
			n++
		}
	}
	return n
}

// NextPendingAfter returns the first pending edit at or after the position
// following id, wrapping around to the front. When id is absent the scan
// starts at the front.
func (s State) NextPendingAfter(id string) (string, bool) {
	start := 0
	for i, e := range s.Edits {
		if e.ID == id {
			start = i + 1
			break
		}
	}
	for off := 0; off < len(s.Edits); off++ {
		e := s.Edits[(start+off)%len(s.Edits)]
		if e.Status == StatusPending {
			return e.ID, true
		}
	}
	return "", false
}
