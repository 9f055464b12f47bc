package review

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pendingEdit(id string) PendingEdit {
	return PendingEdit{
		ID:              id,
		FilePath:        id + ".go",
		OriginalContent: "old",
		ProposedContent: "new",
		Action:          "replace_file",
		Status:          StatusPending,
	}
}

func TestReduceAddEditsPreservesOrderAndSelection(t *testing.T) {
	s := State{ActiveEditID: "a"}
	s = Reduce(s, AddEdits{Edits: []PendingEdit{pendingEdit("a"), pendingEdit("b")}})
	s = Reduce(s, AddEdits{Edits: []PendingEdit{pendingEdit("c")}})

	var ids []string
	for _, e := range s.Edits {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Fatalf("arrival order not preserved (-want +got):\n%s", diff)
	}
	if s.ActiveEditID != "a" {
		t.Fatalf("ADD_EDITS must not alter the selection, got %q", s.ActiveEditID)
	}
}

func TestReduceAcceptIsOneWayAndIdempotent(t *testing.T) {
	s := Reduce(State{}, AddEdits{Edits: []PendingEdit{pendingEdit("a")}})

	s = Reduce(s, AcceptEdit{ID: "a"})
	if s.Edits[0].Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", s.Edits[0].Status)
	}

	again := Reduce(s, AcceptEdit{ID: "a"})
	if diff := cmp.Diff(s, again); diff != "" {
		t.Fatalf("accepting a resolved edit must change nothing (-want +got):\n%s", diff)
	}

	flipped := Reduce(s, RejectEdit{ID: "a"})
	if diff := cmp.Diff(s, flipped); diff != "" {
		t.Fatalf("rejecting an accepted edit must change nothing (-want +got):\n%s", diff)
	}

	missing := Reduce(s, AcceptEdit{ID: "nope"})
	if diff := cmp.Diff(s, missing); diff != "" {
		t.Fatalf("accepting a missing id must change nothing (-want +got):\n%s", diff)
	}
}

func TestReduceAcceptBindsCapability(t *testing.T) {
	s := Reduce(State{}, AddEdits{Edits: []PendingEdit{pendingEdit("a")}})
	s = Reduce(s, AcceptEdit{ID: "a", Capability: "cap-token"})
	if s.Edits[0].Capability != "cap-token" {
		t.Fatalf("expected capability bound on accept, got %v", s.Edits[0].Capability)
	}
}

func TestReduceRejectAllOnlyTouchesPending(t *testing.T) {
	s := Reduce(State{}, AddEdits{Edits: []PendingEdit{pendingEdit("a"), pendingEdit("b"), pendingEdit("c")}})
	s = Reduce(s, AcceptEdit{ID: "a"})
	s = Reduce(s, RejectAll{})

	if s.Edits[0].Status != StatusAccepted {
		t.Fatal("REJECT_ALL must not touch accepted edits")
	}
	if s.Edits[1].Status != StatusRejected || s.Edits[2].Status != StatusRejected {
		t.Fatal("REJECT_ALL must reject every pending edit")
	}
}

func TestReduceClearCompleted(t *testing.T) {
	s := Reduce(State{}, AddEdits{Edits: []PendingEdit{pendingEdit("a"), pendingEdit("b"), pendingEdit("c")}})
	s = Reduce(s, AcceptEdit{ID: "a"})
	s = Reduce(s, RejectEdit{ID: "c"})

	t.Run("active pending survives", func(t *testing.T) {
		next := Reduce(s, SetActive{ID: "b"})
		next = Reduce(next, ClearCompleted{})
		if len(next.Edits) != 1 || next.Edits[0].ID != "b" {
			t.Fatalf("expected only the pending edit to remain, got %+v", next.Edits)
		}
		if next.ActiveEditID != "b" {
			t.Fatalf("expected selection kept, got %q", next.ActiveEditID)
		}
	})

	t.Run("active resolved clears selection", func(t *testing.T) {
		next := Reduce(s, SetActive{ID: "a"})
		next = Reduce(next, ClearCompleted{})
		if next.ActiveEditID != "" {
			t.Fatalf("expected selection cleared with its edit, got %q", next.ActiveEditID)
		}
	})
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := Reduce(State{}, AddEdits{Edits: []PendingEdit{pendingEdit("a")}})
	_ = Reduce(s, AcceptEdit{ID: "a"})
	if s.Edits[0].Status != StatusPending {
		t.Fatal("Reduce mutated its input state")
	}
	_ = Reduce(s, RejectAll{})
	if s.Edits[0].Status != StatusPending {
		t.Fatal("RejectAll mutated its input state")
	}
}

func TestLedgerInvariantsAcrossTransitions(t *testing.T) {
	checkInvariants := func(t *testing.T, s State, step string) {
		t.Helper()
		if got := s.PendingCount() + s.AcceptedCount() + s.RejectedCount(); got != len(s.Edits) {
			t.Fatalf("%s: count sum %d != %d edits", step, got, len(s.Edits))
		}
		if s.ActiveEditID != "" {
			if _, ok := s.Edit(s.ActiveEditID); !ok {
				t.Fatalf("%s: active id %q not present in ledger", step, s.ActiveEditID)
			}
		}
		seen := map[string]bool{}
		for _, e := range s.Edits {
			if seen[e.ID] {
				t.Fatalf("%s: duplicate id %s", step, e.ID)
			}
			seen[e.ID] = true
		}
	}

	var s State
	steps := []Action{
		AddEdits{Edits: []PendingEdit{pendingEdit("e1"), pendingEdit("e2")}},
		SetActive{ID: "e1"},
		AcceptEdit{ID: "e1"},
		AddEdits{Edits: []PendingEdit{pendingEdit("e3")}},
		RejectEdit{ID: "e2"},
		SetProcessing{Processing: true},
		SetError{Message: "boom"},
		SetActive{ID: "e3"},
		SetProcessing{Processing: false},
		SetError{},
		RejectAll{},
		SetActive{ID: ""},
		ClearCompleted{},
	}
	for i, a := range steps {
		s = Reduce(s, a)
		checkInvariants(t, s, fmt.Sprintf("step %d (%T)", i, a))
	}
	if len(s.Edits) != 0 {
		t.Fatalf("expected empty ledger at the end, got %d edits", len(s.Edits))
	}
}

func TestNextPendingAfterWraps(t *testing.T) {
	s := Reduce(State{}, AddEdits{Edits: []PendingEdit{pendingEdit("a"), pendingEdit("b"), pendingEdit("c")}})
	s = Reduce(s, RejectEdit{ID: "c"})

	if next, ok := s.NextPendingAfter("b"); !ok || next != "a" {
		t.Fatalf("expected wrap to a, got %q ok=%v", next, ok)
	}
	if next, ok := s.NextPendingAfter("a"); !ok || next != "b" {
		t.Fatalf("expected b, got %q ok=%v", next, ok)
	}
	if next, ok := s.NextPendingAfter(""); !ok || next != "a" {
		t.Fatalf("expected scan from front to find a, got %q ok=%v", next, ok)
	}

	s = Reduce(s, RejectAll{})
	if _, ok := s.NextPendingAfter("a"); ok {
		t.Fatal("expected no pending edit after rejecting all")
	}
}
