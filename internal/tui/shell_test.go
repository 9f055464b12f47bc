package tui

import (
	"testing"

	"codepair/internal/review"
)

func TestIntentTag(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"chat":             "",
		"debug_error":      "[debug_error]",
		"execute_workflow": "[execute_workflow]",
	}
	for in, want := range cases {
		if got := intentTag(in); got != want {
			t.Fatalf("%q -> %q, want %q", in, got, want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"one line":       "one line",
		"first\nsecond":  "first",
		"  padded\nrest": "padded",
	}
	for in, want := range cases {
		if got := firstLine(in); got != want {
			t.Fatalf("%q -> %q, want %q", in, got, want)
		}
	}
}

func TestBatchNote(t *testing.T) {
	if got := batchNote(review.BatchResult{Success: 3}); got != "Applied 3 edits" {
		t.Fatalf("unexpected note: %q", got)
	}
	if got := batchNote(review.BatchResult{Success: 2, Failed: 1}); got != "Applied 2 edits, 1 failed and remain pending" {
		t.Fatalf("unexpected note: %q", got)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 0, 0},
	}
	for _, tc := range cases {
		if got := clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Fatalf("clamp(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestMaxIndex(t *testing.T) {
	if maxIndex(0) != 0 {
		t.Fatal("empty list must clamp to index 0")
	}
	if maxIndex(4) != 3 {
		t.Fatal("expected last index")
	}
}
