package edit

import (
	"strings"
	"testing"
)

func TestProjectInsert(t *testing.T) {
	cases := []struct {
		name     string
		original string
		in       Instruction
		expected string
	}{
		{
			name:     "before line two",
			original: "1\n2\n3",
			in:       Instruction{Action: ActionInsert, Code: "x", InsertAtLine: 2},
			expected: "1\nx\n2\n3",
		},
		{
			name:     "defaults to line one",
			original: "a\nb",
			in:       Instruction{Action: ActionInsert, Code: "top"},
			expected: "top\na\nb",
		},
		{
			name:     "clamps high to append",
			original: "a\nb",
			in:       Instruction{Action: ActionInsert, Code: "end", InsertAtLine: 99},
			expected: "a\nb\nend",
		},
		{
			name:     "clamps negative to prepend",
			original: "a",
			in:       Instruction{Action: ActionInsert, Code: "first", InsertAtLine: -4},
			expected: "first\na",
		},
		{
			name:     "multi-line payload",
			original: "1\n2",
			in:       Instruction{Action: ActionInsert, Code: "x\ny", InsertAtLine: 2},
			expected: "1\nx\ny\n2",
		},
	}

	for _, tc := range cases {
		if got := Project(tc.original, tc.in); got != tc.expected {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expected, got)
		}
	}
}

func TestProjectInsertLineCountLaw(t *testing.T) {
	original := "alpha\nbeta\ngamma\ndelta"
	code := "one\ntwo\nthree"

	for at := -1; at <= 7; at++ {
		got := Project(original, Instruction{Action: ActionInsert, Code: code, InsertAtLine: at})
		gotLines := strings.Split(got, "\n")
		wantLen := len(strings.Split(original, "\n")) + len(strings.Split(code, "\n"))
		if len(gotLines) != wantLen {
			t.Fatalf("insert at %d: expected %d lines, got %d", at, wantLen, len(gotLines))
		}
		idx := at
		if idx < 1 {
			idx = 1
		}
		if idx > 5 {
			idx = 5
		}
		if gotLines[idx-1] != "one" {
			t.Fatalf("insert at %d: expected first payload line at position %d, got %q", at, idx, gotLines[idx-1])
		}
	}
}

func TestProjectReplaceSelection(t *testing.T) {
	cases := []struct {
		name     string
		original string
		in       Instruction
		expected string
	}{
		{
			name:     "single line",
			original: "a\nb\nc",
			in:       Instruction{Action: ActionReplaceSelection, Code: "B", StartLine: 2},
			expected: "a\nB\nc",
		},
		{
			name:     "inclusive range",
			original: "a\nb\nc\nd",
			in:       Instruction{Action: ActionReplaceSelection, Code: "x", StartLine: 2, EndLine: 3},
			expected: "a\nx\nd",
		},
		{
			name:     "inverted range inserts without deleting",
			original: "a\nb\nc",
			in:       Instruction{Action: ActionReplaceSelection, Code: "x", StartLine: 2, EndLine: 1},
			expected: "a\nx\nb\nc",
		},
		{
			name:     "range clamps past end",
			original: "a\nb\nc",
			in:       Instruction{Action: ActionReplaceSelection, Code: "tail", StartLine: 3, EndLine: 9},
			expected: "a\nb\ntail",
		},
		{
			name:     "payload longer than range",
			original: "a\nb\nc",
			in:       Instruction{Action: ActionReplaceSelection, Code: "1\n2\n3", StartLine: 2, EndLine: 2},
			expected: "a\n1\n2\n3\nc",
		},
	}

	for _, tc := range cases {
		if got := Project(tc.original, tc.in); got != tc.expected {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expected, got)
		}
	}
}

func TestProjectReplaceSelectionRoundTrip(t *testing.T) {
	original := "l1\nl2\nl3\nl4\nl5"
	code := "new-a\nnew-b"

	for start := 1; start <= 5; start++ {
		for end := start; end <= 5; end++ {
			forward := Project(original, Instruction{
				Action: ActionReplaceSelection, Code: code, StartLine: start, EndLine: end,
			})
			slice := strings.Join(strings.Split(original, "\n")[start-1:end], "\n")
			back := Project(forward, Instruction{
				Action:    ActionReplaceSelection,
				Code:      slice,
				StartLine: start,
				EndLine:   start + len(strings.Split(code, "\n")) - 1,
			})
			if back != original {
				t.Fatalf("round trip [%d,%d]: expected %q, got %q", start, end, original, back)
			}
		}
	}
}

func TestProjectWholeFileActions(t *testing.T) {
	if got := Project("anything\nat all", Instruction{Action: ActionReplaceFile, Code: "K"}); got != "K" {
		t.Fatalf("replace_file: expected %q, got %q", "K", got)
	}
	if got := Project("", Instruction{Action: ActionCreateFile, Code: "package main\n"}); got != "package main\n" {
		t.Fatalf("create_file: expected payload verbatim, got %q", got)
	}
}

func TestProjectDeleteLines(t *testing.T) {
	cases := []struct {
		name     string
		original string
		in       Instruction
		expected string
	}{
		{
			name:     "middle range",
			original: "a\nb\nc\nd",
			in:       Instruction{Action: ActionDeleteLines, StartLine: 2, EndLine: 3},
			expected: "a\nd",
		},
		{
			name:     "single line default end",
			original: "a\nb\nc",
			in:       Instruction{Action: ActionDeleteLines, StartLine: 2},
			expected: "a\nc",
		},
		{
			name:     "inverted range deletes nothing",
			original: "a\nb",
			in:       Instruction{Action: ActionDeleteLines, StartLine: 2, EndLine: 1},
			expected: "a\nb",
		},
	}

	for _, tc := range cases {
		if got := Project(tc.original, tc.in); got != tc.expected {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expected, got)
		}
	}
}

func TestProjectUnknownActionIsNoOp(t *testing.T) {
	original := "keep\nme\nintact"
	got := Project(original, Instruction{Action: "refactor_everything", Code: "boom"})
	if got != original {
		t.Fatalf("unknown action: expected original unchanged, got %q", got)
	}
}

func TestProjectIsPure(t *testing.T) {
	original := "1\n2\n3"
	in := Instruction{Action: ActionInsert, Code: "x", InsertAtLine: 2}
	first := Project(original, in)
	second := Project(original, in)
	if first != second {
		t.Fatalf("projection not deterministic: %q vs %q", first, second)
	}
	if original != "1\n2\n3" {
		t.Fatal("projection mutated its input")
	}
}
