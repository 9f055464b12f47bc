package edit

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Summary is the line-level shape of one proposed change. It is derived from
// the original and proposed content on demand and never stored on the edit
// record, so it can never drift from the content it describes.
type Summary struct {
	Added     int
	Removed   int
	Unchanged int
}

var dmp = newDiffer()

func newDiffer() *diffmatchpatch.DiffMatchPatch {
	d := diffmatchpatch.New()
	// Favor accuracy over the default wall-clock cutoff; inputs here are
	// single source files, not megabyte blobs.
	d.DiffTimeout = 0
	return d
}

// Summarize computes line counts between original and proposed content using
// a line-mode diff: lines are collapsed to runes, diffed, semantically
// cleaned, then expanded back so counts reflect whole lines.
func Summarize(original, proposed string) Summary {
	// A final line without a terminator would otherwise diff as a distinct
	// line from its terminated twin and skew the counts.
	c1, c2, lineArr := dmp.DiffLinesToChars(terminate(original), terminate(proposed))
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArr)

	var s Summary
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Added += n
		case diffmatchpatch.DiffDelete:
			s.Removed += n
		case diffmatchpatch.DiffEqual:
			s.Unchanged += n
		}
	}
	return s
}

func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
