// Package edit holds the pure heart of the review engine: the edit
// instruction vocabulary, the content projector that turns an instruction
// into proposed file content, and line-level diff summaries.
package edit

import (
	"fmt"
	"strings"
)

// Action identifies what an instruction does to its target file.
type Action string

const (
	ActionInsert           Action = "insert"
	ActionReplaceSelection Action = "replace_selection"
	ActionReplaceFile      Action = "replace_file"
	ActionCreateFile       Action = "create_file"
	ActionDeleteLines      Action = "delete_lines"
)

// Instruction is one agent-originated request to change one file. Line
// numbers are 1-indexed and ranges are inclusive. Instances are produced by
// the protocol layer or agent tools and consumed once; they are never
// mutated after construction.
type Instruction struct {
	FilePath     string `json:"file_path"`
	Action       Action `json:"action"`
	Code         string `json:"code"`
	InsertAtLine int    `json:"insert_at_line,omitempty"`
	StartLine    int    `json:"start_line,omitempty"`
	EndLine      int    `json:"end_line,omitempty"`
}

// Describe renders a short human-readable summary of the instruction for
// transcript history.
func (in Instruction) Describe() string {
	switch in.Action {
	case ActionInsert:
		at := in.InsertAtLine
		if at < 1 {
			at = 1
		}
		return fmt.Sprintf("Insert %s into %s at line %d", lineNoun(countLines(in.Code)), in.FilePath, at)
	case ActionReplaceSelection:
		start, end := in.StartLine, in.EndLine
		if end < start {
			end = start
		}
		if start == end {
			return fmt.Sprintf("Replace line %d of %s", start, in.FilePath)
		}
		return fmt.Sprintf("Replace lines %d to %d of %s", start, end, in.FilePath)
	case ActionReplaceFile:
		return fmt.Sprintf("Replace the contents of %s", in.FilePath)
	case ActionCreateFile:
		return fmt.Sprintf("Create %s with %s", in.FilePath, lineNoun(countLines(in.Code)))
	case ActionDeleteLines:
		start, end := in.StartLine, in.EndLine
		if end < start {
			end = start
		}
		if start == end {
			return fmt.Sprintf("Delete line %d of %s", start, in.FilePath)
		}
		return fmt.Sprintf("Delete lines %d to %d of %s", start, end, in.FilePath)
	default:
		return fmt.Sprintf("%s: %s", in.FilePath, in.Action)
	}
}

func lineNoun(n int) string {
	if n == 1 {
		return "1 line"
	}
	return fmt.Sprintf("%d lines", n)
}

// countLines counts logical lines, ignoring a single trailing newline.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return len(lines)
}
