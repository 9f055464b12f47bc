package edit

import "strings"

// Project computes the proposed content of a file from its original content
// and one instruction. It is deterministic and performs no I/O. Lines split
// on line-feed boundaries; all positions are 1-indexed and inclusive.
//
// Out-of-range positions clamp rather than fail, and an instruction whose
// action is not recognized returns the original content unchanged. Callers
// that want stricter behavior must validate before projecting.
func Project(original string, in Instruction) string {
	switch in.Action {
	case ActionReplaceFile, ActionCreateFile:
		return in.Code
	case ActionInsert:
		lines := strings.Split(original, "\n")
		at := clamp(in.InsertAtLine, 1, len(lines)+1)
		return splice(lines, at-1, 0, strings.Split(in.Code, "\n"))
	case ActionReplaceSelection:
		lines := strings.Split(original, "\n")
		start, del := rangeOf(in.StartLine, in.EndLine, len(lines))
		return splice(lines, start-1, del, strings.Split(in.Code, "\n"))
	case ActionDeleteLines:
		lines := strings.Split(original, "\n")
		start, del := rangeOf(in.StartLine, in.EndLine, len(lines))
		return splice(lines, start-1, del, nil)
	default:
		return original
	}
}

// rangeOf normalizes a 1-indexed inclusive line range against a file of n
// lines: the start clamps into [1, n], a zero end defaults to the start, and
// an inverted range collapses to a zero-length deletion at the start.
func rangeOf(startLine, endLine, n int) (start, deleteCount int) {
	start = clamp(startLine, 1, n)
	end := endLine
	if end == 0 {
		end = start
	}
	end = clamp(end, 1, n)
	if end < start {
		return start, 0
	}
	return start, end - start + 1
}

func splice(lines []string, index, deleteCount int, insert []string) string {
	out := make([]string, 0, len(lines)-deleteCount+len(insert))
	out = append(out, lines[:index]...)
	out = append(out, insert...)
	out = append(out, lines[index+deleteCount:]...)
	return strings.Join(out, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
