package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codepair/internal/events"
)

const (
	defaultReadLimit = 2000
	maxLineLength    = 2000
)

// ReadFileInput is the read_file tool's argument payload.
type ReadFileInput struct {
	// FilePath is resolved against the workspace root. Absolute paths are
	// allowed only if they resolve under the root.
	FilePath string `json:"file_path" jsonschema:"description=The path to the file to read (relative to the workspace root)"`
	// Offset and Limit page through long files in line units. Offset is
	// 0-based; a zero Limit falls back to defaultReadLimit.
	Offset int `json:"offset,omitempty" jsonschema:"description=The line number to start reading from (0-based)"`
	Limit  int `json:"limit,omitempty" jsonschema:"description=The number of lines to read (defaults to 2000)"`
}

type ReadFileOutput struct {
	Title    string            `json:"title"`
	Output   string            `json:"output"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ReadFile reads a text file within the workspace root with paging and
// safety checks. Output lines carry 1-based numbers so the model can refer
// back to exact positions when proposing edits.
func ReadFile(ctx context.Context, in *ReadFileInput) (*ReadFileOutput, error) {
	if in == nil {
		return readFormatError("", "input is required"), nil
	}

	session, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	pathArg := strings.TrimSpace(in.FilePath)
	if pathArg == "" {
		return readFormatError("", "file_path is required"), nil
	}

	absPath, err := session.root.Resolve(pathArg)
	if err != nil {
		events.Emit(ctx, events.TopicAgent, events.NewWarn(fmt.Sprintf("ReadFile: %v", err)))
		return readFormatError(filepath.ToSlash(pathArg), "path escapes the workspace root"), nil
	}
	rel := session.root.Rel(absPath)

	fi, err := os.Stat(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return readFileNotFound(ctx, session, absPath, rel), nil
	}
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return readFormatError(rel, fmt.Sprintf("path is a directory: %s", rel)), nil
	}

	if img := imageTypeByExt(absPath); img != "" {
		return readFormatError(rel, fmt.Sprintf("this is an image file of type %s and cannot be read as text", img)), nil
	}
	if bin, err := isBinaryFile(absPath); err != nil {
		return nil, err
	} else if bin {
		return readFormatError(rel, fmt.Sprintf("cannot read binary file: %s", rel)), nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")

	count := in.Limit
	if count <= 0 {
		count = defaultReadLimit
	}
	start := min(max(in.Offset, 0), len(lines))
	end := min(start+count, len(lines))

	numbered := make([]string, 0, end-start)
	for n := start; n < end; n++ {
		text := lines[n]
		if len(text) > maxLineLength {
			text = text[:maxLineLength] + "..."
		}
		numbered = append(numbered, fmt.Sprintf("%05d| %s", n+1, text))
	}

	body := strings.Join(numbered, "\n")
	output := "<file>\n" + body
	if end < len(lines) {
		sep := "\n"
		if body != "" {
			sep = "\n\n"
		}
		output += sep + fmt.Sprintf("(File has more lines. Use 'offset' parameter to read beyond line %d)", end)
	}
	output += "\n</file>"

	events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventInfo, fmt.Sprintf("Read %s", rel), "read_file", rel))

	return &ReadFileOutput{
		Title:  rel,
		Output: output,
		Metadata: map[string]string{
			"lines": fmt.Sprintf("%d", len(numbered)),
		},
	}, nil
}

// readFileNotFound builds the miss response, listing near-miss names from
// the same directory when any exist.
func readFileNotFound(ctx context.Context, session *sessionState, absPath, rel string) *ReadFileOutput {
	var b strings.Builder
	b.WriteString("<file>\nFile not found: ")
	b.WriteString(rel)
	b.WriteString("\n")
	if suggestions := similarEntries(filepath.Dir(absPath), filepath.Base(absPath)); len(suggestions) > 0 {
		b.WriteString("\nDid you mean one of these?\n")
		for _, s := range suggestions {
			b.WriteString(session.root.Rel(s))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n</file>")

	events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventWarn, fmt.Sprintf("ReadFile: '%s' not found", rel), "read_file", rel))
	return &ReadFileOutput{
		Title:    rel,
		Output:   b.String(),
		Metadata: map[string]string{"error": "file_not_found"},
	}
}

func readFormatError(title, msg string) *ReadFileOutput {
	return &ReadFileOutput{
		Title:  title,
		Output: "Format error: " + msg,
		Metadata: map[string]string{
			"error": "format_error",
		},
	}
}
