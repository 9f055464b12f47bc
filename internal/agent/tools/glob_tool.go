package tools

import (
	"context"
	"fmt"
	"strings"

	"codepair/internal/events"
	"codepair/internal/workspace"
)

const globLimit = 100

type GlobInput struct {
	// Pattern supports *, ? and ** (e.g. "**/*.go", "src/**/*.ts").
	Pattern string `json:"pattern" jsonschema:"description=The glob pattern to match files against, e.g. \"**/*.go\""`
	// Path is a directory relative to the workspace root to search in.
	Path string `json:"path,omitempty" jsonschema:"description=The directory to search in, relative to the workspace root. Omit for the root."`
}

type GlobOutput struct {
	Title    string            `json:"title"`
	Output   string            `json:"output"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Glob finds files matching a glob pattern, newest first, capped at
// globLimit results.
func Glob(ctx context.Context, in *GlobInput) (*GlobOutput, error) {
	if in == nil {
		return globFormatError("", "input is required"), nil
	}

	session, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	pattern := strings.TrimSpace(in.Pattern)
	if pattern == "" {
		return globFormatError("", "pattern is required"), nil
	}

	entries, truncated, err := workspace.Glob(session.root, strings.TrimSpace(in.Path), pattern, globLimit)
	if err != nil {
		events.Emit(ctx, events.TopicAgent, events.NewWarn(fmt.Sprintf("Glob: %v", err)))
		return globFormatError(pattern, err.Error()), nil
	}

	if len(entries) == 0 {
		events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventInfo, fmt.Sprintf("Glob '%s': no matches", pattern), "glob", pattern))
		return &GlobOutput{
			Title:  pattern,
			Output: "No files found",
			Metadata: map[string]string{
				"matches":   "0",
				"truncated": "false",
			},
		}, nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d file(s), newest first:\n", len(entries)))
	for _, e := range entries {
		b.WriteString(e.Rel)
		b.WriteString("\n")
	}
	if truncated {
		b.WriteString(fmt.Sprintf("(Results capped at %d files. Consider a more specific pattern.)", globLimit))
	}

	events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventInfo, fmt.Sprintf("Glob '%s' matched %d file(s)", pattern, len(entries)), "glob", pattern))

	return &GlobOutput{
		Title:  pattern,
		Output: strings.TrimRight(b.String(), "\n"),
		Metadata: map[string]string{
			"matches":   fmt.Sprintf("%d", len(entries)),
			"truncated": fmt.Sprintf("%v", truncated),
		},
	}, nil
}

func globFormatError(title, msg string) *GlobOutput {
	return &GlobOutput{
		Title:  title,
		Output: "Format error: " + msg,
		Metadata: map[string]string{
			"error":     "format_error",
			"matches":   "0",
			"truncated": "false",
		},
	}
}
