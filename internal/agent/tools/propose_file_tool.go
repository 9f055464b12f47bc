package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codepair/internal/edit"
	"codepair/internal/events"
)

type ProposeFileInput struct {
	// FilePath is the new file's path relative to the workspace root.
	FilePath string `json:"file_path" jsonschema:"description=The path of the file to create, relative to the workspace root"`
	// Content is the complete content of the new file.
	Content string `json:"content" jsonschema:"description=The full content of the new file"`
}

type ProposeFileOutput struct {
	Title    string            `json:"title"`
	Output   string            `json:"output"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ProposeFile queues the creation of a new file for user review. The file
// is not created here; the review engine creates it if the user accepts.
func ProposeFile(ctx context.Context, in *ProposeFileInput) (*ProposeFileOutput, error) {
	if in == nil {
		return proposeFileFormatError("", "input is required"), nil
	}

	session, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	pathArg := strings.TrimSpace(in.FilePath)
	if pathArg == "" {
		return proposeFileFormatError("", "file_path is required"), nil
	}

	abs, err := session.root.Resolve(pathArg)
	if err != nil {
		events.Emit(ctx, events.TopicAgent, events.NewWarn(fmt.Sprintf("ProposeFile: %v", err)))
		return proposeFileFormatError(pathArg, "path escapes the workspace root"), nil
	}
	rel := session.root.Rel(abs)

	if st, err := os.Stat(abs); err == nil {
		if st.IsDir() {
			return proposeFileFormatError(rel, fmt.Sprintf("%s is a directory", rel)), nil
		}
		return proposeFileFormatError(rel, fmt.Sprintf("%s already exists; use propose_edits to change it", rel)), nil
	}

	if session.proposals == nil {
		return nil, fmt.Errorf("no proposal recorder bound for this session")
	}

	instruction := edit.Instruction{
		FilePath: filepath.ToSlash(rel),
		Action:   edit.ActionCreateFile,
		Code:     in.Content,
	}
	session.proposals.Record([]edit.Instruction{instruction}, "")

	events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventSuccess, fmt.Sprintf("Proposed new file %s", rel), "propose_file", rel))

	return &ProposeFileOutput{
		Title:  rel,
		Output: fmt.Sprintf("Queued creation of %s for review.\n\nThe user will accept or reject it. Do not assume the file exists.", rel),
		Metadata: map[string]string{
			"edits": "1",
		},
	}, nil
}

func proposeFileFormatError(title, msg string) *ProposeFileOutput {
	return &ProposeFileOutput{
		Title:  title,
		Output: "Format error: " + msg,
		Metadata: map[string]string{
			"error": "format_error",
			"edits": "0",
		},
	}
}
