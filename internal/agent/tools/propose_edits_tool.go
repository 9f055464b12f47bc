package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"codepair/internal/edit"
	"codepair/internal/events"
)

// ProposedEdit is one requested change to an existing file. Line numbers
// are 1-based and ranges inclusive, matching the numbers the read_file tool
// prints.
type ProposedEdit struct {
	FilePath     string `json:"file_path" jsonschema:"description=The file to change, relative to the workspace root"`
	Action       string `json:"action" jsonschema:"enum=insert,enum=replace_selection,enum=replace_file,enum=delete_lines,description=What to do: insert code at a line, replace a line range, replace the whole file, or delete a line range"`
	Code         string `json:"code,omitempty" jsonschema:"description=The code to insert or replace with. Leave empty for delete_lines."`
	InsertAtLine int    `json:"insert_at_line,omitempty" jsonschema:"description=For insert: the 1-based line the code is inserted before"`
	StartLine    int    `json:"start_line,omitempty" jsonschema:"description=For replace_selection and delete_lines: first line of the range (1-based, inclusive)"`
	EndLine      int    `json:"end_line,omitempty" jsonschema:"description=For replace_selection and delete_lines: last line of the range (1-based, inclusive)"`
}

type ProposeEditsInput struct {
	Edits []ProposedEdit `json:"edits" jsonschema:"description=The edits to propose, applied to existing files"`
	// Summary describes the whole change set in one or two sentences.
	Summary string `json:"summary,omitempty" jsonschema:"description=A short summary of what the proposed edits accomplish"`
}

type ProposeEditsOutput struct {
	Title    string            `json:"title"`
	Output   string            `json:"output"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

var editActions = map[string]edit.Action{
	string(edit.ActionInsert):           edit.ActionInsert,
	string(edit.ActionReplaceSelection): edit.ActionReplaceSelection,
	string(edit.ActionReplaceFile):      edit.ActionReplaceFile,
	string(edit.ActionDeleteLines):      edit.ActionDeleteLines,
}

// ProposeEdits queues changes to existing files for user review. Nothing is
// written here: the instructions are recorded and the review engine applies
// whichever ones the user accepts.
func ProposeEdits(ctx context.Context, in *ProposeEditsInput) (*ProposeEditsOutput, error) {
	if in == nil || len(in.Edits) == 0 {
		return proposeEditsFormatError("", "at least one edit is required"), nil
	}

	session, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	instructions := make([]edit.Instruction, 0, len(in.Edits))
	for i, e := range in.Edits {
		pathArg := strings.TrimSpace(e.FilePath)
		if pathArg == "" {
			return proposeEditsFormatError("", fmt.Sprintf("edit %d: file_path is required", i+1)), nil
		}

		action, ok := editActions[strings.TrimSpace(e.Action)]
		if !ok {
			if strings.TrimSpace(e.Action) == string(edit.ActionCreateFile) {
				return proposeEditsFormatError(pathArg, fmt.Sprintf("edit %d: use the propose_file tool to create new files", i+1)), nil
			}
			return proposeEditsFormatError(pathArg, fmt.Sprintf("edit %d: unknown action '%s'", i+1, e.Action)), nil
		}

		abs, err := session.root.Resolve(pathArg)
		if err != nil {
			events.Emit(ctx, events.TopicAgent, events.NewWarn(fmt.Sprintf("ProposeEdits: %v", err)))
			return proposeEditsFormatError(pathArg, fmt.Sprintf("edit %d: path escapes the workspace root", i+1)), nil
		}
		rel := session.root.Rel(abs)

		st, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return proposeEditsFormatError(rel, fmt.Sprintf("edit %d: %s does not exist; use propose_file to create it", i+1, rel)), nil
			}
			return nil, err
		}
		if st.IsDir() {
			return proposeEditsFormatError(rel, fmt.Sprintf("edit %d: %s is a directory", i+1, rel)), nil
		}
		if bin, err := isBinaryFile(abs); err != nil {
			return nil, err
		} else if bin {
			return proposeEditsFormatError(rel, fmt.Sprintf("edit %d: %s is a binary file and cannot be edited", i+1, rel)), nil
		}

		if action != edit.ActionReplaceFile && action != edit.ActionInsert {
			if e.StartLine < 1 {
				return proposeEditsFormatError(rel, fmt.Sprintf("edit %d: start_line is required for %s", i+1, action)), nil
			}
			if e.EndLine < e.StartLine {
				return proposeEditsFormatError(rel, fmt.Sprintf("edit %d: end_line must not precede start_line", i+1)), nil
			}
		}

		instructions = append(instructions, edit.Instruction{
			FilePath:     rel,
			Action:       action,
			Code:         e.Code,
			InsertAtLine: e.InsertAtLine,
			StartLine:    e.StartLine,
			EndLine:      e.EndLine,
		})
	}

	if session.proposals == nil {
		return nil, fmt.Errorf("no proposal recorder bound for this session")
	}
	session.proposals.Record(instructions, strings.TrimSpace(in.Summary))
	session.proposals.SetSummary(strings.TrimSpace(in.Summary))

	lines := make([]string, 0, len(instructions)+1)
	lines = append(lines, fmt.Sprintf("Queued %d edit(s) for review:", len(instructions)))
	for _, ins := range instructions {
		lines = append(lines, "- "+ins.Describe())
	}
	lines = append(lines, "", "The user will accept or reject each edit. Do not assume the changes are applied.")

	events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventSuccess, fmt.Sprintf("Proposed %d edit(s)", len(instructions)), "propose_edits", instructions[0].FilePath))

	return &ProposeEditsOutput{
		Title:  fmt.Sprintf("%d proposed edit(s)", len(instructions)),
		Output: strings.Join(lines, "\n"),
		Metadata: map[string]string{
			"edits": fmt.Sprintf("%d", len(instructions)),
		},
	}, nil
}

func proposeEditsFormatError(title, msg string) *ProposeEditsOutput {
	return &ProposeEditsOutput{
		Title:  title,
		Output: "Format error: " + msg,
		Metadata: map[string]string{
			"error": "format_error",
			"edits": "0",
		},
	}
}
