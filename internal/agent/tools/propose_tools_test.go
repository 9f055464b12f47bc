package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codepair/internal/edit"
)

func TestProposeEditsRecordsInstructions(t *testing.T) {
	ctx, recorder, _ := bindTestSession(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	out, err := ProposeEdits(ctx, &ProposeEditsInput{
		Summary: "Add a greeting",
		Edits: []ProposedEdit{
			{FilePath: "main.go", Action: "insert", Code: "// greeting", InsertAtLine: 3},
			{FilePath: "main.go", Action: "replace_selection", Code: "func main() { run() }", StartLine: 3, EndLine: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2", out.Metadata["edits"])
	assert.Contains(t, out.Output, "Queued 2 edit(s) for review")

	instructions, _, summary := recorder.Drain()
	require.Len(t, instructions, 2)
	assert.Equal(t, edit.ActionInsert, instructions[0].Action)
	assert.Equal(t, edit.ActionReplaceSelection, instructions[1].Action)
	assert.Equal(t, "main.go", instructions[0].FilePath)
	assert.Equal(t, "Add a greeting", summary)

	// Drain resets the recorder.
	assert.Zero(t, recorder.Len())
}

func TestProposeEditsRejectsMissingFile(t *testing.T) {
	ctx, recorder, _ := bindTestSession(t, nil)

	out, err := ProposeEdits(ctx, &ProposeEditsInput{
		Edits: []ProposedEdit{{FilePath: "ghost.go", Action: "replace_file", Code: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "format_error", out.Metadata["error"])
	assert.Contains(t, out.Output, "propose_file")
	assert.Zero(t, recorder.Len())
}

func TestProposeEditsRedirectsCreateFile(t *testing.T) {
	ctx, _, _ := bindTestSession(t, nil)

	out, err := ProposeEdits(ctx, &ProposeEditsInput{
		Edits: []ProposedEdit{{FilePath: "new.go", Action: "create_file", Code: "package new"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "format_error", out.Metadata["error"])
	assert.Contains(t, out.Output, "propose_file")
}

func TestProposeEditsValidatesRanges(t *testing.T) {
	ctx, _, _ := bindTestSession(t, map[string]string{"a.go": "1\n2\n3\n"})

	out, err := ProposeEdits(ctx, &ProposeEditsInput{
		Edits: []ProposedEdit{{FilePath: "a.go", Action: "delete_lines", StartLine: 3, EndLine: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "format_error", out.Metadata["error"])
	assert.Contains(t, out.Output, "end_line")

	out, err = ProposeEdits(ctx, &ProposeEditsInput{
		Edits: []ProposedEdit{{FilePath: "a.go", Action: "replace_selection", Code: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "format_error", out.Metadata["error"])
	assert.Contains(t, out.Output, "start_line")
}

func TestProposeEditsRejectsEscape(t *testing.T) {
	ctx, recorder, _ := bindTestSession(t, nil)

	out, err := ProposeEdits(ctx, &ProposeEditsInput{
		Edits: []ProposedEdit{{FilePath: "../../etc/passwd", Action: "replace_file", Code: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "format_error", out.Metadata["error"])
	assert.Zero(t, recorder.Len())
}

func TestProposeFileRecordsCreation(t *testing.T) {
	ctx, recorder, _ := bindTestSession(t, nil)

	out, err := ProposeFile(ctx, &ProposeFileInput{FilePath: "pkg/new.go", Content: "package pkg\n"})
	require.NoError(t, err)
	assert.Contains(t, out.Output, "Queued creation of pkg/new.go")

	instructions, _, _ := recorder.Drain()
	require.Len(t, instructions, 1)
	assert.Equal(t, edit.ActionCreateFile, instructions[0].Action)
	assert.Equal(t, "pkg/new.go", instructions[0].FilePath)
	assert.Equal(t, "package pkg\n", instructions[0].Code)
}

func TestProposeFileRejectsExisting(t *testing.T) {
	ctx, recorder, _ := bindTestSession(t, map[string]string{"taken.go": "package taken\n"})

	out, err := ProposeFile(ctx, &ProposeFileInput{FilePath: "taken.go", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "format_error", out.Metadata["error"])
	assert.Contains(t, out.Output, "already exists")
	assert.Zero(t, recorder.Len())
}

func TestRecorderAccumulatesAcrossCalls(t *testing.T) {
	recorder := NewRecorder()
	recorder.Record([]edit.Instruction{{FilePath: "a", Action: edit.ActionReplaceFile}}, "first")
	recorder.Record([]edit.Instruction{{FilePath: "b", Action: edit.ActionInsert}}, "second")
	recorder.SetSummary("overall")

	assert.Equal(t, 2, recorder.Len())
	instructions, notes, summary := recorder.Drain()
	assert.Len(t, instructions, 2)
	assert.Equal(t, []string{"first", "second"}, notes)
	assert.Equal(t, "overall", summary)
}
