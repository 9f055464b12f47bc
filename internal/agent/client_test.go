package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenttools "codepair/internal/agent/tools"
	"codepair/internal/workspace"
)

func newTestClient() *Client {
	return newClient(nil, ProviderOpenAI, "test-model")
}

func TestConversationHistoryRoundTrip(t *testing.T) {
	c := newTestClient()
	assert.Empty(t, c.LastAssistantMessage())

	data, err := c.ConversationHistoryJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", data)

	require.NoError(t, c.LoadConversationHistoryJSON(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`))
	assert.Equal(t, "hello", c.LastAssistantMessage())
	assert.Len(t, c.History(), 2)

	data, err = c.ConversationHistoryJSON()
	require.NoError(t, err)

	restored := newTestClient()
	require.NoError(t, restored.LoadConversationHistoryJSON(data))
	assert.Equal(t, "hello", restored.LastAssistantMessage())

	require.NoError(t, restored.LoadConversationHistoryJSON(""))
	assert.Empty(t, restored.History())
}

func TestLoadConversationHistoryRejectsGarbage(t *testing.T) {
	c := newTestClient()
	assert.Error(t, c.LoadConversationHistoryJSON("{not json"))
}

func TestFileOpenHistoryDedupes(t *testing.T) {
	c := newTestClient()
	c.recordOpenedFile("a/b.go")
	c.recordOpenedFile("a/b.go")
	c.recordOpenedFile("  ")
	c.recordOpenedFile("c.go")

	assert.Equal(t, []string{"a/b.go", "c.go"}, c.FileOpenHistory())
	assert.True(t, c.hasOpenedFile("a/b.go"))
	assert.False(t, c.hasOpenedFile("d.go"))

	c.ResetFileOpenHistory()
	assert.Empty(t, c.FileOpenHistory())
}

func TestTurnGuard(t *testing.T) {
	c := newTestClient()
	assert.False(t, c.IsRunning())
	assert.False(t, c.StopStream())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.beginTurn(cancel))
	assert.True(t, c.IsRunning())
	assert.ErrorIs(t, c.beginTurn(cancel), ErrTurnInProgress)

	assert.True(t, c.StopStream())
	assert.Error(t, ctx.Err())

	c.endTurn()
	assert.False(t, c.IsRunning())
}

func TestInitToolsSetDependsOnGeneration(t *testing.T) {
	c := newTestClient()

	inspectOnly, err := c.InitTools(false)
	require.NoError(t, err)
	assert.Len(t, inspectOnly, 4)

	full, err := c.InitTools(true)
	require.NoError(t, err)
	assert.Len(t, full, 6)

	names := map[string]bool{}
	for _, tl := range full {
		info, err := tl.Info(context.Background())
		require.NoError(t, err)
		names[info.Name] = true
	}
	for _, want := range []string{"read_file", "list_directory", "glob", "grep", "propose_edits", "propose_file"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

// invokeTool runs a tool by name through its JSON calling convention, the
// way the agent graph does.
func invokeTool(t *testing.T, set []tool.BaseTool, name string, args any) string {
	t.Helper()
	for _, tl := range set {
		info, err := tl.Info(context.Background())
		require.NoError(t, err)
		if info.Name != name {
			continue
		}
		invokable, ok := tl.(tool.InvokableTool)
		require.True(t, ok, "tool %s is not invokable", name)
		payload, err := json.Marshal(args)
		require.NoError(t, err)
		out, err := invokable.InvokableRun(agenttools.ContextWithSession(context.Background(), testSessionID), string(payload))
		require.NoError(t, err)
		return out
	}
	t.Fatalf("tool %s not found", name)
	return ""
}

const testSessionID = "client-test-session"

func TestReadBeforeProposePolicy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	root, err := workspace.NewRoot(dir)
	require.NoError(t, err)

	recorder := agenttools.NewRecorder()
	agenttools.BindSession(testSessionID, root, recorder)
	t.Cleanup(func() { agenttools.ReleaseSession(testSessionID) })

	c := newTestClient()
	set, err := c.InitTools(true)
	require.NoError(t, err)

	proposal := map[string]any{
		"edits": []map[string]any{{
			"file_path":  "a.go",
			"action":     "replace_selection",
			"code":       "func A() { run() }",
			"start_line": 3,
			"end_line":   3,
		}},
		"summary": "wire A to run",
	}

	// Proposing before reading is refused.
	out := invokeTool(t, set, "propose_edits", proposal)
	assert.Contains(t, out, "Format error: read a.go")
	assert.Zero(t, recorder.Len())

	// Reading the file through the wrapped tool records it.
	out = invokeTool(t, set, "read_file", map[string]any{"file_path": "a.go"})
	assert.Contains(t, out, "00001| package a")
	assert.Equal(t, []string{"a.go"}, c.FileOpenHistory())

	// Now the same proposal is accepted and recorded.
	out = invokeTool(t, set, "propose_edits", proposal)
	assert.Contains(t, out, "Queued 1 edit(s) for review")
	assert.Equal(t, 1, recorder.Len())

	// Creating a brand-new file needs no prior read.
	out = invokeTool(t, set, "propose_file", map[string]any{"file_path": "b.go", "content": "package b\n"})
	assert.Contains(t, out, "Queued creation of b.go")
	assert.Equal(t, 2, recorder.Len())
}

func TestPromptsEmbedded(t *testing.T) {
	assert.NotEmpty(t, Prompt("persona"))
	assert.NotEmpty(t, Prompt("compat"))
	assert.Empty(t, Prompt("missing"))
}
