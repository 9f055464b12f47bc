package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codepair/internal/protocol"
	"codepair/internal/workspace"
)

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"fix the race in the watcher", IntentCodeAction},
		{"please add a retry loop", IntentCodeAction},
		{"refactor the parser", IntentCodeAction},
		{"why does startup take so long?", IntentExplanation},
		{"explain the ledger transitions", IntentExplanation},
		{"hello there", IntentChat},
		{"thanks!", IntentChat},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyIntent(tc.text), "text: %q", tc.text)
	}
}

func TestExtractCodeBlock(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"no fence", "plain prose", ""},
		{"single block", "before\n```go\nfunc A() {}\n```\nafter", "func A() {}"},
		{"last block wins", "```go\nfirst\n```\ntext\n```go\nsecond\n```", "second"},
		{"unterminated fence ignored", "```go\ncomplete\n```\nand ```go\ndangling", "complete"},
		{"inline fence", "use ```go fmt``` here", "go fmt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractCodeBlock(tc.text))
		})
	}
}

type messageCollector struct {
	messages []protocol.Message
}

func (m *messageCollector) emit(msg protocol.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func newTestRunner(t *testing.T, generation protocol.Generation) (*Runner, *messageCollector) {
	t.Helper()
	root, err := workspace.NewRoot(t.TempDir())
	require.NoError(t, err)
	runner := NewRunner(newTestClient(), "runner-test-"+string(generation), root, generation, nil)
	t.Cleanup(runner.Close)
	return runner, &messageCollector{}
}

func TestRunTurnRejectsEmptyText(t *testing.T) {
	runner, col := newTestRunner(t, protocol.GenerationRich)
	err := runner.RunTurn(context.Background(), "   ", col.emit)
	assert.Error(t, err)
	assert.Empty(t, col.messages)
}

func TestRunTurnFailureEmitsTurnStartThenError(t *testing.T) {
	// The test client has no chat model, so agent construction fails after
	// the turn has opened; the wire must still see a well-formed sequence.
	runner, col := newTestRunner(t, protocol.GenerationRich)

	err := runner.RunTurn(context.Background(), "fix the bug in main.go", col.emit)
	require.Error(t, err)
	require.GreaterOrEqual(t, len(col.messages), 2)

	start, ok := col.messages[0].(protocol.TurnStart)
	require.True(t, ok, "first message must open the turn, got %T", col.messages[0])
	assert.Equal(t, protocol.GenerationRich, start.Generation)
	assert.Equal(t, IntentCodeAction, start.Intent)

	_, ok = col.messages[len(col.messages)-1].(protocol.ProtocolError)
	assert.True(t, ok, "last message must be a protocol error, got %T", col.messages[len(col.messages)-1])

	// The failed turn released the guard.
	assert.False(t, runner.client.IsRunning())
}

func TestRunTurnFlatGenerationOpensWithAction(t *testing.T) {
	runner, col := newTestRunner(t, protocol.GenerationFlat)

	_ = runner.RunTurn(context.Background(), "explain the dispatcher", col.emit)
	require.NotEmpty(t, col.messages)

	start, ok := col.messages[0].(protocol.TurnStart)
	require.True(t, ok)
	assert.Equal(t, protocol.GenerationFlat, start.Generation)
	assert.Equal(t, IntentExplanation, start.Action)
	assert.Empty(t, start.Intent)
}

func TestRunTurnGuardsConcurrentTurns(t *testing.T) {
	runner, col := newTestRunner(t, protocol.GenerationRich)

	cancel := func() {}
	require.NoError(t, runner.client.beginTurn(cancel))
	defer runner.client.endTurn()

	err := runner.RunTurn(context.Background(), "hello", col.emit)
	assert.ErrorIs(t, err, ErrTurnInProgress)
	assert.Empty(t, col.messages)
}

func TestNewServerValidation(t *testing.T) {
	root, err := workspace.NewRoot(t.TempDir())
	require.NoError(t, err)

	_, err = NewServer(ServerConfig{Root: root})
	assert.Error(t, err)

	_, err = NewServer(ServerConfig{Client: newTestClient()})
	assert.Error(t, err)

	srv, err := NewServer(ServerConfig{Client: newTestClient(), Root: root})
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, srv.Addr())
	assert.Equal(t, "ws://127.0.0.1:8731/session", SessionURL(srv.Addr()))
}
