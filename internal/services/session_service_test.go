package services

import (
	"context"
	"errors"
	"testing"

	"codepair/internal/edit"
	"codepair/internal/models"
	"codepair/internal/protocol"
	"codepair/internal/review"
	"codepair/internal/transcript"
	"codepair/internal/workspace"
)

func TestMakeSessionKey(t *testing.T) {
	cases := []struct {
		conversationID uint
		expected       string
	}{
		{1, "session:1"},
		{42, "session:42"},
		{0, "session:0"},
	}

	for _, tc := range cases {
		if got := makeSessionKey(tc.conversationID); got != tc.expected {
			t.Fatalf("conversation %d: expected %s, got %s", tc.conversationID, tc.expected, got)
		}
	}
}

func TestResolveSessionKey(t *testing.T) {
	cases := []struct {
		name           string
		override       string
		conversationID uint
		expected       string
	}{
		{"override wins", "session:custom", 9, "session:custom"},
		{"override trimmed", "  session:custom  ", 9, "session:custom"},
		{"blank falls back", "   ", 9, "session:9"},
		{"empty falls back", "", 3, "session:3"},
	}

	for _, tc := range cases {
		if got := resolveSessionKey(tc.override, tc.conversationID); got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}
}

func TestErrorCodeAndDetail(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		detail string
	}{
		{"coded", errors.New("ERR_NO_API_KEY:anthropic"), CodeNoAPIKey, "anthropic"},
		{"coded no detail", errors.New("ERR_MODEL_DISABLED"), CodeModelDisabled, "ERR_MODEL_DISABLED"},
		{"plain", errors.New("dial tcp: connection refused"), "", "dial tcp: connection refused"},
		{"nil", nil, "", ""},
	}

	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.code {
			t.Fatalf("%s: expected code %q, got %q", tc.name, tc.code, got)
		}
		if got := ErrorDetail(tc.err); got != tc.detail {
			t.Fatalf("%s: expected detail %q, got %q", tc.name, tc.detail, got)
		}
	}
}

func TestFriendlyMessagePassesUnknownErrorsThrough(t *testing.T) {
	err := errors.New("something unexpected")
	if got := FriendlyMessage(err); got != "something unexpected" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := FriendlyMessage(errors.New("ERR_MODEL_DISABLED:GPT-4o")); got != "Model is disabled in settings: GPT-4o" {
		t.Fatalf("unexpected friendly message: %q", got)
	}
}

func TestProviderLabelOf(t *testing.T) {
	cases := []struct {
		name     string
		model    models.LLMModel
		expected string
	}{
		{"display name", models.LLMModel{ProviderID: "anthropic", ProviderName: "Anthropic"}, "Anthropic"},
		{"falls back to id", models.LLMModel{ProviderID: "anthropic"}, "anthropic"},
		{"trims", models.LLMModel{ProviderID: "openai", ProviderName: "  OpenAI  "}, "OpenAI"},
	}

	for _, tc := range cases {
		if got := providerLabelOf(&tc.model); got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}
}

type nullStorage struct{}

func (nullStorage) Write(ctx context.Context, cap review.WriteCapability, content string) error {
	return nil
}

func (nullStorage) Create(ctx context.Context, path, content string) (review.WriteCapability, error) {
	return nil, nil
}

// The sink opens a new snapshot round only when a batch actually carries
// instructions, observed through Ensure flipping between the marked and
// unmarked states.
func TestRoundSinkMarksNewRoundOnProposals(t *testing.T) {
	ctx := context.Background()
	snaps := workspace.NewSnapshotter(t.TempDir(), nil)
	orch := review.NewOrchestrator(nullStorage{}, nil, nil)
	resolve := func(path string) (review.ResolvedFile, error) {
		return review.ResolvedFile{Content: ""}, nil
	}
	sink := roundSink{orch: orch, snaps: snaps}

	// Burn the current round. The temp dir is not a repository, so Ensure
	// fails once and then reports the round as already handled.
	if err := snaps.Ensure(ctx); err == nil {
		t.Fatal("expected Ensure to fail outside a repository")
	}
	if err := snaps.Ensure(ctx); err != nil {
		t.Fatalf("round should be marked after first attempt, got %v", err)
	}

	sink.AddEditsFromInstructions(ctx, nil, resolve, "")
	if err := snaps.Ensure(ctx); err != nil {
		t.Fatalf("empty batch must not open a new round, got %v", err)
	}

	added := sink.AddEditsFromInstructions(ctx, []edit.Instruction{{
		FilePath: "main.go",
		Action:   edit.ActionCreateFile,
		Code:     "package main\n",
	}}, resolve, "bootstrap")
	if added != 1 {
		t.Fatalf("expected 1 edit added, got %d", added)
	}
	if err := snaps.Ensure(ctx); err == nil {
		t.Fatal("proposal batch should have opened a new snapshot round")
	}
}

type recordingConversations struct {
	entries  []*models.TranscriptEntry
	messages map[uint]string
}

func (r *recordingConversations) Startup(ctx context.Context) {}

func (r *recordingConversations) Ensure(ctx context.Context, workspaceID uint, title, provider, modelKey, generation string) (*models.Conversation, error) {
	return &models.Conversation{ID: 1}, nil
}

func (r *recordingConversations) ListByWorkspace(ctx context.Context, workspaceID uint) ([]models.Conversation, error) {
	return nil, nil
}

func (r *recordingConversations) SaveMessages(ctx context.Context, conversationID uint, messagesJSON string) error {
	if r.messages == nil {
		r.messages = make(map[uint]string)
	}
	r.messages[conversationID] = messagesJSON
	return nil
}

func (r *recordingConversations) AppendEntry(ctx context.Context, entry *models.TranscriptEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingConversations) Transcript(ctx context.Context, conversationID uint) ([]*models.TranscriptEntry, error) {
	return r.entries, nil
}

func (r *recordingConversations) RecordApplied(ctx context.Context, conversationID uint, e review.PendingEdit) error {
	return nil
}

func (r *recordingConversations) AppliedEdits(ctx context.Context, conversationID uint) ([]models.AppliedEdit, error) {
	return nil, nil
}

func (r *recordingConversations) DeleteThread(ctx context.Context, workspaceID uint, title string) error {
	return nil
}

func (r *recordingConversations) ClearHistory(ctx context.Context) error { return nil }

type discardSink struct{}

func (discardSink) AddEditsFromInstructions(ctx context.Context, instrs []edit.Instruction, resolve review.ContentResolver, explanation string) int {
	return 0
}

func TestPersistingHandlersStoreFinishedTurn(t *testing.T) {
	convs := &recordingConversations{}
	svc := NewSessionService(nil, nil, nil, convs, nil, nil, nil)

	resolve := func(path string) (review.ResolvedFile, error) {
		return review.ResolvedFile{}, errors.New("no workspace")
	}
	rt := &sessionRuntime{
		accumulator:  transcript.NewAccumulator(discardSink{}, resolve, nil, nil),
		conversation: &models.Conversation{ID: 7},
		ctx:          context.Background(),
	}

	handlers := svc.persistingHandlers(rt)
	handlers.TurnStarted(protocol.TurnStart{Generation: protocol.GenerationFlat, Action: "chat"})
	handlers.Fragment("Hello ")
	handlers.Fragment("world")
	handlers.DoneFlat(protocol.CompletionFlat{Action: "chat"})

	if len(convs.entries) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d", len(convs.entries))
	}
	entry := convs.entries[0]
	if entry.ConversationID != 7 {
		t.Fatalf("expected conversation 7, got %d", entry.ConversationID)
	}
	if entry.Role != string(transcript.RoleAssistant) {
		t.Fatalf("expected assistant role, got %s", entry.Role)
	}
	if entry.Content != "Hello world" {
		t.Fatalf("unexpected content: %q", entry.Content)
	}
	if entry.TurnID == "" {
		t.Fatal("expected the bubble id to be recorded as turn id")
	}

	// No in-process client on the runtime, so provider history must not be
	// written.
	if len(convs.messages) != 0 {
		t.Fatalf("expected no history writes, got %v", convs.messages)
	}
}

func TestPersistingHandlersSkipStreamingBubble(t *testing.T) {
	convs := &recordingConversations{}
	svc := NewSessionService(nil, nil, nil, convs, nil, nil, nil)

	resolve := func(path string) (review.ResolvedFile, error) {
		return review.ResolvedFile{}, errors.New("no workspace")
	}
	rt := &sessionRuntime{
		accumulator:  transcript.NewAccumulator(discardSink{}, resolve, nil, nil),
		conversation: &models.Conversation{ID: 7},
		ctx:          context.Background(),
	}

	rt.accumulator.StartTurn(protocol.TurnStart{Generation: protocol.GenerationRich, Intent: "chat"})
	rt.accumulator.AppendFragment("partial")

	svc.persistTurn(rt)
	if len(convs.entries) != 0 {
		t.Fatalf("streaming bubble must not be persisted, got %d entries", len(convs.entries))
	}
}
