package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"codepair/internal/agent/tools"
	"codepair/internal/events"
	"codepair/internal/protocol"
	"codepair/internal/workspace"
)

const maxAgentSteps = 100

// Turn intents spoken on the rich protocol. The flat generation reuses the
// same strings as its action tag.
const (
	IntentCodeAction  = "code_action"
	IntentExplanation = "explanation"
	IntentChat        = "chat"
)

// EmitFunc delivers one outbound protocol message. Implementations encode
// and send; the runner never sees the wire.
type EmitFunc func(protocol.Message) error

// Runner turns user messages into agent turns: it binds the workspace
// session for the tools, drives the ReAct agent stream, and converts what
// happens into protocol messages in turn order (turn start, fragments,
// structured results, completion).
type Runner struct {
	client     *Client
	sessionID  string
	generation protocol.Generation
	recorder   *tools.Recorder
	logger     *zap.Logger
}

// NewRunner binds a workspace root to a session and returns a runner
// speaking the given protocol generation. Close releases the binding.
func NewRunner(client *Client, sessionID string, root workspace.Root, generation protocol.Generation, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := tools.NewRecorder()
	tools.BindSession(sessionID, root, recorder)
	return &Runner{
		client:     client,
		sessionID:  sessionID,
		generation: generation,
		recorder:   recorder,
		logger:     logger.Named("runner"),
	}
}

// SessionID returns the logical session this runner serves.
func (r *Runner) SessionID() string { return r.sessionID }

// Generation returns the protocol generation this runner speaks.
func (r *Runner) Generation() protocol.Generation { return r.generation }

// Close releases the session binding. The runner must not be used after.
func (r *Runner) Close() {
	tools.ReleaseSession(r.sessionID)
}

// RunTurn executes one agent turn for the given user text, emitting
// protocol messages as the turn progresses. A canceled turn ends with an
// error message on the wire but returns nil; emit failures and stream
// failures are returned to the caller.
func (r *Runner) RunTurn(ctx context.Context, text string, emit EmitFunc) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("user message is empty")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := r.client.beginTurn(cancel); err != nil {
		return err
	}
	defer r.client.endTurn()

	runCtx = events.WithSession(runCtx, r.sessionID)
	runCtx = tools.ContextWithSession(runCtx, r.sessionID)

	rich := r.generation == protocol.GenerationRich
	intent := classifyIntent(text)

	var start protocol.Message
	if rich {
		start = protocol.TurnStart{Generation: protocol.GenerationRich, Intent: intent}
	} else {
		start = protocol.TurnStart{Generation: protocol.GenerationFlat, Action: intent}
	}
	if err := emit(start); err != nil {
		return err
	}
	events.Emit(runCtx, events.TopicTurn, events.NewInfo(fmt.Sprintf("Turn started (%s)", intent)))

	if r.client.chatModel == nil {
		return r.fail(runCtx, emit, errors.New("no chat model configured for this session"))
	}

	r.recorder.Reset()
	toolSet, err := r.client.InitTools(rich)
	if err != nil {
		return r.fail(runCtx, emit, fmt.Errorf("init tools: %w", err))
	}

	persona := Prompt("persona")
	if !rich {
		persona = Prompt("compat")
	}

	ra, err := react.NewAgent(runCtx, &react.AgentConfig{
		ToolCallingModel: r.client.chatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: toolSet,
		},
		MessageModifier: func(ctx context.Context, input []*schema.Message) []*schema.Message {
			res := make([]*schema.Message, 0, len(input)+1)
			res = append(res, schema.SystemMessage(persona))
			res = append(res, input...)
			return res
		},
		MaxStep: maxAgentSteps,
	})
	if err != nil {
		return r.fail(runCtx, emit, fmt.Errorf("create agent: %w", err))
	}

	history := r.client.History()
	userText := text
	if len(history) == 0 {
		if preview := tools.WorkspacePreview(runCtx); preview != "" {
			userText = preview + "\n\n" + text
		}
	}
	messages := append(history, schema.UserMessage(userText))

	reader, err := ra.Stream(runCtx, messages)
	if err != nil {
		return r.fail(runCtx, emit, fmt.Errorf("start agent stream: %w", err))
	}
	if reader == nil {
		return r.fail(runCtx, emit, errors.New("agent produced no stream reader"))
	}
	defer reader.Close()

	var final strings.Builder
	for {
		msg, recvErr := reader.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if errors.Is(recvErr, context.Canceled) || runCtx.Err() != nil {
				r.logger.Info("turn canceled", zap.String("session", r.sessionID))
				events.Emit(runCtx, events.TopicTurn, events.NewWarn("Turn canceled"))
				return emit(protocol.ProtocolError{Message: "turn canceled"})
			}
			return r.fail(runCtx, emit, fmt.Errorf("agent stream: %w", recvErr))
		}
		if msg == nil || msg.Role != schema.Assistant || msg.Content == "" {
			continue
		}
		final.WriteString(msg.Content)
		if err := emit(protocol.Fragment{Text: msg.Content}); err != nil {
			return err
		}
	}

	finalText := final.String()
	r.client.appendHistory(schema.UserMessage(userText), schema.AssistantMessage(finalText, nil))

	if !rich {
		events.Emit(runCtx, events.TopicTurn, events.NewSuccess("Turn complete"))
		return emit(protocol.CompletionFlat{
			Text:   finalText,
			Action: intent,
			Code:   extractCodeBlock(finalText),
		})
	}

	instructions, notes, summary := r.recorder.Drain()
	if len(instructions) == 0 {
		events.Emit(runCtx, events.TopicTurn, events.NewSuccess("Turn complete"))
		return emit(protocol.CompletionRich{Intent: intent, Text: finalText})
	}

	if summary == "" {
		summary = strings.Join(notes, " ")
	}
	result := protocol.CodeActionResult{
		Edits:       instructions,
		Summary:     summary,
		Explanation: finalText,
	}
	if err := emit(result); err != nil {
		return err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return r.fail(runCtx, emit, fmt.Errorf("marshal code action result: %w", err))
	}
	events.Emit(runCtx, events.TopicTurn, events.NewSuccess(fmt.Sprintf("Turn complete with %d proposed edit(s)", len(instructions))))
	return emit(protocol.CompletionRich{
		Intent: IntentCodeAction,
		Result: raw,
		Text:   finalText,
	})
}

// fail reports the turn failure on the wire and to the event feed, then
// returns the original error.
func (r *Runner) fail(ctx context.Context, emit EmitFunc, err error) error {
	r.logger.Error("turn failed", zap.String("session", r.sessionID), zap.Error(err))
	events.Emit(ctx, events.TopicTurn, events.NewError(err.Error()))
	if emitErr := emit(protocol.ProtocolError{Message: err.Error()}); emitErr != nil {
		return errors.Join(err, emitErr)
	}
	return err
}

// classifyIntent picks the turn intent from the user's phrasing. The intent
// opens the turn before the model has produced anything, so this is a
// heuristic; a code_action result can still follow a chat intent when the
// model decides to propose edits.
func classifyIntent(text string) string {
	t := " " + strings.ToLower(text) + " "
	for _, kw := range []string{" fix ", " add ", " change ", " refactor ", " implement ", " write ", " create ", " update ", " rename ", " remove ", " delete ", " make "} {
		if strings.Contains(t, kw) {
			return IntentCodeAction
		}
	}
	for _, kw := range []string{" why ", " how ", " what ", " where ", " explain ", " describe ", " understand "} {
		if strings.Contains(t, kw) {
			return IntentExplanation
		}
	}
	return IntentChat
}

// extractCodeBlock returns the content of the last complete fenced code
// block in text, with the fence's language line stripped.
func extractCodeBlock(text string) string {
	parts := strings.Split(text, "```")
	for i := len(parts) - 2; i >= 1; i-- {
		if i%2 == 0 {
			continue
		}
		block := parts[i]
		if nl := strings.IndexByte(block, '\n'); nl >= 0 {
			return strings.TrimRight(block[nl+1:], "\n")
		}
		return strings.TrimSpace(block)
	}
	return ""
}
