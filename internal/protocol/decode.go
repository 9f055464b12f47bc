package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownType reports a message whose "type" tag is not part of
	// either protocol generation.
	ErrUnknownType = errors.New("unknown message type")
	// ErrUnknownResultType reports an agent_result with an unrecognized
	// discriminator.
	ErrUnknownResultType = errors.New("unknown result type")
)

// Decode turns one wire message into its internal variant. The overloaded
// response_complete type is split here by the presence of the intent field,
// so the two completion shapes never share a struct downstream.
func Decode(data []byte) (Message, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case typeAction:
		var m struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		return TurnStart{Generation: GenerationFlat, Action: m.Action}, nil

	case typeLLMChunk:
		var m struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode llm_chunk: %w", err)
		}
		return Fragment{Text: m.Text}, nil

	case typeIntent:
		var m struct {
			Intent string `json:"intent"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode intent: %w", err)
		}
		return TurnStart{Generation: GenerationRich, Intent: m.Intent}, nil

	case typeAgentResult:
		return decodeAgentResult(data)

	case typeResponseComplete:
		return decodeCompletion(data)

	case typeError:
		var m struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode error message: %w", err)
		}
		return ProtocolError{Message: m.Error}, nil

	case typeUserMessage:
		var m UserMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode user_message: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeAgentResult(data []byte) (Message, error) {
	var env struct {
		ResultType string `json:"result_type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode agent_result: %w", err)
	}

	switch env.ResultType {
	case resultTypeCodeAction:
		var m CodeActionResult
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode code_action: %w", err)
		}
		return m, nil

	case resultTypeDebugResult:
		var m DebugResult
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode debug_result: %w", err)
		}
		return m, nil

	case resultTypeWorkflow:
		var m WorkflowResult
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode workflow_result: %w", err)
		}
		return m, nil

	case resultTypeExplanation, resultTypeChat:
		var m ExplanationResult
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode explanation: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownResultType, env.ResultType)
	}
}

// decodeCompletion splits the one overloaded wire type into the two real
// ones. A present intent field, even an empty one, selects the rich shape.
func decodeCompletion(data []byte) (Message, error) {
	var m struct {
		Intent *string         `json:"intent"`
		Result json.RawMessage `json:"result"`
		Text   string          `json:"text"`
		Error  string          `json:"error"`
		Action string          `json:"action"`
		Code   string          `json:"code"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode response_complete: %w", err)
	}

	if m.Intent != nil {
		return CompletionRich{
			Intent: *m.Intent,
			Result: []byte(m.Result),
			Text:   m.Text,
			Err:    m.Error,
		}, nil
	}
	return CompletionFlat{
		Text:   m.Text,
		Action: m.Action,
		Code:   m.Code,
	}, nil
}

// Encode renders an internal variant back onto the wire. The agent side
// uses it to speak both generations; the shell uses it for user messages.
func Encode(m Message) ([]byte, error) {
	switch m := m.(type) {
	case TurnStart:
		if m.Generation == GenerationRich {
			return json.Marshal(map[string]any{"type": typeIntent, "intent": m.Intent})
		}
		return json.Marshal(map[string]any{"type": typeAction, "action": m.Action})
	case Fragment:
		return json.Marshal(map[string]any{"type": typeLLMChunk, "text": m.Text})
	case CodeActionResult:
		return json.Marshal(map[string]any{
			"type": typeAgentResult, "result_type": resultTypeCodeAction,
			"edits": m.Edits, "summary": m.Summary, "explanation": m.Explanation,
		})
	case DebugResult:
		return json.Marshal(map[string]any{
			"type": typeAgentResult, "result_type": resultTypeDebugResult,
			"diagnosis": m.Diagnosis, "findings": m.Findings, "fix_suggestion": m.FixSuggestion,
		})
	case WorkflowResult:
		return json.Marshal(map[string]any{
			"type": typeAgentResult, "result_type": resultTypeWorkflow,
			"steps": m.Steps, "summary": m.Summary,
		})
	case ExplanationResult:
		return json.Marshal(map[string]any{
			"type": typeAgentResult, "result_type": resultTypeExplanation, "text": m.Text,
		})
	case CompletionFlat:
		return json.Marshal(map[string]any{
			"type": typeResponseComplete, "text": m.Text, "action": m.Action, "code": m.Code,
		})
	case CompletionRich:
		payload := map[string]any{
			"type": typeResponseComplete, "intent": m.Intent, "text": m.Text,
		}
		if len(m.Result) > 0 {
			payload["result"] = json.RawMessage(m.Result)
		}
		if m.Err != "" {
			payload["error"] = m.Err
		}
		return json.Marshal(payload)
	case ProtocolError:
		return json.Marshal(map[string]any{"type": typeError, "error": m.Message})
	case UserMessage:
		return json.Marshal(map[string]any{"type": typeUserMessage, "text": m.Text})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}
