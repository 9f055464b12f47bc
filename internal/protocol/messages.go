// Package protocol defines the wire messages exchanged with the agent and
// the dispatcher that turns each inbound message into exactly one typed
// callback. Two message generations share the channel: the flat
// action/llm_chunk form and the richer intent/agent_result form. The decode
// boundary resolves every generation ambiguity here so the rest of the
// engine only ever sees distinct variants.
package protocol

import "codepair/internal/edit"

// Generation tags which protocol shape a turn is speaking.
type Generation string

const (
	GenerationFlat Generation = "flat"
	GenerationRich Generation = "rich"
)

// Wire values of the "type" field.
const (
	typeAction           = "action"
	typeLLMChunk         = "llm_chunk"
	typeIntent           = "intent"
	typeAgentResult      = "agent_result"
	typeResponseComplete = "response_complete"
	typeError            = "error"
	typeUserMessage      = "user_message"
)

// Wire values of the agent_result "result_type" discriminator.
const (
	resultTypeCodeAction  = "code_action"
	resultTypeDebugResult = "debug_result"
	resultTypeWorkflow    = "workflow_result"
	resultTypeExplanation = "explanation"
	resultTypeChat        = "chat"
)

// Message is one decoded inbound wire message.
type Message interface {
	isMessage()
}

// TurnStart opens a turn: an action message on the flat generation or an
// intent message on the rich one. Either way the caller sees a started turn
// with zero accumulated text.
type TurnStart struct {
	Generation Generation
	Action     string
	Intent     string
}

// Fragment is one flat-generation token chunk. Fragments concatenate in
// arrival order, each exactly once.
type Fragment struct {
	Text string
}

// CodeActionResult is a rich-generation structured result carrying edit
// instructions for review.
type CodeActionResult struct {
	Edits       []edit.Instruction `json:"edits"`
	Summary     string             `json:"summary"`
	Explanation string             `json:"explanation"`
}

// DebugResult is a rich-generation diagnosis of a failure the agent
// investigated.
type DebugResult struct {
	Diagnosis     string   `json:"diagnosis"`
	Findings      []string `json:"findings"`
	FixSuggestion string   `json:"fix_suggestion"`
}

// WorkflowStep is one step of a multi-stage agent workflow.
type WorkflowStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// WorkflowResult reports a completed multi-stage workflow.
type WorkflowResult struct {
	Steps   []WorkflowStep `json:"steps"`
	Summary string         `json:"summary"`
}

// ExplanationResult is the shared payload of explanation and chat results:
// prose that replaces the open bubble's text wholesale.
type ExplanationResult struct {
	Text string `json:"text"`
}

// CompletionFlat terminates a flat-generation turn.
type CompletionFlat struct {
	Text   string
	Action string
	Code   string
}

// CompletionRich terminates a rich-generation turn. Result carries the
// final structured payload verbatim; consumers that need it re-decode by
// intent.
type CompletionRich struct {
	Intent string
	Result []byte
	Text   string
	Err    string
}

// ProtocolError is an explicit error message from the agent. It ends the
// current turn; retries belong to the transport, never to the dispatcher.
type ProtocolError struct {
	Message string
}

// UserMessage is the outbound shell-to-agent message.
type UserMessage struct {
	Text string `json:"text"`
}

func (TurnStart) isMessage()         {}
func (Fragment) isMessage()          {}
func (CodeActionResult) isMessage()  {}
func (DebugResult) isMessage()       {}
func (WorkflowResult) isMessage()    {}
func (ExplanationResult) isMessage() {}
func (CompletionFlat) isMessage()    {}
func (CompletionRich) isMessage()    {}
func (ProtocolError) isMessage()     {}
func (UserMessage) isMessage()       {}
