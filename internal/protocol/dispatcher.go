package protocol

import (
	"go.uber.org/zap"
)

// Handlers receives the typed callbacks. Nil fields drop their messages,
// which keeps partial consumers (tests, the agent's own loopback) cheap.
type Handlers struct {
	TurnStarted func(start TurnStart)
	Fragment    func(text string)
	CodeAction  func(res CodeActionResult)
	Debug       func(res DebugResult)
	Workflow    func(res WorkflowResult)
	Explanation func(res ExplanationResult)
	DoneFlat    func(done CompletionFlat)
	DoneRich    func(done CompletionRich)
	TurnFailed  func(perr ProtocolError)
}

// Dispatcher classifies inbound messages: exactly one callback per message,
// selected by the wire tags alone. It holds no per-turn state; the open
// bubble and accumulated text live with the caller, which is what makes the
// dispatcher testable in isolation.
//
// Malformed payloads and unknown type or result_type tags are dropped
// silently, logged at debug level only: a newer agent speaking a newer
// message must not crash an older shell.
type Dispatcher struct {
	handlers Handlers
	logger   *zap.Logger
}

func NewDispatcher(h Handlers, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{handlers: h, logger: logger}
}

// Dispatch routes one raw wire message.
func (d *Dispatcher) Dispatch(raw []byte) {
	msg, err := Decode(raw)
	if err != nil {
		d.logger.Debug("dropping undecodable message", zap.Error(err))
		return
	}
	d.DispatchMessage(msg)
}

// DispatchMessage routes an already-decoded message. The transport layer
// uses Dispatch; in-process callers and tests can skip the re-decode.
func (d *Dispatcher) DispatchMessage(msg Message) {
	switch m := msg.(type) {
	case TurnStart:
		if d.handlers.TurnStarted != nil {
			d.handlers.TurnStarted(m)
		}
	case Fragment:
		if d.handlers.Fragment != nil {
			d.handlers.Fragment(m.Text)
		}
	case CodeActionResult:
		if d.handlers.CodeAction != nil {
			d.handlers.CodeAction(m)
		}
	case DebugResult:
		if d.handlers.Debug != nil {
			d.handlers.Debug(m)
		}
	case WorkflowResult:
		if d.handlers.Workflow != nil {
			d.handlers.Workflow(m)
		}
	case ExplanationResult:
		if d.handlers.Explanation != nil {
			d.handlers.Explanation(m)
		}
	case CompletionFlat:
		if d.handlers.DoneFlat != nil {
			d.handlers.DoneFlat(m)
		}
	case CompletionRich:
		if d.handlers.DoneRich != nil {
			d.handlers.DoneRich(m)
		}
	case ProtocolError:
		if d.handlers.TurnFailed != nil {
			d.handlers.TurnFailed(m)
		}
	default:
		d.logger.Debug("dropping unroutable message", zap.Any("message", msg))
	}
}
