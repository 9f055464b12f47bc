package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType classifies an EngineEvent for display. Info and success render
// as routine feed entries; warn and error are surfaced prominently.
type EventType string

const (
	// EventInfo marks routine progress.
	EventInfo EventType = "info"
	// EventSuccess marks a completed operation.
	EventSuccess EventType = "success"
	// EventWarn marks a recoverable problem, usually a rejected tool input.
	EventWarn EventType = "warn"
	// EventError marks a failed operation.
	EventError EventType = "error"
)

// Event topics. The shell subscribes to these to drive its activity feed.
const (
	TopicReview   = "event:review:edit"
	TopicTurn     = "event:session:turn"
	TopicAgent    = "event:agent:tool"
	TopicSnapshot = "event:workspace:snapshot"
)

// EngineEvent is one backend happening surfaced to the shell: an edit was
// proposed or resolved, a turn advanced, an agent tool ran, a snapshot was
// taken.
type EngineEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// SessionKey scopes the event to one conversation. Emit backfills it
	// from the context when the producer leaves it empty.
	SessionKey string `json:"sessionKey,omitempty"`

	// Metadata carries per-tool details such as the path operated on.
	Metadata map[string]string `json:"metadata,omitempty"`
}

type sessionCtxKey struct{}

// WithSession tags ctx with the session key so events emitted downstream
// carry it without every producer threading the key by hand.
func WithSession(ctx context.Context, sessionKey string) context.Context {
	key := strings.TrimSpace(sessionKey)
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionCtxKey{}, key)
}

// SessionFromContext reads back the key stored by WithSession, or "".
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(sessionCtxKey{}).(string)
	return key
}

// newEvent stamps a fresh event with identity and wall-clock time.
func newEvent(t EventType, message string) EngineEvent {
	return EngineEvent{ID: uuid.NewString(), Type: t, Message: message, Timestamp: time.Now()}
}

// NewInfo, NewWarn, NewError and NewSuccess build bare events of the
// corresponding type.
func NewInfo(message string) EngineEvent    { return newEvent(EventInfo, message) }
func NewWarn(message string) EngineEvent    { return newEvent(EventWarn, message) }
func NewError(message string) EngineEvent   { return newEvent(EventError, message) }
func NewSuccess(message string) EngineEvent { return newEvent(EventSuccess, message) }

// NewToolEvent builds an event annotated with the tool that produced it and
// the path it operated on.
func NewToolEvent(t EventType, message, tool, path string) EngineEvent {
	evt := newEvent(t, message)
	evt.Metadata = map[string]string{"tool": tool, "path": path}
	return evt
}
