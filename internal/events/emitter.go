package events

import (
	"context"

	"go.uber.org/zap"
)

// Emit publishes one engine event. It defaults to a no-op so library code
// can emit unconditionally; the process entry point installs a real sink.
var Emit = func(ctx context.Context, name string, evt EngineEvent) {}

// EnableLoggerEmitter routes every event into the given logger.
func EnableLoggerEmitter(logger *zap.Logger) {
	Emit = func(ctx context.Context, name string, evt EngineEvent) {
		if evt.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				evt.SessionKey = session
			}
		}
		logEvent(logger, name, evt)
	}
}

// SetCustomEmitter installs an arbitrary sink, typically the shell's
// program feed or a test recorder. A nil sink restores the no-op.
func SetCustomEmitter(f func(ctx context.Context, name string, evt EngineEvent)) {
	if f == nil {
		Emit = func(context.Context, string, EngineEvent) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt EngineEvent) {
		if evt.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				evt.SessionKey = session
			}
		}
		f(ctx, name, evt)
	}
}
