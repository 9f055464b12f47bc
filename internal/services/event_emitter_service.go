package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"codepair/internal/events"
)

// EventEmitterService bridges engine events to the shell. While streaming it
// installs itself as the process-wide emitter and forwards every event to
// the configured sink (the running TUI program); stopped, events fall back
// to the logger.
type EventEmitterService struct {
	ctx    context.Context
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	sink    func(name string, evt events.EngineEvent)
}

func NewEventEmitterService(logger *zap.Logger) *EventEmitterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventEmitterService{logger: logger}
}

func (e *EventEmitterService) Startup(ctx context.Context) {
	e.ctx = ctx
	events.EnableLoggerEmitter(e.logger)
}

// SetSink points the stream at a consumer. Safe to call while streaming;
// subsequent events go to the new sink.
func (e *EventEmitterService) SetSink(sink func(name string, evt events.EngineEvent)) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

// StartStream redirects events from the logger to the sink. It reports
// whether the stream actually started.
func (e *EventEmitterService) StartStream() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil || e.running {
		return false
	}
	e.ctx, e.cancel = context.WithCancel(e.ctx)
	e.running = true
	events.SetCustomEmitter(e.emit)
	return true
}

// StopStream restores the logger emitter and cancels the stream context.
func (e *EventEmitterService) StopStream() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	if e.cancel != nil {
		e.cancel()
	}
	events.EnableLoggerEmitter(e.logger)
}

func (e *EventEmitterService) emit(ctx context.Context, name string, evt events.EngineEvent) {
	e.mu.Lock()
	sink := e.sink
	running := e.running
	e.mu.Unlock()

	if running && sink != nil {
		sink(name, evt)
		return
	}
	e.logger.Debug("event dropped, no sink attached", zap.String("topic", name), zap.String("message", evt.Message))
}
