package events

import (
	"go.uber.org/zap"
)

func logEvent(logger *zap.Logger, name string, event EngineEvent) {
	fields := []zap.Field{
		zap.String("topic", name),
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
	}
	if event.SessionKey != "" {
		fields = append(fields, zap.String("session", event.SessionKey))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String(k, v))
	}

	switch event.Type {
	case EventError:
		logger.Error(event.Message, fields...)
	case EventWarn:
		logger.Warn(event.Message, fields...)
	default:
		logger.Info(event.Message, fields...)
	}
}
