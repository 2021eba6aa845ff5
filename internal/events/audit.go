package events

import (
	"context"

	"go.uber.org/zap"
)

// RegisterAuditLog subscribes a structured audit trail for every event
// type the governance layer emits.
func RegisterAuditLog(dispatcher Dispatcher, logger *zap.Logger) {
	handler := func(_ context.Context, event Event) error {
		logger.Info("audit",
			zap.String("event", string(event.Type)),
			zap.String("resource_id", event.ResourceID),
			zap.String("subject_id", event.Actor.SubjectID),
			zap.Time("at", event.Timestamp),
		)
		return nil
	}

	for _, eventType := range []EventType{
		EventContentCreated,
		EventContentUpdated,
		EventContentDeleted,
		EventRequestDenied,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
