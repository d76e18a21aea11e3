package service

import (
	"context"

	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/pkg/events"
	pktNats "ai-knowledgebase-be/pkg/nats"
)

// NewLifecycleAuditHandler returns a bus handler that writes every job
// lifecycle event to the structured log, giving operators an audit trail of
// started/completed/failed/cancelled runs across instances.
func NewLifecycleAuditHandler(log logger.ILogger) pktNats.EventHandler {
	return func(_ context.Context, event events.Event) error {
		details := map[string]interface{}{
			"event_type":  event.EventType(),
			"occurred_at": event.Timestamp(),
		}
		for k, v := range event.Payload() {
			details[k] = v
		}
		log.Info("events", "indexing lifecycle event", details)
		return nil
	}
}
