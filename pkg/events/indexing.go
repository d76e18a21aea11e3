package events

import (
	"time"

	"github.com/google/uuid"
)

// Indexing job lifecycle event codes.
const (
	IndexingStarted   = "INDEXING_STARTED"
	IndexingCompleted = "INDEXING_COMPLETED"
	IndexingFailed    = "INDEXING_FAILED"
	IndexingCancelled = "INDEXING_CANCELLED"
)

// NewIndexingEvent builds a lifecycle event for a job. Details beyond the
// job and user ids are optional and merged into the payload.
func NewIndexingEvent(eventType string, jobId, userId uuid.UUID, details map[string]interface{}) Event {
	data := map[string]interface{}{
		"job_id":  jobId.String(),
		"user_id": userId.String(),
	}
	for k, v := range details {
		data[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
