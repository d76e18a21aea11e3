package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/pkg/events"
)

type recordedLine struct {
	module  string
	message string
	details map[string]interface{}
}

type recordingLogger struct {
	lines []recordedLine
}

func (l *recordingLogger) Debug(module, message string, details map[string]interface{}) {
	l.lines = append(l.lines, recordedLine{module, message, details})
}

func (l *recordingLogger) Info(module, message string, details map[string]interface{}) {
	l.lines = append(l.lines, recordedLine{module, message, details})
}

func (l *recordingLogger) Warn(module, message string, details map[string]interface{}) {
	l.lines = append(l.lines, recordedLine{module, message, details})
}

func (l *recordingLogger) Error(module, message string, details map[string]interface{}) {
	l.lines = append(l.lines, recordedLine{module, message, details})
}

func (l *recordingLogger) Sync() error { return nil }

func TestLifecycleAuditHandlerLogsEvent(t *testing.T) {
	log := &recordingLogger{}
	handler := NewLifecycleAuditHandler(log)

	occurred := time.Now()
	err := handler(context.Background(), events.BaseEvent{
		Type:       events.IndexingCompleted,
		Data:       map[string]interface{}{"job_id": "j-1", "processed_notes": 3},
		OccurredAt: occurred,
	})
	require.NoError(t, err)

	require.Len(t, log.lines, 1)
	line := log.lines[0]
	assert.Equal(t, "events", line.module)
	assert.Equal(t, events.IndexingCompleted, line.details["event_type"])
	assert.Equal(t, occurred, line.details["occurred_at"])
	assert.Equal(t, "j-1", line.details["job_id"])
	assert.Equal(t, 3, line.details["processed_notes"])
}
