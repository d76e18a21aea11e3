package entity

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the state of an indexing job. Pending and Running are the only
// non-terminal states; a terminal job never transitions again.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

func (s JobStatus) IsActive() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

// IndexingJob tracks one full-corpus (re)index run for a user.
// At most one active job exists per user at a time.
type IndexingJob struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index"`
	Status JobStatus

	TotalNotes      int
	ProcessedNotes  int
	SkippedNotes    int
	DeletedNotes    int
	TotalChunks     int
	ProcessedChunks int

	// Errors is an append-only log of per-note failures, persisted on each
	// checkpoint so mid-run status is inspectable.
	Errors []string

	EmbeddingProvider string
	EmbeddingModel    string
	VectorStore       string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
