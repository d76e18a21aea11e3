package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IndexingJob rows are never hard-deleted automatically; history stays
// queryable. The partial unique index created in pkg/database enforces the
// one-active-job-per-user invariant at the storage layer.
type IndexingJob struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId uuid.UUID `gorm:"type:uuid;not null;index"`
	Status string    `gorm:"type:varchar(16);not null;index"`

	TotalNotes      int `gorm:"not null;default:0"`
	ProcessedNotes  int `gorm:"not null;default:0"`
	SkippedNotes    int `gorm:"not null;default:0"`
	DeletedNotes    int `gorm:"not null;default:0"`
	TotalChunks     int `gorm:"not null;default:0"`
	ProcessedChunks int `gorm:"not null;default:0"`

	Errors datatypes.JSON `gorm:"type:jsonb"`

	EmbeddingProvider string `gorm:"type:varchar(64)"`
	EmbeddingModel    string `gorm:"type:varchar(128)"`
	VectorStore       string `gorm:"type:varchar(64)"`

	CreatedAt   time.Time `gorm:"autoCreateTime"`
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func (IndexingJob) TableName() string {
	return "indexing_jobs"
}
