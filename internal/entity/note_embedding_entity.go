package entity

import (
	"time"

	"github.com/google/uuid"
)

// NoteEmbedding is one indexed chunk of a note. A note's chunks are always
// replaced as a whole batch; chunk indices are contiguous from 0.
type NoteEmbedding struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	NoteId         uuid.UUID `gorm:"type:uuid;index"`
	UserId         uuid.UUID `gorm:"type:uuid;index"`
	ChunkIndex     int
	Content        string
	NoteTitle      string // denormalized for display without a join
	NoteTags       []string
	EmbeddingValue []float32
	Provider       string
	Model          string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
