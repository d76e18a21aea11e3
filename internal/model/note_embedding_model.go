package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NoteEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NoteId         uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_note_chunk,priority:1"`
	UserId         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChunkIndex     int             `gorm:"not null;default:0;uniqueIndex:idx_note_chunk,priority:2"`
	Content        string          `gorm:"type:text"`
	NoteTitle      string          `gorm:"type:varchar(255)"`
	NoteTags       datatypes.JSON  `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text / text-embedding-004 dimensions
	Provider       string          `gorm:"type:varchar(64);index"`
	Model          string          `gorm:"type:varchar(128)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (NoteEmbedding) TableName() string {
	return "note_embeddings"
}
