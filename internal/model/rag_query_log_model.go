package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RagQueryLog struct {
	Id             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserId         uuid.UUID  `gorm:"type:uuid;not null;index"`
	ConversationId *uuid.UUID `gorm:"type:uuid;index"`
	Query          string     `gorm:"type:text;not null"`

	QueryEmbeddingMs int64 `gorm:"not null;default:0"`
	VectorSearchMs   int64 `gorm:"not null;default:0"`
	LexicalSearchMs  int64 `gorm:"not null;default:0"`
	RerankMs         int64 `gorm:"not null;default:0"`
	TotalMs          int64 `gorm:"not null;default:0"`

	RetrievedCount int `gorm:"not null;default:0"`
	FinalCount     int `gorm:"not null;default:0"`

	AvgSimilarity   float64 `gorm:"not null;default:0"`
	TopSimilarity   float64 `gorm:"not null;default:0"`
	TopLexicalScore float64 `gorm:"not null;default:0"`
	TopRerankScore  float64 `gorm:"not null;default:0"`

	HybridSearch   bool `gorm:"not null;default:false"`
	UsedHyde       bool `gorm:"not null;default:false"`
	UsedMultiQuery bool `gorm:"not null;default:false"`
	UsedReranking  bool `gorm:"not null;default:false"`

	TopicClusterId *int
	TopicLabel     *string `gorm:"type:varchar(128)"`

	Feedback   datatypes.JSON `gorm:"type:jsonb"`
	FeedbackAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RagQueryLog) TableName() string {
	return "rag_query_logs"
}
