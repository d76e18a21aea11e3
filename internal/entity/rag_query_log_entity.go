package entity

import (
	"time"

	"github.com/google/uuid"
)

// QueryFeedback is a user rating attached to a query log after the fact.
type QueryFeedback struct {
	Tag      string // free-form, e.g. "thumbs_up", "thumbs_down"
	Category string
	Comment  string
}

// RagQueryLog is the telemetry record for one retrieval invocation.
// The Id is a UUIDv7 so logs sort by creation time. Feedback fields stay nil
// until the user explicitly rates the response.
type RagQueryLog struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId         uuid.UUID `gorm:"type:uuid;index"`
	ConversationId *uuid.UUID
	Query          string

	// Stage timings, milliseconds.
	QueryEmbeddingMs int64
	VectorSearchMs   int64
	LexicalSearchMs  int64
	RerankMs         int64
	TotalMs          int64

	RetrievedCount int
	FinalCount     int

	AvgSimilarity   float64
	TopSimilarity   float64
	TopLexicalScore float64
	TopRerankScore  float64

	// Which optional stages actually ran.
	HybridSearch   bool
	UsedHyde       bool
	UsedMultiQuery bool
	UsedReranking  bool

	TopicClusterId *int
	TopicLabel     *string

	Feedback   *QueryFeedback
	FeedbackAt *time.Time

	CreatedAt time.Time
}
