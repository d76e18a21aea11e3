package dto

import (
	"time"

	"github.com/google/uuid"
)

type RetrieveRequest struct {
	UserId            uuid.UUID
	Query             string     `json:"query" validate:"required"`
	ConversationId    *uuid.UUID `json:"conversation_id,omitempty"`
	TopK              int        `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
	EmbeddingProvider string     `json:"embedding_provider,omitempty"`
	VectorStore       string     `json:"vector_store,omitempty"`
	// Nil flags fall back to the server defaults.
	UseHyde       *bool `json:"use_hyde,omitempty"`
	UseMultiQuery *bool `json:"use_multi_query,omitempty"`
	UseReranking  *bool `json:"use_reranking,omitempty"`
}

type RetrievedChunk struct {
	NoteId       uuid.UUID `json:"note_id"`
	NoteTitle    string    `json:"note_title"`
	ChunkIndex   int       `json:"chunk_index"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags,omitempty"`
	VectorScore  float64   `json:"vector_score"`
	LexicalScore float64   `json:"lexical_score"`
	FusedScore   float64   `json:"fused_score"`
}

type RetrieveResponse struct {
	QueryLogId uuid.UUID        `json:"query_log_id"`
	Chunks     []RetrievedChunk `json:"chunks"`
	TopicLabel string           `json:"topic_label,omitempty"`
	Timings    RetrievalTimings `json:"timings"`
}

type RetrievalTimings struct {
	QueryEmbeddingMs int64 `json:"query_embedding_ms"`
	VectorSearchMs   int64 `json:"vector_search_ms"`
	LexicalSearchMs  int64 `json:"lexical_search_ms"`
	RerankMs         int64 `json:"rerank_ms"`
	TotalMs          int64 `json:"total_ms"`
}

type RecordFeedbackRequest struct {
	UserId     uuid.UUID
	QueryLogId uuid.UUID
	Tag        string `json:"tag" validate:"required,oneof=positive negative"`
	Category   string `json:"category,omitempty" validate:"omitempty,max=64"`
	Comment    string `json:"comment,omitempty" validate:"omitempty,max=1024"`
}

type RecordFeedbackResponse struct {
	QueryLogId uuid.UUID `json:"query_log_id"`
}

type QueryLogResponse struct {
	Id             uuid.UUID  `json:"id"`
	Query          string     `json:"query"`
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
	RetrievedCount int        `json:"retrieved_count"`
	FinalCount     int        `json:"final_count"`
	TopSimilarity  float64    `json:"top_similarity"`
	TopicLabel     *string    `json:"topic_label,omitempty"`
	FeedbackTag    *string    `json:"feedback_tag,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
