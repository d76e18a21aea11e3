package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartIndexingRequest struct {
	UserId            uuid.UUID
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	VectorStore       string `json:"vector_store,omitempty"`
	// NoteIds restricts the run to specific notes; empty means all notes.
	NoteIds []uuid.UUID `json:"note_ids,omitempty"`
}

type StartIndexingResponse struct {
	JobId  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

type IndexingJobResponse struct {
	Id                uuid.UUID  `json:"id"`
	Status            string     `json:"status"`
	TotalNotes        int        `json:"total_notes"`
	ProcessedNotes    int        `json:"processed_notes"`
	SkippedNotes      int        `json:"skipped_notes"`
	DeletedNotes      int        `json:"deleted_notes"`
	FailedNotes       int        `json:"failed_notes"`
	TotalChunks       int        `json:"total_chunks"`
	ProcessedChunks   int        `json:"processed_chunks"`
	Errors            []string   `json:"errors,omitempty"`
	EmbeddingProvider string     `json:"embedding_provider"`
	EmbeddingModel    string     `json:"embedding_model"`
	VectorStore       string     `json:"vector_store"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

type CancelIndexingResponse struct {
	JobId  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

type ReindexNoteRequest struct {
	UserId            uuid.UUID
	NoteId            uuid.UUID
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	VectorStore       string `json:"vector_store,omitempty"`
}

type ReindexNoteResponse struct {
	NoteId      uuid.UUID `json:"note_id"`
	ChunksSaved int       `json:"chunks_saved"`
}

type IndexStatsResponse struct {
	TotalChunks   int64            `json:"total_chunks"`
	IndexedNotes  int64            `json:"indexed_notes"`
	ChunksByModel map[string]int64 `json:"chunks_by_model"`
	VectorStore   string           `json:"vector_store"`
}

type EmbeddingProviderResponse struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	IsDefault  bool   `json:"is_default"`
}

// PublishIndexingJobMessage is the payload carried on the indexing topic.
type PublishIndexingJobMessage struct {
	JobId  uuid.UUID `json:"job_id"`
	UserId uuid.UUID `json:"user_id"`
}
