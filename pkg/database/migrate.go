package database

import (
	"log"

	"ai-knowledgebase-be/internal/model"

	"gorm.io/gorm"
)

// Migrate brings the schema up to date: extensions first, then AutoMigrate,
// then the indexes GORM tags cannot express.
func Migrate(db *gorm.DB) error {
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	if err := db.AutoMigrate(
		&model.Note{},
		&model.NoteEmbedding{},
		&model.IndexingJob{},
		&model.RagQueryLog{},
	); err != nil {
		return err
	}

	postSQL := []string{
		// One active job per user, enforced at the storage layer. The claim
		// insert in the job repository relies on this index as its backstop.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_indexing_jobs_active_user
		 ON indexing_jobs (user_id)
		 WHERE status IN ('pending', 'running');`,

		// ANN index for cosine search over chunk embeddings.
		`CREATE INDEX IF NOT EXISTS idx_note_embeddings_vector
		 ON note_embeddings
		 USING hnsw (embedding_value vector_cosine_ops);`,

		// GIN index backing the ts_rank lexical arm. The expression must
		// match the one used in SearchLexical exactly.
		`CREATE INDEX IF NOT EXISTS idx_note_embeddings_fts
		 ON note_embeddings
		 USING gin (to_tsvector('english', coalesce(note_title, '') || ' ' || content));`,
	}
	for _, sql := range postSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to create index: %v. Continuing...", err)
		}
	}

	return nil
}
