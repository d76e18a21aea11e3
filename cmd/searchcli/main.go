// searchcli runs a hybrid search against the live index from the terminal,
// printing per-arm scores so fusion behavior can be inspected without going
// through the HTTP surface.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/repository/implementation"
	"ai-knowledgebase-be/pkg/database"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/fulltext"
	"ai-knowledgebase-be/pkg/rag/expand"
	"ai-knowledgebase-be/pkg/rag/search"
	"ai-knowledgebase-be/pkg/vectorstore"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	var (
		userFlag   = flag.String("user", "", "user id (uuid, required)")
		queryFlag  = flag.String("query", "", "search query (required)")
		limitFlag  = flag.Int("limit", 10, "number of results")
		fusionFlag = flag.String("fusion", "weighted", "fusion strategy: weighted or rrf")
	)
	flag.Parse()

	if *userFlag == "" || *queryFlag == "" {
		flag.Usage()
		os.Exit(2)
	}
	userId, err := uuid.Parse(*userFlag)
	if err != nil {
		log.Fatalf("invalid user id: %v", err)
	}

	cfg := config.Load()
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	repo := implementation.NewNoteEmbeddingRepository(db)
	store := vectorstore.NewRepositoryStore("pgvector", repo)
	index := fulltext.NewRepositoryIndex(repo)
	provider := embedding.NewOllamaProvider(cfg.Embedding.OllamaBaseURL, cfg.Embedding.OllamaModel, 768)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, false)

	orchestrator := search.NewOrchestrator(index, sysLogger)
	searchCfg := search.Config{
		TopK:           *limitFlag,
		CandidateLimit: *limitFlag * 2,
		Fusion: search.FusionConfig{
			Strategy:      *fusionFlag,
			VectorWeight:  cfg.Retrieval.VectorWeight,
			LexicalWeight: cfg.Retrieval.LexicalWeight,
		},
	}

	variants := []expand.Variant{{Text: *queryFlag, Kind: "original"}}
	result, err := orchestrator.Execute(context.Background(), provider, store, userId, variants, searchCfg)
	if err != nil {
		color.Red("search failed: %v", err)
		os.Exit(1)
	}

	color.Cyan("Query: %s (fusion=%s)", *queryFlag, *fusionFlag)
	color.Cyan("Timings: embed=%dms vector=%dms lexical=%dms",
		result.Timings.QueryEmbeddingMs,
		result.Timings.VectorSearchMs,
		result.Timings.LexicalSearchMs,
	)

	if len(result.Candidates) == 0 {
		color.Yellow("No results.")
		return
	}

	for i, c := range result.Candidates {
		color.Green("%2d. [fused=%.4f vector=%.4f lexical=%.4f] %s #%d",
			i+1, c.FusedScore, c.VectorScore, c.LexicalScore, c.Chunk.NoteTitle, c.Chunk.ChunkIndex)
		snippet := c.Chunk.Content
		if len(snippet) > 160 {
			snippet = snippet[:160] + "..."
		}
		color.White("    %s", snippet)
	}
}
