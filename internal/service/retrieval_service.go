package service

import (
	"context"
	"strings"
	"time"

	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/repository/specification"
	"ai-knowledgebase-be/internal/repository/unitofwork"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/fulltext"
	"ai-knowledgebase-be/pkg/rag/expand"
	"ai-knowledgebase-be/pkg/rag/rerank"
	"ai-knowledgebase-be/pkg/rag/search"
	"ai-knowledgebase-be/pkg/rag/topic"
	"ai-knowledgebase-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type IRetrievalService interface {
	Retrieve(ctx context.Context, req *dto.RetrieveRequest) (*dto.RetrieveResponse, error)
	RecordFeedback(ctx context.Context, req *dto.RecordFeedbackRequest) (*dto.RecordFeedbackResponse, error)
	GetRecentQueries(ctx context.Context, userId uuid.UUID, limit int) ([]*dto.QueryLogResponse, error)
}

type retrievalService struct {
	uowFactory   unitofwork.RepositoryFactory
	providers    *embedding.Registry
	stores       *vectorstore.Registry
	orchestrator *search.Orchestrator
	expander     *expand.Expander
	reranker     *rerank.Reranker
	classifier   *topic.Classifier
	defaults     config.RetrievalConfig
	log          logger.ILogger
}

func NewRetrievalService(
	uowFactory unitofwork.RepositoryFactory,
	providers *embedding.Registry,
	stores *vectorstore.Registry,
	index fulltext.Index,
	expander *expand.Expander,
	reranker *rerank.Reranker,
	classifier *topic.Classifier,
	defaults config.RetrievalConfig,
	log logger.ILogger,
) IRetrievalService {
	return &retrievalService{
		uowFactory:   uowFactory,
		providers:    providers,
		stores:       stores,
		orchestrator: search.NewOrchestrator(index, log),
		expander:     expander,
		reranker:     reranker,
		classifier:   classifier,
		defaults:     defaults,
		log:          log,
	}
}

// Retrieve runs the full hybrid pipeline for one query and records a query
// log row regardless of how many optional stages actually ran.
func (s *retrievalService) Retrieve(ctx context.Context, req *dto.RetrieveRequest) (*dto.RetrieveResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperror.Validation("query must not be empty")
	}

	provider, err := s.providers.Resolve(req.EmbeddingProvider)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.Resolve(req.VectorStore)
	if err != nil {
		return nil, err
	}

	useHyde := resolveFlag(req.UseHyde, s.defaults.UseHyde)
	useMultiQuery := resolveFlag(req.UseMultiQuery, s.defaults.UseMultiQuery)
	useReranking := resolveFlag(req.UseReranking, s.defaults.UseReranking)

	started := time.Now()

	variants := []expand.Variant{{Text: query, Kind: "original"}}
	if s.expander != nil && (useHyde || useMultiQuery) {
		variants = s.expander.Expand(ctx, query, expand.Config{
			UseHyde:       useHyde,
			UseMultiQuery: useMultiQuery,
		})
	}

	searchCfg := search.Config{
		TopK:           s.defaults.TopK,
		CandidateLimit: s.defaults.CandidateLimit,
		MinSimilarity:  s.defaults.MinSimilarity,
		Fusion: search.FusionConfig{
			Strategy:      s.defaults.FusionStrategy,
			VectorWeight:  s.defaults.VectorWeight,
			LexicalWeight: s.defaults.LexicalWeight,
		},
	}
	if req.TopK > 0 {
		searchCfg.TopK = req.TopK
		if searchCfg.CandidateLimit < req.TopK {
			searchCfg.CandidateLimit = req.TopK * 2
		}
	}

	result, err := s.orchestrator.Execute(ctx, provider, store, req.UserId, variants, searchCfg)
	if err != nil {
		return nil, err
	}
	retrievedCount := len(result.Candidates)

	var rerankMs int64
	topRerankScore := 0.0
	rerankApplied := false
	candidates := result.Candidates
	if s.reranker != nil && useReranking {
		rerankStart := time.Now()
		rr := s.reranker.Rerank(ctx, query, candidates)
		rerankMs = time.Since(rerankStart).Milliseconds()
		candidates = rr.Candidates
		topRerankScore = rr.TopScore
		rerankApplied = rr.Applied
	}

	var classification *topic.Classification
	if s.classifier != nil && s.defaults.UseTopics {
		classification = s.classifier.Classify(ctx, query)
	}

	totalMs := time.Since(started).Milliseconds()

	logEntry, err := s.buildQueryLog(req, query, result, candidates, retrievedCount, queryLogStages{
		usedHyde:       useHyde,
		usedMultiQuery: useMultiQuery,
		usedReranking:  rerankApplied,
		rerankMs:       rerankMs,
		topRerankScore: topRerankScore,
		totalMs:        totalMs,
		classification: classification,
	})
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.RagQueryLogRepository().Create(ctx, logEntry); err != nil {
		// Telemetry loss should not cost the user their results.
		s.log.Warn("retrieval", "failed to persist query log", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp := &dto.RetrieveResponse{
		QueryLogId: logEntry.Id,
		Chunks:     make([]dto.RetrievedChunk, 0, len(candidates)),
		Timings: dto.RetrievalTimings{
			QueryEmbeddingMs: result.Timings.QueryEmbeddingMs,
			VectorSearchMs:   result.Timings.VectorSearchMs,
			LexicalSearchMs:  result.Timings.LexicalSearchMs,
			RerankMs:         rerankMs,
			TotalMs:          totalMs,
		},
	}
	if classification != nil {
		resp.TopicLabel = classification.Label
	}
	for _, c := range candidates {
		resp.Chunks = append(resp.Chunks, dto.RetrievedChunk{
			NoteId:       c.Chunk.NoteId,
			NoteTitle:    c.Chunk.NoteTitle,
			ChunkIndex:   c.Chunk.ChunkIndex,
			Content:      c.Chunk.Content,
			Tags:         c.Chunk.NoteTags,
			VectorScore:  c.VectorScore,
			LexicalScore: c.LexicalScore,
			FusedScore:   c.FusedScore,
		})
	}
	return resp, nil
}

type queryLogStages struct {
	usedHyde       bool
	usedMultiQuery bool
	usedReranking  bool
	rerankMs       int64
	topRerankScore float64
	totalMs        int64
	classification *topic.Classification
}

func (s *retrievalService) buildQueryLog(req *dto.RetrieveRequest, query string, result *search.Result, candidates []*search.Candidate, retrievedCount int, stages queryLogStages) (*entity.RagQueryLog, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperror.Internal("generate query log id", err)
	}

	var sumSim, topSim, topLexical float64
	simCount := 0
	for _, c := range candidates {
		if c.VectorScore > 0 {
			sumSim += c.VectorScore
			simCount++
		}
		if c.VectorScore > topSim {
			topSim = c.VectorScore
		}
		if c.LexicalScore > topLexical {
			topLexical = c.LexicalScore
		}
	}
	avgSim := 0.0
	if simCount > 0 {
		avgSim = sumSim / float64(simCount)
	}

	logEntry := &entity.RagQueryLog{
		Id:               id,
		UserId:           req.UserId,
		ConversationId:   req.ConversationId,
		Query:            query,
		QueryEmbeddingMs: result.Timings.QueryEmbeddingMs,
		VectorSearchMs:   result.Timings.VectorSearchMs,
		LexicalSearchMs:  result.Timings.LexicalSearchMs,
		RerankMs:         stages.rerankMs,
		TotalMs:          stages.totalMs,
		RetrievedCount:   retrievedCount,
		FinalCount:       len(candidates),
		AvgSimilarity:    avgSim,
		TopSimilarity:    topSim,
		TopLexicalScore:  topLexical,
		TopRerankScore:   stages.topRerankScore,
		HybridSearch:     true,
		UsedHyde:         stages.usedHyde,
		UsedMultiQuery:   stages.usedMultiQuery,
		UsedReranking:    stages.usedReranking,
		CreatedAt:        time.Now(),
	}
	if stages.classification != nil {
		clusterId := stages.classification.ClusterId
		label := stages.classification.Label
		logEntry.TopicClusterId = &clusterId
		logEntry.TopicLabel = &label
	}
	return logEntry, nil
}

// RecordFeedback attaches a rating to an owned query log. The repository
// enforces ownership, so a foreign log id reads as NotFound.
func (s *retrievalService) RecordFeedback(ctx context.Context, req *dto.RecordFeedbackRequest) (*dto.RecordFeedbackResponse, error) {
	feedback := &entity.QueryFeedback{
		Tag:      req.Tag,
		Category: req.Category,
		Comment:  req.Comment,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.RagQueryLogRepository().AttachFeedback(ctx, req.QueryLogId, req.UserId, feedback); err != nil {
		return nil, err
	}
	return &dto.RecordFeedbackResponse{QueryLogId: req.QueryLogId}, nil
}

func (s *retrievalService) GetRecentQueries(ctx context.Context, userId uuid.UUID, limit int) ([]*dto.QueryLogResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	logs, err := uow.RagQueryLogRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.QueryLogResponse, 0, len(logs))
	for _, l := range logs {
		resp := &dto.QueryLogResponse{
			Id:             l.Id,
			Query:          l.Query,
			ConversationId: l.ConversationId,
			RetrievedCount: l.RetrievedCount,
			FinalCount:     l.FinalCount,
			TopSimilarity:  l.TopSimilarity,
			TopicLabel:     l.TopicLabel,
			CreatedAt:      l.CreatedAt,
		}
		if l.Feedback != nil {
			tag := l.Feedback.Tag
			resp.FeedbackTag = &tag
		}
		out = append(out, resp)
	}
	return out, nil
}

func resolveFlag(override *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	return fallback
}
