package mapper

import (
	"encoding/json"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/model"
)

type RagQueryLogMapper struct{}

func NewRagQueryLogMapper() *RagQueryLogMapper {
	return &RagQueryLogMapper{}
}

func (m *RagQueryLogMapper) ToEntity(l *model.RagQueryLog) *entity.RagQueryLog {
	if l == nil {
		return nil
	}

	var feedback *entity.QueryFeedback
	if len(l.Feedback) > 0 {
		var fb entity.QueryFeedback
		if err := json.Unmarshal(l.Feedback, &fb); err == nil {
			feedback = &fb
		}
	}

	return &entity.RagQueryLog{
		Id:               l.Id,
		UserId:           l.UserId,
		ConversationId:   l.ConversationId,
		Query:            l.Query,
		QueryEmbeddingMs: l.QueryEmbeddingMs,
		VectorSearchMs:   l.VectorSearchMs,
		LexicalSearchMs:  l.LexicalSearchMs,
		RerankMs:         l.RerankMs,
		TotalMs:          l.TotalMs,
		RetrievedCount:   l.RetrievedCount,
		FinalCount:       l.FinalCount,
		AvgSimilarity:    l.AvgSimilarity,
		TopSimilarity:    l.TopSimilarity,
		TopLexicalScore:  l.TopLexicalScore,
		TopRerankScore:   l.TopRerankScore,
		HybridSearch:     l.HybridSearch,
		UsedHyde:         l.UsedHyde,
		UsedMultiQuery:   l.UsedMultiQuery,
		UsedReranking:    l.UsedReranking,
		TopicClusterId:   l.TopicClusterId,
		TopicLabel:       l.TopicLabel,
		Feedback:         feedback,
		FeedbackAt:       l.FeedbackAt,
		CreatedAt:        l.CreatedAt,
	}
}

func (m *RagQueryLogMapper) ToModel(l *entity.RagQueryLog) *model.RagQueryLog {
	if l == nil {
		return nil
	}

	var feedback []byte
	if l.Feedback != nil {
		if raw, err := json.Marshal(l.Feedback); err == nil {
			feedback = raw
		}
	}

	return &model.RagQueryLog{
		Id:               l.Id,
		UserId:           l.UserId,
		ConversationId:   l.ConversationId,
		Query:            l.Query,
		QueryEmbeddingMs: l.QueryEmbeddingMs,
		VectorSearchMs:   l.VectorSearchMs,
		LexicalSearchMs:  l.LexicalSearchMs,
		RerankMs:         l.RerankMs,
		TotalMs:          l.TotalMs,
		RetrievedCount:   l.RetrievedCount,
		FinalCount:       l.FinalCount,
		AvgSimilarity:    l.AvgSimilarity,
		TopSimilarity:    l.TopSimilarity,
		TopLexicalScore:  l.TopLexicalScore,
		TopRerankScore:   l.TopRerankScore,
		HybridSearch:     l.HybridSearch,
		UsedHyde:         l.UsedHyde,
		UsedMultiQuery:   l.UsedMultiQuery,
		UsedReranking:    l.UsedReranking,
		TopicClusterId:   l.TopicClusterId,
		TopicLabel:       l.TopicLabel,
		Feedback:         feedback,
		FeedbackAt:       l.FeedbackAt,
		CreatedAt:        l.CreatedAt,
	}
}

func (m *RagQueryLogMapper) ToEntities(logs []*model.RagQueryLog) []*entity.RagQueryLog {
	entities := make([]*entity.RagQueryLog, len(logs))
	for i, l := range logs {
		entities[i] = m.ToEntity(l)
	}
	return entities
}
