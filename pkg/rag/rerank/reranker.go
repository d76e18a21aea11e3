// Package rerank reorders fused candidates with an LLM relevance judgment.
// Reranking only permutes the list it is given; it never adds or removes
// candidates. Any failure returns the input order unchanged.
package rerank

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ai-knowledgebase-be/internal/constant"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/pkg/llm"
	"ai-knowledgebase-be/pkg/rag/search"
)

const (
	maxPassageRunes = 800
	minScore        = 0
	maxScore        = 10
)

type Reranker struct {
	chat llm.ChatProvider
	log  logger.ILogger
}

func NewReranker(chat llm.ChatProvider, log logger.ILogger) *Reranker {
	return &Reranker{chat: chat, log: log}
}

// Result carries the reordered candidates plus the best model-assigned
// score, normalized to [0, 1], for the query log.
type Result struct {
	Candidates []*search.Candidate
	TopScore   float64
	Applied    bool
}

// Rerank asks the model to score each candidate against the query and sorts
// by that score, stably, so equal scores keep their fused order. On model
// failure or an unparseable reply the fused order passes through untouched.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*search.Candidate) *Result {
	passthrough := &Result{Candidates: candidates}
	if r.chat == nil || len(candidates) < 2 {
		return passthrough
	}

	var passages strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&passages, constant.RerankPassageHeader, i+1, truncateRunes(c.Chunk.Content, maxPassageRunes))
	}

	out, err := r.chat.Generate(ctx, fmt.Sprintf(constant.RerankScoringPrompt, query, passages.String()), llm.WithTemperature(0))
	if err != nil {
		r.log.Warn("rag.rerank", "scoring call failed, keeping fused order", map[string]interface{}{
			"error": err.Error(),
		})
		return passthrough
	}

	scores, ok := parseScores(out, len(candidates))
	if !ok {
		r.log.Warn("rag.rerank", "unparseable scores, keeping fused order", map[string]interface{}{
			"output": truncateRunes(out, 200),
		})
		return passthrough
	}

	type scored struct {
		candidate *search.Candidate
		score     int
	}
	pairs := make([]scored, len(candidates))
	top := 0
	for i, c := range candidates {
		pairs[i] = scored{candidate: c, score: scores[i]}
		if scores[i] > top {
			top = scores[i]
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	reordered := make([]*search.Candidate, len(pairs))
	for i, p := range pairs {
		reordered[i] = p.candidate
	}
	return &Result{
		Candidates: reordered,
		TopScore:   float64(top) / maxScore,
		Applied:    true,
	}
}

// parseScores expects one integer per line. Extra prose lines are skipped;
// the parse fails unless exactly count integers in range were found.
func parseScores(output string, count int) ([]int, bool) {
	var scores []int
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < minScore || n > maxScore {
			continue
		}
		scores = append(scores, n)
	}
	if len(scores) != count {
		return nil, false
	}
	return scores, true
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
