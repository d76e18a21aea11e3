// Package topic assigns a short topic label to a query for analytics.
// Classification is best-effort and never blocks retrieval.
package topic

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"ai-knowledgebase-be/internal/constant"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/pkg/llm"
)

const (
	maxLabelWords = 3
	clusterBucket = 256
)

// Classification pairs the model's label with a stable numeric cluster id
// derived from it, so identical labels land in the same bucket across runs.
type Classification struct {
	Label     string
	ClusterId int
}

type Classifier struct {
	chat llm.ChatProvider
	log  logger.ILogger
}

func NewClassifier(chat llm.ChatProvider, log logger.ILogger) *Classifier {
	return &Classifier{chat: chat, log: log}
}

// Classify returns nil on any failure; callers log the query without a topic.
func (c *Classifier) Classify(ctx context.Context, query string) *Classification {
	if c.chat == nil {
		return nil
	}

	out, err := c.chat.Generate(ctx, fmt.Sprintf(constant.TopicLabelPrompt, query), llm.WithTemperature(0))
	if err != nil {
		c.log.Warn("rag.topic", "classification failed, logging without topic", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	label := normalizeLabel(out)
	if label == "" {
		return nil
	}
	return &Classification{Label: label, ClusterId: clusterOf(label)}
}

func normalizeLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, `"'.`)
	words := strings.Fields(label)
	if len(words) == 0 || len(words) > maxLabelWords {
		return ""
	}
	return strings.Join(words, " ")
}

func clusterOf(label string) int {
	h := fnv.New32a()
	h.Write([]byte(label))
	return int(h.Sum32() % clusterBucket)
}
