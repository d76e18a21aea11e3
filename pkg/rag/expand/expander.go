// Package expand grows a user query into extra retrieval variants using a
// chat model. Every failure here is non-fatal: retrieval proceeds with the
// original query alone.
package expand

import (
	"context"
	"fmt"
	"strings"

	"ai-knowledgebase-be/internal/constant"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/pkg/llm"
)

const defaultMultiQueryCount = 3

// Variant is one retrieval query derived from the user query.
type Variant struct {
	Text string
	// Kind is "original", "hyde" or "multi_query".
	Kind string
}

type Config struct {
	UseHyde       bool
	UseMultiQuery bool
	// MultiQueryCount is how many rewrites to request, default 3.
	MultiQueryCount int
}

type Expander struct {
	chat llm.ChatProvider
	log  logger.ILogger
}

func NewExpander(chat llm.ChatProvider, log logger.ILogger) *Expander {
	return &Expander{chat: chat, log: log}
}

// Expand returns the original query first, followed by any variants the
// model produced. Duplicates of the original (case-insensitive) are dropped.
func (e *Expander) Expand(ctx context.Context, query string, cfg Config) []Variant {
	variants := []Variant{{Text: query, Kind: "original"}}
	if e.chat == nil {
		return variants
	}

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(query)): true}

	if cfg.UseHyde {
		if hyde, err := e.hyde(ctx, query); err != nil {
			e.log.Warn("rag.expand", "hyde generation failed, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
		} else if hyde != "" && !seen[strings.ToLower(hyde)] {
			seen[strings.ToLower(hyde)] = true
			variants = append(variants, Variant{Text: hyde, Kind: "hyde"})
		}
	}

	if cfg.UseMultiQuery {
		rewrites, err := e.multiQuery(ctx, query, cfg.MultiQueryCount)
		if err != nil {
			e.log.Warn("rag.expand", "multi-query generation failed, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
		}
		for _, rw := range rewrites {
			key := strings.ToLower(rw)
			if rw == "" || seen[key] {
				continue
			}
			seen[key] = true
			variants = append(variants, Variant{Text: rw, Kind: "multi_query"})
		}
	}

	return variants
}

func (e *Expander) hyde(ctx context.Context, query string) (string, error) {
	out, err := e.chat.Generate(ctx, fmt.Sprintf(constant.HydePromptTemplate, query), llm.WithTemperature(0.7))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (e *Expander) multiQuery(ctx context.Context, query string, count int) ([]string, error) {
	if count <= 0 {
		count = defaultMultiQueryCount
	}
	out, err := e.chat.Generate(ctx, fmt.Sprintf(constant.MultiQueryPromptTemplate, count, query), llm.WithTemperature(0.7))
	if err != nil {
		return nil, err
	}

	var rewrites []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		rewrites = append(rewrites, line)
		if len(rewrites) == count {
			break
		}
	}
	return rewrites, nil
}
