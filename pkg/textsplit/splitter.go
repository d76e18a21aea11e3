package textsplit

import "strings"

// Config controls how documents are cut into overlapping chunks.
// Sizes are in runes, not bytes, so multi-byte content splits cleanly.
type Config struct {
	ChunkSize int
	Overlap   int
}

// DefaultConfig mirrors the values used by the indexer in production:
// ~1500 chars (roughly 375 tokens) with a 200 char overlap keeps chunks
// well inside embedding-model context limits.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 1500,
		Overlap:   200,
	}
}

// Split cuts text into overlapping windows. The result depends only on the
// input and the config, so reindexing identical content is idempotent.
// Empty or whitespace-only input yields no chunks.
func Split(text string, cfg Config) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultConfig().ChunkSize
	}

	runes := []rune(text)
	totalLen := len(runes)
	if totalLen <= chunkSize {
		return []string{text}
	}

	step := chunkSize - cfg.Overlap
	if step <= 0 {
		step = chunkSize // overlap >= chunk size would never advance
	}

	var chunks []string
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}

// Count returns how many chunks Split would produce without materializing them.
func Count(text string, cfg Config) int {
	return len(Split(text, cfg))
}
