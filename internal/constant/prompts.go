package constant

const (
	ChatMessageRoleUser   = "user"
	ChatMessageRoleModel  = "model"
	ChatMessageRoleSystem = "system"
)

// Query expansion prompts. Both expanders parse plain-text output, no JSON,
// so a chatty model cannot break them.
const (
	HydePromptTemplate = `Write a short hypothetical note passage that would answer this question.
Write as if it were an excerpt from the user's personal notes. 2-4 sentences, no preamble.

Question: %s`

	MultiQueryPromptTemplate = `Rewrite this search query %d different ways to improve recall over personal notes.
Keep each rewrite short and self-contained. One rewrite per line, no numbering, no commentary.

Query: %s`
)

// Rerank prompt. The model returns one integer 0-10 per line, same order as
// the passages were given.
const (
	RerankScoringPrompt = `Score how relevant each passage is to the query, 0 (unrelated) to 10 (directly answers it).
Output exactly one integer per line, one line per passage, nothing else.

Query: %s

%s`

	RerankPassageHeader = "Passage %d:\n%s\n"
)

// Topic classification prompt. A single short label, no JSON.
const (
	TopicLabelPrompt = `Give a 1-3 word topic label for this query. Output the label only.

Query: %s`
)
