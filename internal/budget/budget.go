// Package budget provides token budget estimation and context trimming for
// the docai generation path. Because multiple LLM backends with different
// tokenizers are supported, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose and code). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docai-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving
	// room for the output.
	DefaultMaxContextTokens = 6000

	// DefaultMaxContextChars caps the retrieved-context block injected into
	// the system message.
	DefaultMaxContextChars = 10000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory removes the oldest messages from history until the total
// estimated token count of fixed + history fits within maxTokens. fixed
// contains messages that must not be trimmed (system prompt, current user
// message). history contains prior conversation turns that may be dropped
// oldest-first.
//
// Returns the trimmed history slice. If even an empty history exceeds the
// budget, the empty slice is returned (fixed messages are never dropped here —
// callers should warn separately if fixed alone exceeds the budget).
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)

	// History is typically short; linear scan dropping oldest-first is clear
	// and correct.
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}

// TrimChunks drops retrieved chunks until their combined content length fits
// within maxChars. Chunks arrive most-relevant-first, so trimming removes
// from the tail: the least relevant context goes first.
func TrimChunks(chunks []rag.Chunk, maxChars int) []rag.Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	total := 0
	for i, c := range chunks {
		total += len(c.Content)
		if total > maxChars {
			return chunks[:i]
		}
	}
	return chunks
}
