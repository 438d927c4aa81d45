// Package splitter divides extracted document text into overlapping chunks
// sized for embedding. Prose formats go through a recursive character splitter
// that prefers paragraph and sentence boundaries; tabular formats use a
// fixed-width sliding window so rows are never reordered across chunks.
package splitter

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk size in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default overlap between consecutive chunks.
	DefaultChunkOverlap = 200
)

// Strategy selects the splitting algorithm.
type Strategy int

const (
	// Prose splits on natural boundaries (paragraphs, lines, words) before
	// falling back to hard character cuts.
	Prose Strategy = iota

	// FixedWidth splits into fixed character windows with overlap, preserving
	// positional structure for row-oriented content.
	FixedWidth
)

// Config holds chunking parameters. The zero value is usable: invalid or
// missing values are normalised to the package defaults.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Must be smaller than ChunkSize.
	ChunkOverlap int
}

// normalised returns a copy of c with defaults applied and the overlap
// clamped below the chunk size.
func (c Config) normalised() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 5
	}
	return c
}

// Split divides text into chunks using the given strategy. Leading and
// trailing whitespace is trimmed first; empty input yields no chunks.
// Text at or under the chunk size is returned as a single chunk.
func Split(text string, strategy Strategy, cfg Config) ([]string, error) {
	cfg = cfg.normalised()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len(text) <= cfg.ChunkSize {
		return []string{text}, nil
	}

	switch strategy {
	case FixedWidth:
		return splitFixed(text, cfg), nil
	case Prose:
		return splitProse(text, cfg)
	default:
		return nil, fmt.Errorf("splitter: unknown strategy %d", strategy)
	}
}

// splitProse delegates to the recursive character splitter, which tries
// paragraph, line, and word separators in order before hard cuts.
func splitProse(text string, cfg Config) ([]string, error) {
	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
	)
	chunks, err := ts.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitter: recursive split: %w", err)
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// splitFixed slides a ChunkSize window across the text, stepping by
// ChunkSize−ChunkOverlap. The final chunk absorbs the remainder.
func splitFixed(text string, cfg Config) []string {
	var chunks []string
	step := cfg.ChunkSize - cfg.ChunkOverlap

	for start := 0; start < len(text); start += step {
		end := start + cfg.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks
}
