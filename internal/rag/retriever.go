package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultTopK is the number of chunks returned when the caller passes 0.
const DefaultTopK = 3

// contextDelimiter separates retrieved chunks in the assembled context block.
const contextDelimiter = "\n---\n"

// RetrievalResult is the assembled output of a retrieval: the context block
// handed to the model plus the chunks it was built from.
type RetrievalResult struct {
	// Context is the retrieved chunk texts joined in relevance order.
	Context string

	// Chunks are the retrieved chunks, most relevant first.
	Chunks []Chunk
}

// Empty reports whether the retrieval found nothing.
func (r RetrievalResult) Empty() bool { return len(r.Chunks) == 0 }

// Retriever embeds a query and searches a vector collection for relevant
// chunks. Safe for concurrent use.
type Retriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// index performs the vector similarity search.
	index VectorIndex

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a Retriever from the given Embedder and VectorIndex.
// defaultTopK sets the fallback result count when Retrieve is called with
// topK=0; values <= 0 use [DefaultTopK].
func NewRetriever(embedder Embedder, index VectorIndex, defaultTopK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{
		embedder:    embedder,
		index:       index,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns the top-k most relevant chunks from
// the named collection, with their texts joined into a single context block.
// A collection that does not exist yet yields an empty result, not an error:
// asking a question before ingesting anything is a normal state.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string, topK int) (RetrievalResult, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return RetrievalResult{}, fmt.Errorf("rag: embedder returned empty result for query")
	}

	chunks, err := r.index.Query(ctx, collection, embeddings[0], topK)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return RetrievalResult{}, nil
		}
		return RetrievalResult{}, fmt.Errorf("rag: vector search failed: %w", err)
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Content)
	}

	return RetrievalResult{
		Context: strings.Join(texts, contextDelimiter),
		Chunks:  chunks,
	}, nil
}
