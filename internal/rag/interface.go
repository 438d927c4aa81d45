// Package rag defines the retrieval-augmented generation components:
// vector indexing, chunk retrieval, and embedding. Concrete backends
// (Qdrant, in-memory) satisfy these interfaces so the orchestration layer
// never depends on a specific store.
package rag

import (
	"context"
	"errors"
)

// Chunk is one embedded unit of a document, stored in and retrieved from a
// vector collection.
type Chunk struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Content is the chunk's text.
	Content string

	// Source is the origin filename or URI of the parent document.
	Source string

	// Index is the chunk's position within its parent document.
	Index int

	// Metadata holds arbitrary key-value pairs (format, collection, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// ErrCollectionNotFound is returned by index operations targeting a
// collection that has never been created.
var ErrCollectionNotFound = errors.New("rag: collection not found")

// ErrEmbeddingMismatch is returned when vector dimensions disagree with the
// collection they target. Mixing embedding models within one collection
// corrupts similarity search, so this is always fatal for the operation.
var ErrEmbeddingMismatch = errors.New("rag: embedding dimension mismatch")

// VectorIndex is the interface for persisting and searching chunk embeddings
// across named collections.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// EnsureCollection creates the named collection with the given vector
	// dimensionality if it does not exist. Calling it again with the same
	// dimensionality is a no-op; a different dimensionality returns
	// ErrEmbeddingMismatch.
	EnsureCollection(ctx context.Context, collection string, vectorSize uint64) error

	// Upsert stores or updates a batch of chunks in the named collection.
	// The embeddings slice must be parallel to chunks — embeddings[i] is the
	// vector for chunks[i]. The batch is applied atomically: on error no
	// chunk from the batch is visible to Query.
	Upsert(ctx context.Context, collection string, chunks []Chunk, embeddings [][]float32) error

	// Query performs a similarity search in the named collection and returns
	// the top-k most relevant chunks ordered by descending score.
	Query(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Chunk, error)

	// ListCollections returns the names of all known collections.
	ListCollections(ctx context.Context) ([]string, error)

	// Close releases any resources held by the index.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
