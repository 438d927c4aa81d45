package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process VectorIndex used for tests and for running
// without a Qdrant instance. Chunks are ranked by cosine similarity.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

// memCollection holds one collection's points keyed by chunk ID.
type memCollection struct {
	vectorSize uint64
	points     map[string]memPoint
}

// memPoint pairs a stored chunk with its embedding.
type memPoint struct {
	chunk  Chunk
	vector []float32
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memCollection)}
}

// EnsureCollection creates the collection if absent. Re-ensuring with a
// different vector size returns ErrEmbeddingMismatch.
func (m *MemoryIndex) EnsureCollection(_ context.Context, collection string, vectorSize uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.collections[collection]; ok {
		if existing.vectorSize != vectorSize {
			return fmt.Errorf("%w: collection %q has size %d, got %d",
				ErrEmbeddingMismatch, collection, existing.vectorSize, vectorSize)
		}
		return nil
	}

	m.collections[collection] = &memCollection{
		vectorSize: vectorSize,
		points:     make(map[string]memPoint),
	}
	return nil
}

// Upsert stores the batch atomically: the whole batch is validated before any
// point becomes visible.
func (m *MemoryIndex) Upsert(_ context.Context, collection string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("rag: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	for i, chunk := range chunks {
		if uint64(len(embeddings[i])) != col.vectorSize {
			return fmt.Errorf("%w: collection %q expects %d dimensions, chunk %q has %d",
				ErrEmbeddingMismatch, collection, col.vectorSize, chunk.ID, len(embeddings[i]))
		}
	}

	for i, chunk := range chunks {
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		col.points[chunk.ID] = memPoint{chunk: chunk, vector: vec}
	}
	return nil
}

// Query ranks all points by cosine similarity and returns the top-k.
func (m *MemoryIndex) Query(_ context.Context, collection string, queryEmbedding []float32, topK int) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}
	if uint64(len(queryEmbedding)) != col.vectorSize {
		return nil, fmt.Errorf("%w: collection %q expects %d dimensions, query has %d",
			ErrEmbeddingMismatch, collection, col.vectorSize, len(queryEmbedding))
	}

	scored := make([]Chunk, 0, len(col.points))
	for _, p := range col.points {
		chunk := p.chunk
		chunk.Score = cosineSimilarity(queryEmbedding, p.vector)
		scored = append(scored, chunk)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID // stable order for equal scores
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// ListCollections returns the sorted names of all collections.
func (m *MemoryIndex) ListCollections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for the in-memory index.
func (m *MemoryIndex) Close() error { return nil }

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
