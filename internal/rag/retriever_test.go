package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// stubEmbedder returns a fixed vector per known text and fails on unknown
// inputs, so tests control similarity ordering exactly.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			return nil, fmt.Errorf("stub: no vector for %q", text)
		}
		out = append(out, vec)
	}
	return out, nil
}

func seedIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	ctx := context.Background()
	if err := idx.EnsureCollection(ctx, "docs", 2); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	chunks := []Chunk{
		{ID: "c1", Content: "alpha content", Source: "a.txt"},
		{ID: "c2", Content: "beta content", Source: "b.txt"},
		{ID: "c3", Content: "gamma content", Source: "c.txt"},
		{ID: "c4", Content: "delta content", Source: "d.txt"},
	}
	embeddings := [][]float32{
		{1, 0},
		{0.9, 0.1},
		{0.5, 0.5},
		{0, 1},
	}
	if err := idx.Upsert(ctx, "docs", chunks, embeddings); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return idx
}

func TestRetriever_JoinsChunksInRelevanceOrder(t *testing.T) {
	t.Parallel()

	idx := seedIndex(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{"question": {1, 0}}}

	r, err := NewRetriever(embedder, idx, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	result, err := r.Retrieve(context.Background(), "docs", "question", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(result.Chunks))
	}

	want := "alpha content\n---\nbeta content\n---\ngamma content"
	if result.Context != want {
		t.Errorf("Context = %q, want %q", result.Context, want)
	}
	for i := 1; i < len(result.Chunks); i++ {
		if result.Chunks[i-1].Score < result.Chunks[i].Score {
			t.Errorf("chunks not in descending score order at %d", i)
		}
	}
}

func TestRetriever_DefaultTopK(t *testing.T) {
	t.Parallel()

	idx := seedIndex(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{"question": {1, 0}}}

	r, err := NewRetriever(embedder, idx, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	result, err := r.Retrieve(context.Background(), "docs", "question", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Chunks) != DefaultTopK {
		t.Errorf("got %d chunks with topK=0, want default %d", len(result.Chunks), DefaultTopK)
	}
}

// TestRetriever_MissingCollectionIsEmpty verifies that querying before any
// ingestion yields an empty result rather than an error.
func TestRetriever_MissingCollectionIsEmpty(t *testing.T) {
	t.Parallel()

	embedder := &stubEmbedder{vectors: map[string][]float32{"question": {1, 0}}}
	r, err := NewRetriever(embedder, NewMemoryIndex(), 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	result, err := r.Retrieve(context.Background(), "never-created", "question", 3)
	if err != nil {
		t.Fatalf("Retrieve on missing collection: %v", err)
	}
	if !result.Empty() {
		t.Errorf("result not empty: %d chunks", len(result.Chunks))
	}
	if result.Context != "" {
		t.Errorf("Context = %q, want empty", result.Context)
	}
}

func TestRetriever_EmbedderFailurePropagates(t *testing.T) {
	t.Parallel()

	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	r, err := NewRetriever(embedder, seedIndex(t), 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "docs", "unknown query", 3); err == nil {
		t.Fatal("expected error when embedder fails")
	} else if !strings.Contains(err.Error(), "embedding query failed") {
		t.Errorf("error %q does not mention embedding failure", err)
	}
}

func TestNewRetriever_NilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, NewMemoryIndex(), 3); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&stubEmbedder{}, nil, 3); err == nil {
		t.Error("expected error for nil index")
	}
}
