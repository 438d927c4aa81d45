package rag

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// chunkIDNamespace is the UUID namespace for deriving Qdrant point IDs from
// chunk ID strings. Qdrant point IDs must be UUIDs or integers; hashing the
// chunk ID keeps upserts idempotent per chunk.
var chunkIDNamespace = uuid.MustParse("7f1d3c59-4b7e-4c89-9d5a-2e8f0a6b1c4d")

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements VectorIndex backed by a Qdrant instance. Collections
// are created on demand; their vector sizes are tracked locally so dimension
// mismatches are caught before they reach the server.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// mu guards sizes.
	mu sync.Mutex

	// sizes records the vector dimensionality of each collection this
	// process has touched.
	sizes map[string]uint64
}

// NewQdrantIndex creates a QdrantIndex connected to the configured instance.
// Collections are not created here — call EnsureCollection per collection.
func NewQdrantIndex(cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantIndex{
		client: client,
		sizes:  make(map[string]uint64),
	}, nil
}

// Client exposes the underlying Qdrant client for health probes.
func (s *QdrantIndex) Client() *qdrant.Client { return s.client }

// EnsureCollection creates the collection with cosine distance if it does not
// exist. Re-ensuring with a different vector size returns ErrEmbeddingMismatch.
func (s *QdrantIndex) EnsureCollection(ctx context.Context, collection string, vectorSize uint64) error {
	s.mu.Lock()
	known, ok := s.sizes[collection]
	s.mu.Unlock()
	if ok {
		if known != vectorSize {
			return fmt.Errorf("%w: collection %q has size %d, got %d",
				ErrEmbeddingMismatch, collection, known, vectorSize)
		}
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		// First contact with a pre-existing collection: the local registry
		// knows nothing about it, so verify the server-side vector size
		// before accepting writes against it.
		info, err := s.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			return fmt.Errorf("qdrant: failed to get collection info for %q: %w", collection, err)
		}
		if size, ok := collectionVectorSize(info); ok && size != vectorSize {
			return fmt.Errorf("%w: collection %q has size %d, got %d",
				ErrEmbeddingMismatch, collection, size, vectorSize)
		}
	} else {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant: failed to create collection %q: %w", collection, err)
		}
	}

	s.mu.Lock()
	s.sizes[collection] = vectorSize
	s.mu.Unlock()
	return nil
}

// collectionVectorSize extracts the configured vector dimensionality from
// collection info. Returns ok=false when the collection uses a named-vectors
// config, where a single size is not defined.
func collectionVectorSize(info *qdrant.CollectionInfo) (uint64, bool) {
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, false
	}
	return params.GetSize(), true
}

// Upsert stores or updates a batch of chunks with their embeddings. The whole
// batch is sent as one request, so partial writes do not occur.
func (s *QdrantIndex) Upsert(ctx context.Context, collection string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("qdrant: %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	s.mu.Lock()
	size, ok := s.sizes[collection]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q (call EnsureCollection first)", ErrCollectionNotFound, collection)
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		if uint64(len(embeddings[i])) != size {
			return fmt.Errorf("%w: collection %q expects %d dimensions, chunk %q has %d",
				ErrEmbeddingMismatch, collection, size, chunk.ID, len(embeddings[i]))
		}

		payload := map[string]interface{}{
			"chunk_id":    chunk.ID,
			"content":     chunk.Content,
			"source":      chunk.Source,
			"chunk_index": strconv.Itoa(chunk.Index),
		}
		for k, v := range chunk.Metadata {
			payload[k] = v
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewSHA1(chunkIDNamespace, []byte(chunk.ID)).String()),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert into %q failed: %w", collection, err)
	}

	return nil
}

// Query performs a cosine similarity search in the named collection.
func (s *QdrantIndex) Query(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Chunk, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query in %q failed: %w", collection, err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		chunk := Chunk{
			Score:    r.Score,
			Metadata: make(map[string]string),
		}
		if p := r.Payload; p != nil {
			for k, v := range p {
				switch k {
				case "chunk_id":
					chunk.ID = v.GetStringValue()
				case "content":
					chunk.Content = v.GetStringValue()
				case "source":
					chunk.Source = v.GetStringValue()
				case "chunk_index":
					chunk.Index, _ = strconv.Atoi(v.GetStringValue())
				default:
					chunk.Metadata[k] = v.GetStringValue()
				}
			}
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// ListCollections returns the names of all collections on the server.
func (s *QdrantIndex) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("qdrant: list collections failed: %w", err)
	}
	return names, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}
