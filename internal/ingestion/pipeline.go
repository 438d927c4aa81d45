// Package ingestion implements the document ingestion pipeline.
// It extracts plain text from an uploaded document, splits it into
// overlapping chunks, embeds each chunk, and upserts the results into the
// vector index. Invoked by the `docai ingest` CLI command and the upload
// HTTP endpoint.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/54b3r/docai-go/internal/extract"
	"github.com/54b3r/docai-go/internal/logging"
	"github.com/54b3r/docai-go/internal/rag"
	"github.com/54b3r/docai-go/internal/splitter"
)

// Document is one uploaded document to ingest. Immutable for the duration of
// an Ingest call.
type Document struct {
	// Filename is the original name of the uploaded file.
	Filename string

	// Data is the raw document bytes.
	Data []byte

	// Format is the declared document format.
	Format extract.Format
}

// Result is the structured outcome of one ingestion.
type Result struct {
	// Success reports whether the document was fully ingested.
	Success bool

	// ChunkCount is the number of chunks upserted (0 on failure).
	ChunkCount int

	// Detail describes the failure when Success is false, or a short
	// human-readable summary when it succeeded.
	Detail string
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between
	// consecutive chunks. Defaults to 200 if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the extract → split → embed → upsert flow for
// uploaded documents.
type Pipeline struct {
	// extractor converts raw document bytes into plain text.
	extractor *extract.Extractor

	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// index persists the embedded chunks per collection.
	index rag.VectorIndex

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(extractor *extract.Extractor, embedder rag.Embedder, index rag.VectorIndex, cfg *Config) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("ingestion: extractor must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = splitter.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = splitter.DefaultChunkOverlap
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}

	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		cfg:       cfg,
	}, nil
}

// Ingest runs the full pipeline for one document into the named collection.
//
// Document-level problems (unsupported format, unparseable content, empty
// text) are reported as a failed Result with a nil error: they are expected
// inputs at a public upload boundary. Infrastructure problems (embedding
// backend down, index unreachable) return a non-nil error.
//
// The upsert is all-or-nothing: either every chunk of the document is
// indexed or none is.
func (p *Pipeline) Ingest(ctx context.Context, doc Document, collection string) (Result, error) {
	log := logging.FromContext(ctx)

	if collection == "" {
		return Result{Detail: "collection name must not be empty"}, nil
	}

	text, err := p.extractor.Extract(ctx, doc.Data, doc.Format)
	if err != nil {
		var extErr *extract.ExtractionError
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			return Result{Detail: fmt.Sprintf("unsupported format %q", doc.Format)}, nil
		case errors.As(err, &extErr):
			return Result{Detail: fmt.Sprintf("could not parse %s document: %v", extErr.Format, extErr.Err)}, nil
		default:
			return Result{}, fmt.Errorf("ingestion: extraction failed for %s: %w", doc.Filename, err)
		}
	}

	strategy := splitter.Prose
	if extract.Tabular(doc.Format) {
		strategy = splitter.FixedWidth
	}

	chunks, err := splitter.Split(text, strategy, splitter.Config{
		ChunkSize:    p.cfg.ChunkSize,
		ChunkOverlap: p.cfg.ChunkOverlap,
	})
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: splitting failed for %s: %w", doc.Filename, err)
	}
	if len(chunks) == 0 {
		return Result{Detail: "document contains no extractable text"}, nil
	}

	log.Debug("ingestion: document chunked",
		slog.String("file", doc.Filename),
		slog.String("collection", collection),
		slog.Int("chunks", len(chunks)),
	)

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: embedding failed for %s: %w", doc.Filename, err)
	}
	if len(embeddings) != len(chunks) || len(embeddings[0]) == 0 {
		return Result{}, fmt.Errorf("ingestion: embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	if err := p.index.EnsureCollection(ctx, collection, uint64(len(embeddings[0]))); err != nil {
		return Result{}, fmt.Errorf("ingestion: ensuring collection %q: %w", collection, err)
	}

	records := make([]rag.Chunk, 0, len(chunks))
	for i, content := range chunks {
		records = append(records, rag.Chunk{
			ID:      rag.NewChunkID(collection, i),
			Content: content,
			Source:  doc.Filename,
			Index:   i,
			Metadata: map[string]string{
				"format": string(doc.Format),
			},
		})
	}

	if err := p.index.Upsert(ctx, collection, records, embeddings); err != nil {
		return Result{}, fmt.Errorf("ingestion: upsert into %q failed: %w", collection, err)
	}

	log.Info("ingestion: document indexed",
		slog.String("file", doc.Filename),
		slog.String("collection", collection),
		slog.Int("chunks", len(records)),
	)

	return Result{
		Success:    true,
		ChunkCount: len(records),
		Detail:     fmt.Sprintf("indexed %d chunks from %s", len(records), doc.Filename),
	}, nil
}
