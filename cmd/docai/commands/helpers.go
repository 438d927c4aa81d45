package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/54b3r/docai-go/internal/embedder"
	"github.com/54b3r/docai-go/internal/extract"
	"github.com/54b3r/docai-go/internal/ingestion"
	"github.com/54b3r/docai-go/internal/provider"
	"github.com/54b3r/docai-go/internal/rag"
	"github.com/54b3r/docai-go/internal/server"
	"github.com/54b3r/docai-go/internal/store"
)

// getEnvOrDefault returns the env var value or a fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or a fallback when unset or
// unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// tempDirFromEnv resolves the extraction scratch directory.
func tempDirFromEnv() string {
	return getEnvOrDefault("DOCAI_TEMP_DIR", filepath.Join(os.TempDir(), "docai"))
}

// collectionFromEnv resolves the default vector collection name.
func collectionFromEnv() string {
	return getEnvOrDefault("DOCAI_COLLECTION", "documents")
}

// buildVectorIndex constructs the vector index selected by VECTOR_PROVIDER:
// "memory" gives a process-local index (testing, demos), anything else
// connects to the Qdrant instance configured via env.
func buildVectorIndex() (rag.VectorIndex, error) {
	if os.Getenv("VECTOR_PROVIDER") == "memory" {
		return rag.NewMemoryIndex(), nil
	}
	index, err := rag.NewQdrantIndex(&rag.QdrantConfig{
		Host:   getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:   getEnvInt("QDRANT_PORT", 6334),
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	return index, nil
}

// buildPipeline constructs the full ingestion pipeline from env configuration.
// The returned index is shared with the pipeline; callers must Close it.
func buildPipeline(log *slog.Logger) (*ingestion.Pipeline, rag.VectorIndex, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	index, err := buildVectorIndex()
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := ingestion.NewPipeline(extract.New(tempDirFromEnv()), emb, index, &ingestion.Config{
		ChunkSize:    getEnvInt("DOCAI_CHUNK_SIZE", 0),
		ChunkOverlap: getEnvInt("DOCAI_CHUNK_OVERLAP", 0),
	})
	if err != nil {
		_ = index.Close()
		return nil, nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return pipeline, index, nil
}

// buildRetriever constructs a context retriever over the given index.
func buildRetriever(index rag.VectorIndex) (*rag.Retriever, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	retriever, err := rag.NewRetriever(emb, index, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}
	return retriever, nil
}

// buildLedger opens the ingestion ledger. DOCAI_LEDGER_DB overrides the
// default path (~/.docai/ledger.db); "disabled" disables it. Returns a nil
// Ledger (never an error) when the ledger is unavailable — ingestion works
// without it.
func buildLedger(log *slog.Logger) (store.Ledger, func()) {
	dbPath := os.Getenv("DOCAI_LEDGER_DB")
	if dbPath == "disabled" {
		log.Info("ledger: disabled via DOCAI_LEDGER_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("ledger: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}

	ledger, err := store.Open(dbPath)
	if err != nil {
		log.Warn("ledger: failed to open, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("ledger: opened", slog.String("path", dbPath))
	return ledger, func() { _ = ledger.Close() }
}

// buildPingers assembles the readiness probes for the HTTP server: the LLM
// backend's health check endpoint and, when the index is Qdrant-backed, the
// Qdrant HealthCheck RPC.
func buildPingers(providerCfg *provider.Config, index rag.VectorIndex) []server.Pinger {
	pingers := []server.Pinger{
		server.NewLLMPinger(providerCfg.HealthCheck(), string(providerCfg.Backend)),
	}
	if qi, ok := index.(*rag.QdrantIndex); ok {
		pingers = append(pingers, server.NewQdrantPinger(qi.Client()))
	}
	return pingers
}
