package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docai-go/internal/ingestion"
	"github.com/54b3r/docai-go/internal/orchestrator"
	"github.com/54b3r/docai-go/internal/rag"
	"github.com/54b3r/docai-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request. Must be
	// long enough for large document uploads on slow links.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Collection is the default vector collection used when a request does
	// not name one. Defaults to "documents".
	Collection string
	// MaxUploadBytes caps the size of a document upload. Defaults to 50 MiB.
	MaxUploadBytes int64
	// MetricsRegistry receives the server's Prometheus metric registrations.
	// If nil a private registry is created, keeping tests hermetic.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. Must gather from MetricsRegistry.
	MetricsGatherer prometheus.Gatherer
}

// taskRunner is the interface handleTask calls to execute one task.
// *orchestrator.Orchestrator satisfies it; tests inject a fake.
type taskRunner interface {
	Run(ctx context.Context, req orchestrator.Request) (orchestrator.State, error)
}

// ingestor is the interface handleUpload calls to ingest one document.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	Ingest(ctx context.Context, doc ingestion.Document, collection string) (ingestion.Result, error)
}

// contextRetriever is the interface handleTask calls to fetch document
// context for a chat turn. *rag.Retriever satisfies it; tests inject a fake.
type contextRetriever interface {
	Retrieve(ctx context.Context, collection, query string, topK int) (rag.RetrievalResult, error)
}

// Server is the HTTP server that exposes document ingestion and task
// execution over a REST API.
type Server struct {
	// tasks executes chat tasks; set to the orchestrator in production,
	// overridden by a fake in tests.
	tasks taskRunner
	// pipeline ingests uploaded documents into the vector index.
	pipeline ingestor
	// retriever fetches document context for chat turns. May be nil, in
	// which case tasks run without retrieval enrichment.
	retriever contextRetriever
	// ledger records successful ingestions. May be nil, in which case the
	// collection listing endpoints report the feature as unavailable.
	ledger store.Ledger
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatMessage is one conversation turn in the POST /api/task body.
type chatMessage struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// taskRequest is the JSON body for POST /api/task.
type taskRequest struct {
	// Task selects the pipeline. Only "chat" is supported.
	Task string `json:"task"`
	// Messages is the conversation so far, oldest first.
	Messages []chatMessage `json:"messages"`
	// Role is the behavioral role for the reply. Empty defaults to assistant.
	Role string `json:"role,omitempty"`
	// Collection names the vector collection to retrieve context from.
	// Empty uses the server's default collection.
	Collection string `json:"collection,omitempty"`
	// Context is caller-supplied additional context appended after any
	// retrieved document context.
	Context string `json:"context,omitempty"`
}

// taskResponse is the JSON response for POST /api/task.
type taskResponse struct {
	// Task echoes the requested task type.
	Task string `json:"task"`
	// Role is the role the reply was generated under.
	Role string `json:"role,omitempty"`
	// Response is the assistant's reply text.
	Response string `json:"response"`
	// Sources lists the distinct source documents whose chunks informed the
	// reply. Empty when no context was retrieved.
	Sources []string `json:"sources,omitempty"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	// Success reports whether the document was fully ingested.
	Success bool `json:"success"`
	// Collection is the vector collection the document went into.
	Collection string `json:"collection"`
	// Filename is the original name of the uploaded file.
	Filename string `json:"filename"`
	// ChunkCount is the number of chunks indexed (0 on failure).
	ChunkCount int `json:"chunkCount"`
	// Detail describes the outcome in human-readable form.
	Detail string `json:"detail,omitempty"`
}

// collectionsResponse is the JSON response for GET /api/collections.
type collectionsResponse struct {
	// Collections is the per-collection ledger summary.
	Collections []collectionSummary `json:"collections"`
}

// collectionSummary is one collection in the GET /api/collections response.
type collectionSummary struct {
	// Name is the collection name.
	Name string `json:"name"`
	// Documents is the number of ingested documents.
	Documents int `json:"documents"`
	// Chunks is the total number of indexed chunks.
	Chunks int `json:"chunks"`
	// LastIngestAt is the RFC 3339 time of the most recent ingestion.
	LastIngestAt string `json:"lastIngestAt"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Documents is the list of recent ingestions, newest first.
	Documents []documentEntry `json:"documents"`
}

// documentEntry is one ingestion record in the GET /api/documents response.
type documentEntry struct {
	// Collection is the vector collection the document went into.
	Collection string `json:"collection"`
	// Source is the original filename of the ingested document.
	Source string `json:"source"`
	// Format is the declared document format.
	Format string `json:"format"`
	// ChunkCount is the number of chunks indexed.
	ChunkCount int `json:"chunkCount"`
	// CreatedAt is the RFC 3339 time the ingestion was recorded.
	CreatedAt string `json:"createdAt"`
}
