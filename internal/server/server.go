// Package server implements the HTTP server that exposes document ingestion
// and task execution via a REST API. The server is started by the
// `docai serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/docai-go/internal/budget"
	"github.com/54b3r/docai-go/internal/extract"
	"github.com/54b3r/docai-go/internal/ingestion"
	"github.com/54b3r/docai-go/internal/logging"
	"github.com/54b3r/docai-go/internal/orchestrator"
	"github.com/54b3r/docai-go/internal/rag"
	"github.com/54b3r/docai-go/internal/roles"
	"github.com/54b3r/docai-go/internal/store"
)

// defaultMaxUploadBytes caps document uploads when no explicit limit is
// configured.
const defaultMaxUploadBytes = 50 << 20 // 50 MiB

// defaultCollection is the vector collection used when neither the request
// nor the config names one.
const defaultCollection = "documents"

// contextDelimiter separates retrieved chunks in the context block sent to
// the model. Must match the retriever's join delimiter.
const contextDelimiter = "\n---\n"

// New constructs a Server from the provided dependencies and config.
// retriever and ledger may be nil: a nil retriever disables context
// enrichment, a nil ledger disables the collection listing endpoints.
func New(tasks *orchestrator.Orchestrator, pipeline *ingestion.Pipeline, retriever *rag.Retriever, ledger store.Ledger, cfg *Config) (*Server, error) {
	if tasks == nil {
		return nil, fmt.Errorf("server: orchestrator must not be nil")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("server: ingestion pipeline must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		// ReadTimeout must be long enough for large uploads on slow links.
		cfg.ReadTimeout = 2 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full model generation round trip.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		reg := prometheus.NewRegistry()
		cfg.MetricsRegistry = reg
		cfg.MetricsGatherer = reg
	}

	s := &Server{
		tasks:    tasks,
		pipeline: pipeline,
		ledger:   ledger,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}
	// Assign through the interface field only when non-nil so the nil check
	// in handleTask works on the interface value.
	if retriever != nil {
		s.retriever = retriever
	}

	if cfg.APIKey == "" {
		s.log.Warn("API key not configured — authentication is disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	protected := func(name string, h http.HandlerFunc) http.Handler {
		return rl.middleware(authMiddleware(cfg.APIKey, s.instrument(name, h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/upload", protected("upload", s.handleUpload))
	mux.Handle("POST /api/task", protected("task", s.handleTask))
	mux.Handle("GET /api/collections", protected("collections", s.handleCollections))
	mux.Handle("GET /api/documents", protected("documents", s.handleDocuments))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleUpload handles POST /api/upload. It accepts one multipart file field
// named "file", ingests it into the requested collection, and reports the
// structured outcome. Document-level problems (unsupported format,
// unparseable content) return 422 rather than 500: the server is healthy,
// the document is not.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		s.observeUpload("rejected", start)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d byte limit", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.observeUpload("rejected", start)
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.observeUpload("error", start)
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	format, err := extract.InferFormat(header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.observeUpload("rejected", start)
		writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported document format: supported formats are %s", strings.Join(formatNames(), ", ")))
		return
	}

	collection := r.FormValue("collection")
	if collection == "" {
		collection = r.Header.Get("X-Collection")
	}
	if collection == "" {
		collection = s.cfg.Collection
	}

	result, err := s.pipeline.Ingest(r.Context(), ingestion.Document{
		Filename: header.Filename,
		Data:     data,
		Format:   format,
	}, collection)
	if err != nil {
		s.observeUpload("error", start)
		log.Error("ingestion failed",
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	resp := uploadResponse{
		Success:    result.Success,
		Collection: collection,
		Filename:   header.Filename,
		ChunkCount: result.ChunkCount,
		Detail:     result.Detail,
	}

	if !result.Success {
		s.observeUpload("rejected", start)
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	if s.ledger != nil {
		if err := s.ledger.Record(r.Context(), store.Entry{
			Collection: collection,
			Source:     header.Filename,
			Format:     string(format),
			ChunkCount: result.ChunkCount,
		}); err != nil {
			// The document is already indexed; a ledger write failure must
			// not fail the upload.
			log.Warn("ledger record failed", slog.Any("error", err))
		}
	}

	s.observeUpload("ok", start)
	s.metrics.uploadChunksTotal.Add(float64(result.ChunkCount))
	writeJSON(w, http.StatusOK, resp)
}

// handleTask handles POST /api/task. It retrieves document context for the
// latest user message, runs the task pipeline, and returns the reply.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.observeTask("rejected", start)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		s.observeTask("rejected", start)
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}
	if req.Role != "" && !roles.Valid(roles.ID(req.Role)) {
		s.observeTask("rejected", start)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown role %q", req.Role))
		return
	}

	msgs := make([]*schema.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}

	collection := req.Collection
	if collection == "" {
		collection = s.cfg.Collection
	}

	docContext, sources := s.retrieveContext(r.Context(), collection, latestUserContent(req.Messages))
	if req.Context != "" {
		docContext += "\n\nAdditional Context:\n" + req.Context
	}

	state, err := s.tasks.Run(r.Context(), orchestrator.Request{
		Task:     req.Task,
		Messages: msgs,
		Context:  docContext,
		Role:     roles.ID(req.Role),
	})
	if err != nil {
		s.observeTask("error", start)
		log.Error("task failed", slog.String("task", req.Task), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "task execution failed")
		return
	}

	s.observeTask("ok", start)
	writeJSON(w, http.StatusOK, taskResponse{
		Task:     req.Task,
		Role:     string(state.Role),
		Response: state.Response,
		Sources:  sources,
	})
}

// retrieveContext fetches and trims document context for a chat turn.
// Retrieval failures degrade to an empty context with a warning: a chat turn
// without enrichment beats a 500.
func (s *Server) retrieveContext(ctx context.Context, collection, query string) (string, []string) {
	if s.retriever == nil || query == "" {
		return "", nil
	}

	res, err := s.retriever.Retrieve(ctx, collection, query, 0)
	if err != nil {
		logging.FromContext(ctx).Warn("context retrieval failed",
			slog.String("collection", collection),
			slog.Any("error", err),
		)
		return "", nil
	}
	if res.Empty() {
		return "", nil
	}

	chunks := budget.TrimChunks(res.Chunks, budget.DefaultMaxContextChars)
	s.metrics.retrievalChunks.Observe(float64(len(chunks)))

	texts := make([]string, len(chunks))
	seen := make(map[string]bool)
	var sources []string
	for i, c := range chunks {
		texts[i] = c.Content
		if c.Source != "" && !seen[c.Source] {
			seen[c.Source] = true
			sources = append(sources, c.Source)
		}
	}
	return strings.Join(texts, contextDelimiter), sources
}

// handleCollections handles GET /api/collections. It reports the per
// collection ingestion summary from the ledger.
func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion ledger not configured")
		return
	}

	summaries, err := s.ledger.Collections(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("ledger query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list collections")
		return
	}

	resp := collectionsResponse{Collections: make([]collectionSummary, 0, len(summaries))}
	for _, sum := range summaries {
		resp.Collections = append(resp.Collections, collectionSummary{
			Name:         sum.Collection,
			Documents:    sum.Documents,
			Chunks:       sum.Chunks,
			LastIngestAt: sum.LastIngestAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDocuments handles GET /api/documents. Query parameters:
// collection (empty means all) and limit (default 20).
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion ledger not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.ledger.Recent(r.Context(), r.URL.Query().Get("collection"), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("ledger query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	resp := documentsResponse{Documents: make([]documentEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Documents = append(resp.Documents, documentEntry{
			Collection: e.Collection,
			Source:     e.Source,
			Format:     e.Format,
			ChunkCount: e.ChunkCount,
			CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// latestUserContent returns the content of the most recent user message,
// or an empty string if there is none.
func latestUserContent(msgs []chatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" || msgs[i].Role == "" {
			return msgs[i].Content
		}
	}
	return ""
}

// formatNames returns the supported document format names.
func formatNames() []string {
	formats := extract.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
