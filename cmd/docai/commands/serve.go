package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/docai-go/internal/logging"
	"github.com/54b3r/docai-go/internal/orchestrator"
	"github.com/54b3r/docai-go/internal/provider"
	"github.com/54b3r/docai-go/internal/server"
	"github.com/54b3r/docai-go/internal/tracing"
)

// NewServeCmd constructs the `docai serve` command, which starts the HTTP
// server exposing upload, task, and collection endpoints.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docai HTTP server",
		Long: `Start the docai HTTP server on localhost.

The server exposes a REST API:
  POST /api/upload        multipart document upload into the vector index
  POST /api/task          chat task with retrieved document context
  GET  /api/collections   per-collection ingestion summary
  GET  /api/documents     recent ingestion records
  GET  /api/health        liveness
  GET  /api/ready         dependency readiness
  GET  /metrics           Prometheus metrics

Examples:
  docai serve
  docai serve --port 9090
  MODEL_PROVIDER=ollama docai serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			providerCfg := provider.ConfigFromEnv()
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			tasks, err := orchestrator.New(chatModel)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pipeline, index, err := buildPipeline(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer index.Close()

			retriever, err := buildRetriever(index)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			ledger, closeLedger := buildLedger(log)
			defer closeLedger()

			srv, err := server.New(tasks, pipeline, retriever, ledger, &server.Config{
				Host:           host,
				Port:           port,
				Logger:         log,
				Pingers:        buildPingers(providerCfg, index),
				APIKey:         os.Getenv("DOCAI_API_KEY"),
				Collection:     collectionFromEnv(),
				MaxUploadBytes: int64(getEnvInt("DOCAI_MAX_UPLOAD_MB", 50)) << 20,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
