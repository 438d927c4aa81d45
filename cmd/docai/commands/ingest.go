package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/54b3r/docai-go/internal/extract"
	"github.com/54b3r/docai-go/internal/ingestion"
	"github.com/54b3r/docai-go/internal/logging"
	"github.com/54b3r/docai-go/internal/store"
)

// NewIngestCmd constructs the `docai ingest` command, which runs the document
// ingestion pipeline to populate the vector index.
func NewIngestCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into the vector index",
		Long: `Extract, chunk, embed, and index local documents into the Qdrant vector index.

Ingested documents are used to provide grounded context to chat answers.
Supported formats: pdf, docx, csv, xlsx, xls, json, xml, txt, md.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  MODEL_PROVIDER       Embedding backend: gemini, ollama, openai, azure (default: gemini)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  docai ingest report.pdf
  docai ingest --collection research paper1.pdf paper2.docx
  docai ingest data/*.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			pipeline, index, err := buildPipeline(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer index.Close()

			ledger, closeLedger := buildLedger(log)
			defer closeLedger()

			if collection == "" {
				collection = collectionFromEnv()
			}

			var failures int
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: read %s: %w", path, err)
				}

				filename := filepath.Base(path)
				format, err := extract.InferFormat(filename, "")
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping %s: unsupported format\n", filename)
					failures++
					continue
				}

				result, err := pipeline.Ingest(ctx, ingestion.Document{
					Filename: filename,
					Data:     data,
					Format:   format,
				}, collection)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", filename, err)
				}
				if !result.Success {
					fmt.Fprintf(os.Stderr, "failed %s: %s\n", filename, result.Detail)
					failures++
					continue
				}

				if ledger != nil {
					if err := ledger.Record(ctx, store.Entry{
						Collection: collection,
						Source:     filename,
						Format:     string(format),
						ChunkCount: result.ChunkCount,
					}); err != nil {
						log.Warn("ledger record failed", slog.Any("error", err))
					}
				}

				fmt.Printf("ingested %s into %q (%d chunks)\n", filename, collection, result.ChunkCount)
			}

			if failures > 0 {
				return fmt.Errorf("ingest: %d of %d documents failed", failures, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Vector collection to ingest into (default: documents)")

	return cmd
}
