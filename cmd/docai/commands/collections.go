package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/54b3r/docai-go/internal/logging"
)

// NewCollectionsCmd constructs the `docai collections` command, which lists
// the ingestion ledger's per-collection summary.
func NewCollectionsCmd() *cobra.Command {
	var recent int
	var collection string

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List ingested collections and their contents",
		Long: `Show what has been ingested, per collection.

Without flags, prints one line per collection with its document and chunk
counts. With --recent N, prints the N most recent ingestions instead.

Examples:
  docai collections
  docai collections --recent 10
  docai collections --recent 5 --collection research`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			ledger, closeLedger := buildLedger(log)
			defer closeLedger()
			if ledger == nil {
				return fmt.Errorf("collections: ingestion ledger unavailable")
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if recent > 0 {
				entries, err := ledger.Recent(ctx, collection, recent)
				if err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				fmt.Fprintln(w, "COLLECTION\tSOURCE\tFORMAT\tCHUNKS\tINGESTED")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						e.Collection, e.Source, e.Format, e.ChunkCount,
						e.CreatedAt.Local().Format("2006-01-02 15:04"))
				}
				return nil
			}

			summaries, err := ledger.Collections(ctx)
			if err != nil {
				return fmt.Errorf("collections: %w", err)
			}
			if len(summaries) == 0 {
				fmt.Println("no documents ingested yet — see 'docai ingest --help'")
				return nil
			}

			fmt.Fprintln(w, "COLLECTION\tDOCUMENTS\tCHUNKS\tLAST INGEST")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
					s.Collection, s.Documents, s.Chunks,
					s.LastIngestAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 0, "Show the N most recent ingestions instead of the summary")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Filter --recent output to one collection")

	return cmd
}
