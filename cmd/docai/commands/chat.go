package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/54b3r/docai-go/internal/logging"
	"github.com/54b3r/docai-go/internal/orchestrator"
	"github.com/54b3r/docai-go/internal/provider"
	"github.com/54b3r/docai-go/internal/roles"
)

// NewChatCmd constructs the `docai chat` command, which runs a single chat
// turn grounded in the ingested documents and prints the reply to stdout.
func NewChatCmd() *cobra.Command {
	var role string
	var collection string
	var noRetrieval bool

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask a question grounded in your ingested documents",
		Long: fmt.Sprintf(`Send one chat message and print the reply.

The answer is grounded in document context retrieved from the vector index
unless --no-retrieval is set. The behavioral role shapes the reply style.

Available roles: %s

Examples:
  docai chat "summarise the Q3 findings"
  docai chat --role technical "how does the auth flow work?"
  docai chat --collection research "what methods did the paper use?"`, strings.Join(roles.All(), ", ")),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if role != "" && !roles.Valid(roles.ID(role)) {
				return fmt.Errorf("chat: unknown role %q (available: %s)", role, strings.Join(roles.All(), ", "))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("chat: failed to initialise model provider: %w", err)
			}

			tasks, err := orchestrator.New(chatModel)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			message := strings.Join(args, " ")
			if collection == "" {
				collection = collectionFromEnv()
			}

			// Retrieval is best-effort: a missing or unreachable index
			// degrades to an ungrounded answer.
			var docContext string
			if !noRetrieval {
				docContext = retrieveForQuery(cmd, log, collection, message)
			}

			state, err := tasks.Run(ctx, orchestrator.Request{
				Task:     orchestrator.TaskChat,
				Messages: []*schema.Message{schema.UserMessage(message)},
				Context:  docContext,
				Role:     roles.ID(role),
			})
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			fmt.Println(state.Response)
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", "", "Behavioral role for the reply (default: assistant)")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Vector collection to retrieve context from (default: documents)")
	cmd.Flags().BoolVar(&noRetrieval, "no-retrieval", false, "Skip document retrieval and answer without context")

	return cmd
}

// retrieveForQuery fetches document context for the query, returning an
// empty string on any failure.
func retrieveForQuery(cmd *cobra.Command, log *slog.Logger, collection, query string) string {
	index, err := buildVectorIndex()
	if err != nil {
		log.Warn("retrieval unavailable", slog.Any("error", err))
		return ""
	}
	defer index.Close()

	retriever, err := buildRetriever(index)
	if err != nil {
		log.Warn("retrieval unavailable", slog.Any("error", err))
		return ""
	}

	res, err := retriever.Retrieve(cmd.Context(), collection, query, 0)
	if err != nil {
		log.Warn("retrieval failed", slog.Any("error", err))
		return ""
	}
	return res.Context
}
