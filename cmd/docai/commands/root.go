// Package commands defines all Cobra CLI commands for the docai binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/docai-go/internal/audit"
	"github.com/54b3r/docai-go/internal/config"
	"github.com/54b3r/docai-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docai",
		Short: "docai — document-grounded AI assistant",
		Long: `docai is a local-first AI assistant grounded in your own documents.

It ingests documents (PDF, DOCX, spreadsheets, plain text) into a Qdrant
vector index and answers chat questions with retrieved document context,
under a configurable behavioral role.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.docai/config.yaml).
See 'docai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docai/config.yaml)")

	root.AddCommand(
		NewChatCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewCollectionsCmd(),
		NewVersionCmd(),
	)

	return root
}
