// Command docai is the entry point for the document AI assistant.
// It provides a CLI interface (via Cobra) for document ingestion and chat,
// and an HTTP server exposing the same operations over a REST API.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/docai-go/cmd/docai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
