// Package main is the entry point for the docpipe server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docpipe",
		Short: "Document ingestion and retrieval pipeline",
		Long:  `Docpipe turns uploaded documents into searchable vector embeddings: it reacts to storage notifications, coordinates asynchronous text extraction, embeds the extracted text, and serves user-scoped similarity queries.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}
