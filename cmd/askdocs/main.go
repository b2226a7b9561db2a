package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/askdocs/internal/cli"
	"github.com/cloo-solutions/askdocs/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "askdocs",
		Short: "askdocs CLI - ask questions about your documents",
		Long: `askdocs CLI talks to a running askdocsd server.

Environment variables:
  ASKDOCS_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.SessionCmd())
	rootCmd.AddCommand(client.SimilarCmd())
	rootCmd.AddCommand(client.ExtractCmd())
	rootCmd.AddCommand(client.IndexCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
