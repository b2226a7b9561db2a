package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/askdocs/internal/cli"
	"github.com/cloo-solutions/askdocs/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "askdocsd",
		Short: "askdocs daemon and local tools",
		Long: `askdocs daemon for running the question-answering API server, building
the document index and asking questions without a server.

Configuration is read from ASKDOCS_* environment variables and .env.`,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IndexCmd())
	rootCmd.AddCommand(admin.AskCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
