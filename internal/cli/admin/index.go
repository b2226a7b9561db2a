package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloo-solutions/askdocs/internal/config"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/spf13/cobra"
)

// IndexCmd returns the index command group
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the document index",
	}

	cmd.AddCommand(indexBuildCmd())
	cmd.AddCommand(indexStatusCmd())

	return cmd
}

func indexBuildCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index from the documents directory",
		Long: "Loads the persisted index, or chunks and embeds every document in the " +
			"documents directory when no snapshot exists. --force always rebuilds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, func(ctx context.Context, a *app) error {
				return a.initIndex(ctx, force)
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild even when a snapshot exists")

	return cmd
}

func indexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, func(ctx context.Context, a *app) error { return nil })
		},
	}
}

func runIndex(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		return err
	}

	outputJSON, _ := cmd.Flags().GetBool("output")
	return printStatus(a.retriever.Status(ctx), outputJSON)
}

func printStatus(status domain.IndexStatus, outputJSON bool) error {
	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	if !status.Initialized {
		fmt.Println("Index not initialized")
		return nil
	}
	fmt.Printf("Chunks:    %d\n", status.Size)
	fmt.Printf("Dimension: %d\n", status.Dimension)
	fmt.Printf("Sources:   %d\n", len(status.Sources))
	for _, s := range status.Sources {
		fmt.Printf("  %s\n", s)
	}
	return nil
}
