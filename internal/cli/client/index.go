package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// IndexStatus describes the server's vector index.
type IndexStatus struct {
	Initialized bool     `json:"initialized"`
	Size        int      `json:"size"`
	Dimension   int      `json:"dimension"`
	Sources     []string `json:"sources"`
}

// IndexCmd creates the index command group.
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect or rebuild the server's index",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show index size and sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexCmd(cmd, func(api *APIClient) (*APIResponse, error) {
				return api.Get("/index")
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Re-chunk and re-embed every document on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexCmd(cmd, func(api *APIClient) (*APIResponse, error) {
				return api.Post("/index/rebuild", nil)
			})
		},
	})

	return cmd
}

func runIndexCmd(cmd *cobra.Command, call func(api *APIClient) (*APIResponse, error)) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}
	resp, err := call(api)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	outputJSON, _ := cmd.Flags().GetBool("output")
	return printIndexStatus(cmd.OutOrStdout(), resp.Data, outputJSON)
}

func printIndexStatus(out io.Writer, data json.RawMessage, outputJSON bool) error {
	var status IndexStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return fmt.Errorf("failed to parse index status: %w", err)
	}

	if outputJSON {
		return printJSON(out, status)
	}

	if !status.Initialized {
		fmt.Fprintln(out, "Index not initialized")
		return nil
	}
	fmt.Fprintf(out, "Chunks:    %d\n", status.Size)
	fmt.Fprintf(out, "Dimension: %d\n", status.Dimension)
	fmt.Fprintf(out, "Sources:   %d\n", len(status.Sources))
	for _, s := range status.Sources {
		fmt.Fprintf(out, "  %s\n", s)
	}
	return nil
}
