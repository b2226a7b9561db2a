package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// IngestReport is the outcome of an ingest or upload.
type IngestReport struct {
	StoredFiles   []string `json:"stored_files,omitempty"`
	InvalidFiles  []string `json:"invalid_files,omitempty"`
	TooLargeFiles []string `json:"too_large_files,omitempty"`
	Ingested      []string `json:"ingested_files"`
	Skipped       []string `json:"skipped_files"`
	ChunksAdded   int      `json:"chunks_added"`
	IndexSize     int      `json:"index_size"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Index files already in the server's documents directory",
		Long:  "Paths are resolved on the server, relative to its documents directory.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngest(cmd.OutOrStdout(), api, args, outputJSON)
		},
	}
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload local documents and index them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd.OutOrStdout(), api, args, outputJSON)
		},
	}
}

func runIngest(out io.Writer, api *APIClient, paths []string, outputJSON bool) error {
	resp, err := api.Post("/documents/ingest", map[string][]string{"paths": paths})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return printReport(out, resp.Data, outputJSON)
}

func runUpload(out io.Writer, api *APIClient, paths []string, outputJSON bool) error {
	resp, err := api.UploadFiles(paths)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 400 && resp != nil {
			return fmt.Errorf("upload rejected: %s", apiErr.Message)
		}
		return fmt.Errorf("upload failed: %w", err)
	}
	return printReport(out, resp.Data, outputJSON)
}

func printReport(out io.Writer, data json.RawMessage, outputJSON bool) error {
	var report IngestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("failed to parse ingest report: %w", err)
	}

	if outputJSON {
		return printJSON(out, report)
	}

	if len(report.StoredFiles) > 0 {
		fmt.Fprintf(out, "Stored:    %s\n", strings.Join(report.StoredFiles, ", "))
	}
	if len(report.InvalidFiles) > 0 {
		fmt.Fprintf(out, "Invalid:   %s\n", strings.Join(report.InvalidFiles, ", "))
	}
	if len(report.TooLargeFiles) > 0 {
		fmt.Fprintf(out, "Too large: %s\n", strings.Join(report.TooLargeFiles, ", "))
	}
	fmt.Fprintf(out, "Ingested:  %d files, %d chunks\n", len(report.Ingested), report.ChunksAdded)
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "Skipped:   %s\n", s)
	}
	fmt.Fprintf(out, "Index size: %d chunks\n", report.IndexSize)
	return nil
}
