package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// ChunkResult is one retrieved chunk in an answer.
type ChunkResult struct {
	Chunk      string  `json:"chunk"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// AskResponse is the answer returned by POST /ask.
type AskResponse struct {
	Answer     string        `json:"answer"`
	Sources    []string      `json:"sources"`
	Chunks     []ChunkResult `json:"chunks"`
	Confidence *float64      `json:"confidence"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		sessionID  string
		showChunks bool
	)

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask a question about the indexed documents",
		Long:  "Sends a question to the server. Reuse --session to keep conversation history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd.OutOrStdout(), api, AskRequest{Query: args[0], SessionID: sessionID}, showChunks, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id for conversation history")
	cmd.Flags().BoolVar(&showChunks, "chunks", false, "Print the retrieved chunks")

	return cmd
}

func runAsk(out io.Writer, api *APIClient, req AskRequest, showChunks, outputJSON bool) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	resp, err := api.Post("/ask", req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer AskResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		return printJSON(out, answer)
	}

	fmt.Fprintln(out, answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Fprintf(out, "\nSources: %s\n", strings.Join(answer.Sources, ", "))
	}
	if answer.Confidence != nil {
		fmt.Fprintf(out, "Confidence: %.2f\n", *answer.Confidence)
	}
	if showChunks {
		for i, c := range answer.Chunks {
			fmt.Fprintf(out, "\n%s\n", strings.Repeat("-", 40))
			fmt.Fprintf(out, "%d. %s #%d (%.2f)\n", i+1, c.Source, c.ChunkIndex, c.Confidence)
			fmt.Fprintln(out, c.Chunk)
		}
	}
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(output))
	return nil
}
