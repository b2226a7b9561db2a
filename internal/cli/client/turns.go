package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// TurnRecord is one logged question and its answer.
type TurnRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id,omitempty"`
	Query        string    `json:"query"`
	Answer       string    `json:"answer"`
	DecisionPath string    `json:"decision_path"`
	Sources      []string  `json:"sources"`
	Confidence   *float64  `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
	Distance     float64   `json:"distance,omitempty"`
}

type turnPage struct {
	Items   []TurnRecord `json:"items"`
	Cursor  string       `json:"cursor,omitempty"`
	HasMore bool         `json:"has_more"`
}

type similarTurns struct {
	Query string       `json:"query"`
	Turns []TurnRecord `json:"turns"`
}

func sessionTurnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "turns <id>",
		Short: "List a session's logged turns, newest first",
		Long:  "List a session's logged turns. Requires the server to have a database configured.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			cursor, _ := cmd.Flags().GetString("cursor")
			limit, _ := cmd.Flags().GetInt("limit")
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionTurns(cmd.OutOrStdout(), api, args[0], cursor, limit, outputJSON)
		},
	}

	cmd.Flags().String("cursor", "", "Cursor from a previous page")
	cmd.Flags().Int("limit", 0, "Turns per page (server default when 0)")

	return cmd
}

// SimilarCmd creates the similar command.
func SimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <query>",
		Short: "Find previously asked questions similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSimilar(cmd.OutOrStdout(), api, args[0], limit, outputJSON)
		},
	}

	cmd.Flags().Int("limit", 5, "Maximum number of turns")

	return cmd
}

func runSessionTurns(out io.Writer, api *APIClient, id, cursor string, limit int, outputJSON bool) error {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/sessions/" + url.PathEscape(id) + "/turns"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list turns: %w", err)
	}

	var page turnPage
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse turns: %w", err)
	}

	if outputJSON {
		return printJSON(out, page)
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No turns.")
		return nil
	}
	for _, t := range page.Items {
		printTurnRecord(out, t)
	}
	if page.HasMore {
		fmt.Fprintf(out, "More: --cursor %s\n", page.Cursor)
	}
	return nil
}

func runSimilar(out io.Writer, api *APIClient, query string, limit int, outputJSON bool) error {
	params := url.Values{"query": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := api.Get("/turns/similar?" + params.Encode())
	if err != nil {
		return fmt.Errorf("failed to find similar turns: %w", err)
	}

	var result similarTurns
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse turns: %w", err)
	}

	if outputJSON {
		return printJSON(out, result)
	}

	if len(result.Turns) == 0 {
		fmt.Fprintln(out, "No similar turns.")
		return nil
	}
	for _, t := range result.Turns {
		fmt.Fprintf(out, "(%.3f) ", t.Distance)
		printTurnRecord(out, t)
	}
	return nil
}

func printTurnRecord(out io.Writer, t TurnRecord) {
	fmt.Fprintf(out, "%s [%s] %s\n", t.CreatedAt.Local().Format(time.DateTime), t.DecisionPath, t.Query)
	fmt.Fprintf(out, "    %s\n", t.Answer)
}
