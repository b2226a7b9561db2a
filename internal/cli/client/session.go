package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"
)

type sessionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sessionResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []sessionMessage `json:"messages"`
}

// SessionCmd creates the session command group.
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear conversation history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a session's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionShow(cmd.OutOrStdout(), api, args[0], outputJSON)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <id>",
		Short: "Delete a session's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSessionClear(cmd.OutOrStdout(), api, args[0])
		},
	})

	cmd.AddCommand(sessionTurnsCmd())

	return cmd
}

func runSessionShow(out io.Writer, api *APIClient, id string, outputJSON bool) error {
	resp, err := api.Get("/sessions/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	var session sessionResponse
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}

	if outputJSON {
		return printJSON(out, session)
	}

	if len(session.Messages) == 0 {
		fmt.Fprintln(out, "No messages.")
		return nil
	}
	for _, m := range session.Messages {
		fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
	}
	return nil
}

func runSessionClear(out io.Writer, api *APIClient, id string) error {
	resp, err := api.Delete("/sessions/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Data, &msg); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	fmt.Fprintln(out, msg.Message)
	return nil
}
