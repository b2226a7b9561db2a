package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/config"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// AskCmd answers one query in-process, without a running server.
func AskCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a question from the local index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(args[0], sessionID, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id (default: a new random id)")

	return cmd
}

func runAsk(query, sessionID string, outputJSON bool) error {
	ctx := context.Background()

	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := newApp(ctx, cfg, appOptions{migrate: true, withAgent: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.initIndex(ctx, false); err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}

	turn := a.agent.ProcessQuery(ctx, query, sessionID)
	return printTurn(turn, outputJSON)
}

type turnOutput struct {
	Answer     string                `json:"answer"`
	Sources    []string              `json:"sources"`
	Chunks     []domain.SearchResult `json:"chunks"`
	Confidence *float64              `json:"confidence"`
}

func printTurn(turn domain.Turn, outputJSON bool) error {
	if outputJSON {
		out := turnOutput{
			Answer:     turn.Answer,
			Sources:    turn.Sources,
			Chunks:     turn.Chunks,
			Confidence: turn.Confidence,
		}
		if out.Sources == nil {
			out.Sources = []string{}
		}
		if out.Chunks == nil {
			out.Chunks = []domain.SearchResult{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(turn.Answer)
	if len(turn.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(turn.Sources, ", "))
	}
	if turn.Confidence != nil {
		fmt.Printf("Confidence: %.2f\n", *turn.Confidence)
	}
	return nil
}
