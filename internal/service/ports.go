package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

// EmbeddingProvider turns texts into fixed-width vectors. Embed returns one
// vector per input text, in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// LanguageModelProvider completes a chat conversation.
type LanguageModelProvider interface {
	Complete(ctx context.Context, messages []domain.Message, temperature float32) (string, error)
}

// DocumentParser extracts plain text from a file. ok is false when the file
// cannot be parsed.
type DocumentParser interface {
	Parse(path string) (text string, ok bool)
}

// TurnLogEntry captures one agent turn for the turn log.
type TurnLogEntry struct {
	SessionID      string
	Query          string
	QueryEmbedding []float32
	Answer         string
	Path           domain.DecisionPath
	Sources        []string
	Confidence     *float64
	ChunkCount     int
	Duration       time.Duration
}

// TurnLogger persists turn log entries.
type TurnLogger interface {
	LogTurn(ctx context.Context, entry TurnLogEntry) error
}
