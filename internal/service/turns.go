package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/pagination"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// TurnStore reads back the turn log.
type TurnStore interface {
	ListBySession(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.TurnRecord], error)
	SimilarTurns(ctx context.Context, embedding []float32, limit int) ([]domain.TurnRecord, error)
}

// TurnHistory answers questions about past turns: what a session asked and
// which earlier questions resemble a new one.
type TurnHistory struct {
	store    TurnStore
	embedder EmbeddingProvider
}

func NewTurnHistory(store TurnStore, embedder EmbeddingProvider) *TurnHistory {
	return &TurnHistory{store: store, embedder: embedder}
}

// ListBySession returns one page of a session's turns, newest first.
func (h *TurnHistory) ListBySession(ctx context.Context, sessionID, cursor string, limit int) (*pagination.PageResult[domain.TurnRecord], error) {
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}
	return h.store.ListBySession(ctx, sessionID, c, limit)
}

// Similar embeds query and returns the logged turns nearest to it.
func (h *TurnHistory) Similar(ctx context.Context, query string, limit int) ([]domain.TurnRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "TurnHistory.Similar", telemetry.SpanAttributes{
		Count:     limit,
		Operation: "similar_turns",
	})
	defer span.End()

	vectors, err := h.embedder.Embed(ctx, []string{query})
	if err != nil {
		span.SetError(err)
		return nil, domain.NewProviderError("embedding", err)
	}
	if len(vectors) != 1 {
		err := fmt.Errorf("expected 1 vector, got %d", len(vectors))
		span.SetError(err)
		return nil, domain.NewProviderError("embedding", err)
	}
	return h.store.SimilarTurns(ctx, vectors[0], limit)
}
