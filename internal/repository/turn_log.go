// Package repository persists agent turns to Postgres.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/pagination"
	"github.com/cloo-solutions/askdocs/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TurnLogRepository stores agent turns and serves them back for review.
type TurnLogRepository struct {
	db dbtx
}

func NewTurnLogRepository(pool *pgxpool.Pool) *TurnLogRepository {
	return &TurnLogRepository{db: pool}
}

// LogTurn implements service.TurnLogger.
func (r *TurnLogRepository) LogTurn(ctx context.Context, entry service.TurnLogEntry) error {
	sources := entry.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return err
	}

	var embedding *pgvector.Vector
	if len(entry.QueryEmbedding) > 0 {
		v := pgvector.NewVector(entry.QueryEmbedding)
		embedding = &v
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO turn_logs (id, session_id, query, query_embedding, answer, decision_path, sources, confidence, chunk_count, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.NewString(),
		nullableString(entry.SessionID),
		entry.Query,
		embedding,
		entry.Answer,
		string(entry.Path),
		sourcesJSON,
		entry.Confidence,
		entry.ChunkCount,
		entry.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn log: %w", err)
	}
	return nil
}

const turnColumns = `id, COALESCE(session_id, ''), query, answer, decision_path, sources, confidence, chunk_count, duration_ms, created_at`

// ListBySession returns one page of a session's turns, newest first.
func (r *TurnLogRepository) ListBySession(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.TurnRecord], error) {
	limit = pagination.ClampLimit(limit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+turnColumns+`, 0::float8
			 FROM turn_logs
			 WHERE session_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			sessionID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+turnColumns+`, 0::float8
			 FROM turn_logs
			 WHERE session_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			sessionID, limit+1,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	records, err := scanTurnLogs(rows)
	if err != nil {
		return nil, err
	}
	return pagination.NewPage(records, limit, func(t domain.TurnRecord) (string, time.Time) {
		return t.ID, t.CreatedAt
	}), nil
}

// SimilarTurns returns past turns whose query embedding is nearest to
// embedding by L2 distance. Turns embedded at a different width are skipped.
func (r *TurnLogRepository) SimilarTurns(ctx context.Context, embedding []float32, limit int) ([]domain.TurnRecord, error) {
	if len(embedding) == 0 {
		return []domain.TurnRecord{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+turnColumns+`, query_embedding <-> $1 AS distance
		 FROM turn_logs
		 WHERE query_embedding IS NOT NULL AND vector_dims(query_embedding) = $2
		 ORDER BY distance
		 LIMIT $3`,
		pgvector.NewVector(embedding), len(embedding), pagination.ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search turns: %w", err)
	}
	return scanTurnLogs(rows)
}

func scanTurnLogs(rows pgx.Rows) ([]domain.TurnRecord, error) {
	defer rows.Close()

	records := []domain.TurnRecord{}
	for rows.Next() {
		var rec domain.TurnRecord
		var path string
		var sourcesJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Query,
			&rec.Answer,
			&path,
			&sourcesJSON,
			&rec.Confidence,
			&rec.ChunkCount,
			&rec.DurationMs,
			&rec.CreatedAt,
			&rec.Distance,
		); err != nil {
			return nil, err
		}
		rec.Path = domain.DecisionPath(path)
		if err := json.Unmarshal(sourcesJSON, &rec.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
