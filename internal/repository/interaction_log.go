package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// interactionLogTimeout bounds the insert so a stalled database cannot
// block the request path; the qalog.Logger already treats sink failures as
// non-fatal.
const interactionLogTimeout = 3 * time.Second

// InteractionLogStore persists interaction records in Postgres. It
// implements qalog.Sink and can run alongside the JSONL file sink.
type InteractionLogStore struct {
	pool *pgxpool.Pool
}

func NewInteractionLogStore(pool *pgxpool.Pool) *InteractionLogStore {
	return &InteractionLogStore{pool: pool}
}

// Append inserts one interaction row.
func (s *InteractionLogStore) Append(entry domain.LogEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), interactionLogTimeout)
	defer cancel()

	retrievedJSON, err := json.Marshal(entry.Retrieved)
	if err != nil {
		return fmt.Errorf("failed to encode retrieved docs: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO interaction_logs (id, created_at, query, retrieved_docs, answer, reference, score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID,
		entry.Timestamp,
		entry.Query,
		retrievedJSON,
		entry.Answer,
		entry.Reference,
		entry.Score,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction log: %w", err)
	}
	return nil
}

// Recent returns the newest interaction entries up to limit, newest first.
func (s *InteractionLogStore) Recent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, query, retrieved_docs, answer, reference, score
		 FROM interaction_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list interaction logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		var entry domain.LogEntry
		var retrievedJSON []byte
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Query, &retrievedJSON, &entry.Answer, &entry.Reference, &entry.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(retrievedJSON, &entry.Retrieved); err != nil {
			return nil, fmt.Errorf("failed to decode retrieved docs: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
