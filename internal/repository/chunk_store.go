// Package repository persists corpus chunks and interaction logs in
// Postgres. The chunk store is an optional alternative backend to the flat
// file index; both sit behind the service ChunkSearcher interface.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/clinvector/ehrqa/internal/domain"
	"github.com/clinvector/ehrqa/internal/index"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkStore stores chunk texts and embeddings in a pgvector table.
type ChunkStore struct {
	pool *pgxpool.Pool
}

func NewChunkStore(pool *pgxpool.Pool) *ChunkStore {
	return &ChunkStore{pool: pool}
}

// ReplaceCorpus swaps in a new corpus version wholesale inside one
// transaction; the corpus is never updated incrementally.
func (s *ChunkStore) ReplaceCorpus(ctx context.Context, model string, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.ErrChunkVectorSkew
	}

	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM corpus_chunks`); err != nil {
			return fmt.Errorf("failed to clear corpus: %w", err)
		}

		now := time.Now().UTC()
		for i := range chunks {
			_, err := tx.Exec(ctx,
				`INSERT INTO corpus_chunks (position, content, embedding, embedding_model, created_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				i, chunks[i], pgvector.NewVector(vectors[i]), model, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %d: %w", i, err)
			}
		}
		return nil
	})
}

// Model returns the embedding model the stored corpus was built with, so
// query nodes can fail fast on a mismatch.
func (s *ChunkStore) Model(ctx context.Context) (string, error) {
	var model string
	err := s.pool.QueryRow(ctx,
		`SELECT embedding_model FROM corpus_chunks ORDER BY position LIMIT 1`).Scan(&model)
	if err == pgx.ErrNoRows {
		return "", domain.ErrIndexNotBuilt
	}
	if err != nil {
		return "", err
	}
	return model, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM corpus_chunks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SearchChunks returns the k nearest chunks with cosine similarity scores,
// best first.
func (s *ChunkStore) SearchChunks(ctx context.Context, query []float32, k int) ([]string, []index.Hit, error) {
	if k < 1 {
		return nil, nil, domain.ErrInvalidTopK
	}

	rows, err := s.pool.Query(ctx,
		`SELECT position, content, 1 - (embedding <=> $1) AS score
		 FROM corpus_chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(query), k,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var chunks []string
	var hits []index.Hit
	for rows.Next() {
		var pos int
		var content string
		var score float64
		if err := rows.Scan(&pos, &content, &score); err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, content)
		hits = append(hits, index.Hit{Position: pos, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(hits) == 0 {
		return nil, nil, domain.ErrIndexNotBuilt
	}
	return chunks, hits, nil
}
