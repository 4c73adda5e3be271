// Package pgvector is the Postgres-backed vectorstore.Store, using the
// pgvector extension's cosine distance operator for ranking.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/athellier/larecherche/vectorstore"
)

type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

// New creates the backing table for the given embedding dimension. The
// on-disk layout is private to this package; callers only see the Store
// contract.
func New(ctx context.Context, pool *pgxpool.Pool, dimension int, logger *slog.Logger) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	_, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS research_chunks (
			id UUID PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension))
	if err != nil {
		return nil, fmt.Errorf("failed to create research_chunks table: %w", err)
	}

	return &Store{pool: pool, dimension: dimension, logger: logger}, nil
}

// Add inserts the whole batch inside one transaction so a mid-batch
// failure never leaves a partial commit behind.
func (s *Store) Add(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]string) ([]string, error) {
	if len(texts) != len(embeddings) {
		return nil, fmt.Errorf("texts and embeddings length mismatch: %d != %d", len(texts), len(embeddings))
	}
	if metadatas == nil {
		metadatas = make([]map[string]string, len(texts))
	}
	if len(metadatas) != len(texts) {
		return nil, fmt.Errorf("metadatas length %d does not match texts length %d", len(metadatas), len(texts))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, len(texts))
	for i := range texts {
		md := metadatas[i]
		if md == nil {
			md = map[string]string{}
		}
		metadataJSON, err := json.Marshal(md)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}

		ids[i] = uuid.NewString()
		_, err = tx.Exec(ctx,
			`INSERT INTO research_chunks (id, content, metadata, embedding) VALUES ($1, $2, $3, $4::vector)`,
			ids[i], texts[i], metadataJSON, pgv.NewVector(embeddings[i]).String())
		if err != nil {
			return nil, fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit chunk batch: %w", err)
	}

	s.logger.Debug("stored chunk batch", slog.Int("count", len(ids)))
	return ids, nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, k int, threshold float64) ([]vectorstore.Record, error) {
	if k <= 0 {
		k = 3
	}

	vec := pgv.NewVector(embedding).String()
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM research_chunks
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, vec, k)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	var results []vectorstore.Record
	for rows.Next() {
		var r vectorstore.Record
		var metadataJSON []byte
		if err := rows.Scan(&r.ID, &r.Text, &metadataJSON, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			r.Metadata = map[string]string{}
		}
		if r.Score < threshold {
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("error reading chunk rows: %w", err)
	}

	return results, nil
}

// Reset wipes the whole collection. TRUNCATE is transactional in Postgres,
// so concurrent readers see either the old contents or none.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE research_chunks`); err != nil {
		return fmt.Errorf("failed to reset research_chunks: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM research_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
