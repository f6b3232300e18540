// Package pgvector implements the vector store on PostgreSQL with the
// pgvector extension. Similarity search is delegated to the database's
// cosine distance operator.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

// queryTimeout bounds vector search so a degraded index cannot stall requests.
const queryTimeout = 10 * time.Second

// Store persists chunk vectors in the post_chunks table.
// Safe for concurrent use; the pool handles connection management.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a pgvector-backed store on an existing pool. The pool is owned
// by the caller; Close does not close it.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Upsert writes vectors in one batch, replacing rows with matching IDs.
func (s *Store) Upsert(ctx context.Context, vectors []vectorstore.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, v := range vectors {
		metadata, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", v.ID, err)
		}
		batch.Queue(`
			INSERT INTO post_chunks (id, embedding, metadata)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
			v.ID, pgv.NewVector(v.Values), metadata)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range vectors {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting chunk: %w", err)
		}
	}

	s.logger.Debug("upserted vectors", "count", len(vectors))
	return nil
}

// Query returns the topK most similar vectors by cosine similarity.
// filterJSON uses the JSONB containment operator, so only rows whose
// metadata includes every filter pair match.
func (s *Store) Query(ctx context.Context, values []float32, topK int, filter map[string]string) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	embedding := pgv.NewVector(values)

	var rows pgx.Rows
	var err error
	if len(filter) > 0 {
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("marshaling filter: %w", marshalErr)
		}
		rows, err = s.pool.Query(queryCtx, `
			SELECT id, metadata, 1 - (embedding <=> $1) AS similarity
			FROM post_chunks
			WHERE metadata @> $2
			ORDER BY embedding <=> $1
			LIMIT $3`,
			embedding, filterJSON, topK)
	} else {
		rows, err = s.pool.Query(queryCtx, `
			SELECT id, metadata, 1 - (embedding <=> $1) AS similarity
			FROM post_chunks
			ORDER BY embedding <=> $1
			LIMIT $2`,
			embedding, topK)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var matches []vectorstore.Match
	for rows.Next() {
		var (
			id           string
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&id, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}

		var metadata map[string]string
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			s.logger.Warn("unparseable chunk metadata", "id", id, "error", err)
			metadata = map[string]string{}
		}

		matches = append(matches, vectorstore.Match{
			ID:       id,
			Score:    float32(similarity),
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return matches, nil
}

// Delete removes rows matching filter; an empty filter truncates the table.
func (s *Store) Delete(ctx context.Context, filter map[string]string) error {
	if len(filter) == 0 {
		if _, err := s.pool.Exec(ctx, `TRUNCATE post_chunks`); err != nil {
			return fmt.Errorf("truncating post_chunks: %w", err)
		}
		return nil
	}

	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("marshaling filter: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM post_chunks WHERE metadata @> $1`, filterJSON); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the application.
func (*Store) Close() error { return nil }
