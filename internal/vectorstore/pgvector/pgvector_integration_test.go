package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadlens/threadlens/db"
	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

// setupTestStore connects to the database in TEST_DATABASE_URL, runs
// migrations, and starts each test from an empty table.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping integration test")
	}

	ctx := context.Background()
	require.NoError(t, db.Migrate(dbURL))

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := New(pool, log.NewNop())
	require.NoError(t, store.Delete(ctx, nil))
	return store
}

// testVector pads a 3-dim direction out to the schema's 1536 dimensions.
func testVector(x, y, z float32) []float32 {
	v := make([]float32, 1536)
	v[0], v[1], v[2] = x, y, z
	return v
}

func TestStore_UpsertQueryDelete_Integration(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, []vectorstore.Vector{
		{ID: "p1:0", Values: testVector(1, 0, 0), Metadata: map[string]string{"post_id": "p1", "text": "alpha"}},
		{ID: "p1:1", Values: testVector(0.9, 0.1, 0), Metadata: map[string]string{"post_id": "p1", "text": "beta"}},
		{ID: "p2:0", Values: testVector(0, 1, 0), Metadata: map[string]string{"post_id": "p2", "text": "gamma"}},
	})
	require.NoError(t, err)

	t.Run("query orders by similarity", func(t *testing.T) {
		matches, err := store.Query(ctx, testVector(1, 0, 0), 2, nil)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "p1:0", matches[0].ID)
		assert.Equal(t, "p1:1", matches[1].ID)
		assert.Greater(t, matches[0].Score, matches[1].Score)
	})

	t.Run("metadata filter restricts results", func(t *testing.T) {
		matches, err := store.Query(ctx, testVector(1, 0, 0), 10,
			map[string]string{"post_id": "p2"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "gamma", matches[0].Metadata["text"])
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		err := store.Upsert(ctx, []vectorstore.Vector{
			{ID: "p1:0", Values: testVector(0, 0, 1), Metadata: map[string]string{"post_id": "p1", "text": "updated"}},
		})
		require.NoError(t, err)

		matches, err := store.Query(ctx, testVector(0, 0, 1), 1, nil)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "updated", matches[0].Metadata["text"])
	})

	t.Run("delete by filter", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, map[string]string{"post_id": "p1"}))

		matches, err := store.Query(ctx, testVector(1, 0, 0), 10, nil)
		require.NoError(t, err)
		for _, m := range matches {
			assert.NotEqual(t, "p1", m.Metadata["post_id"])
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
