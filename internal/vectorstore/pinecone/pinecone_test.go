package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

func newTestStore(t *testing.T, url string) *Store {
	t.Helper()
	s, err := New(Config{
		IndexHost: url,
		APIKey:    "pcsk_test",
		Namespace: "reddit-posts",
		Logger:    log.NewNop(),
	})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err, "missing host")

	_, err = New(Config{IndexHost: "https://idx.svc.pinecone.io"})
	assert.Error(t, err, "missing key")
}

func TestUpsert(t *testing.T) {
	var got upsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/upsert", r.URL.Path)
		assert.Equal(t, "pcsk_test", r.Header.Get("Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"upsertedCount": 2}`))
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)
	err := s.Upsert(context.Background(), []vectorstore.Vector{
		{ID: "p1:0", Values: []float32{0.1, 0.2}, Metadata: map[string]string{"post_id": "p1", "text": "hello"}},
		{ID: "p1:1", Values: []float32{0.3, 0.4}, Metadata: map[string]string{"post_id": "p1", "text": "world"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "reddit-posts", got.Namespace)
	require.Len(t, got.Vectors, 2)
	assert.Equal(t, "p1:0", got.Vectors[0].ID)
	assert.Equal(t, "hello", got.Vectors[0].Metadata["text"])
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)
	assert.NoError(t, s.Upsert(context.Background(), nil))
}

func TestQuery(t *testing.T) {
	var got queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"matches": [
			{"id": "p1:0", "score": 0.91, "metadata": {"post_id": "p1", "text": "hello", "chunk": "0"}},
			{"id": "p1:1", "score": 0.72, "metadata": {"post_id": "p1", "text": "world", "chunk": "1"}}
		]}`))
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)
	matches, err := s.Query(context.Background(), []float32{0.1, 0.2}, 4,
		map[string]string{"post_id": "p1"})
	require.NoError(t, err)

	assert.Equal(t, 4, got.TopK)
	assert.True(t, got.IncludeMetadata)
	assert.Equal(t, map[string]any{"post_id": map[string]any{"$eq": "p1"}}, got.Filter)

	require.Len(t, matches, 2)
	assert.Equal(t, "p1:0", matches[0].ID)
	assert.InDelta(t, 0.91, float64(matches[0].Score), 1e-6)
	assert.Equal(t, "hello", matches[0].Metadata["text"])
}

func TestDelete(t *testing.T) {
	t.Run("filter delete", func(t *testing.T) {
		var got deleteRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/vectors/delete", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		s := newTestStore(t, srv.URL)
		require.NoError(t, s.Delete(context.Background(), map[string]string{"post_id": "p1"}))
		assert.False(t, got.DeleteAll)
		assert.Equal(t, map[string]any{"post_id": map[string]any{"$eq": "p1"}}, got.Filter)
	})

	t.Run("empty filter deletes all", func(t *testing.T) {
		var got deleteRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		s := newTestStore(t, srv.URL)
		require.NoError(t, s.Delete(context.Background(), nil))
		assert.True(t, got.DeleteAll)
		assert.Nil(t, got.Filter)
	})
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/describe_index_stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"totalVectorCount": 0}`))
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestRetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "vector dimension mismatch"}`))
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)
	_, err := s.Query(context.Background(), []float32{0.1}, 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}
