// Package memory provides an in-process vector store for development and
// tests. Data is lost on restart.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/threadlens/threadlens/internal/vectorstore"
)

// Store keeps vectors in a map and scans them linearly on query. Fine for
// the handful of chunks a single Reddit post produces.
type Store struct {
	mu      sync.RWMutex
	vectors map[string]vectorstore.Vector
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{vectors: make(map[string]vectorstore.Vector)}
}

// Upsert inserts or replaces vectors by ID.
func (s *Store) Upsert(_ context.Context, vectors []vectorstore.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		s.vectors[v.ID] = v
	}
	return nil
}

// Query scans all vectors and returns the topK by cosine similarity.
func (s *Store) Query(_ context.Context, values []float32, topK int, filter map[string]string) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vectorstore.Match, 0, len(s.vectors))
	for _, v := range s.vectors {
		if !metadataMatches(v.Metadata, filter) {
			continue
		}
		matches = append(matches, vectorstore.Match{
			ID:       v.ID,
			Score:    cosineSimilarity(values, v.Values),
			Metadata: v.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes vectors matching filter; an empty filter clears the store.
func (s *Store) Delete(_ context.Context, filter map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(filter) == 0 {
		s.vectors = make(map[string]vectorstore.Vector)
		return nil
	}
	for id, v := range s.vectors {
		if metadataMatches(v.Metadata, filter) {
			delete(s.vectors, id)
		}
	}
	return nil
}

// Ping always succeeds.
func (*Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (*Store) Close() error { return nil }

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func metadataMatches(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
