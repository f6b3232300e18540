// Package vectorstore defines the vector persistence boundary of the RAG
// pipeline and its backends.
//
// The service never computes similarity itself; each backend delegates
// search to its engine (Pinecone index, PostgreSQL pgvector, or the
// in-process dev store). Chunk text travels in metadata under "text" so a
// query result is directly usable as prompt context.
package vectorstore

import "context"

// Metadata keys written by the indexer and read by the retriever.
const (
	MetaText    = "text"
	MetaPostID  = "post_id"
	MetaTitle   = "title"
	MetaUpvotes = "upvotes"
	MetaChunk   = "chunk"
)

// Vector is one embedded chunk ready for upsert.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// Match is a query result with the backend's similarity score.
// Scores are cosine similarities in [0, 1], higher is more similar.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Store persists embedding vectors and answers nearest-neighbor queries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Upsert inserts or replaces vectors by ID.
	Upsert(ctx context.Context, vectors []Vector) error

	// Query returns the topK most similar vectors. A non-nil filter
	// restricts results to vectors whose metadata contains every
	// key/value pair in it.
	Query(ctx context.Context, values []float32, topK int, filter map[string]string) ([]Match, error)

	// Delete removes vectors whose metadata matches filter. An empty
	// filter removes everything.
	Delete(ctx context.Context, filter map[string]string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
