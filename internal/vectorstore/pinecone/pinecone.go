// Package pinecone implements the vector store against a Pinecone index
// over its REST data-plane API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 3
)

// Config configures the Pinecone client.
type Config struct {
	// IndexHost is the index's data-plane host, e.g.
	// https://my-index-abc1234.svc.aped-4627-b74a.pinecone.io
	IndexHost string
	APIKey    string
	Namespace string
	Timeout   time.Duration
	Logger    log.Logger
}

// Store is a REST client to one Pinecone index namespace.
// All vectors live under Config.Namespace.
type Store struct {
	host       string
	apiKey     string
	namespace  string
	client     *http.Client
	logger     log.Logger
	maxRetries int
}

// New creates a Pinecone-backed store.
func New(cfg Config) (*Store, error) {
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone index host is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone API key is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Store{
		host:       strings.TrimRight(cfg.IndexHost, "/"),
		apiKey:     cfg.APIKey,
		namespace:  cfg.Namespace,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}, nil
}

type upsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type pineconeVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Upsert writes vectors into the index namespace.
func (s *Store) Upsert(ctx context.Context, vectors []vectorstore.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	req := upsertRequest{Namespace: s.namespace}
	req.Vectors = make([]pineconeVector, len(vectors))
	for i, v := range vectors {
		req.Vectors[i] = pineconeVector{ID: v.ID, Values: v.Values, Metadata: v.Metadata}
	}

	if err := s.postJSON(ctx, "/vectors/upsert", req, nil); err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	s.logger.Debug("upserted vectors", "count", len(vectors), "namespace", s.namespace)
	return nil
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Namespace       string         `json:"namespace,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK nearest vectors, optionally restricted by a
// metadata equality filter.
func (s *Store) Query(ctx context.Context, values []float32, topK int, filter map[string]string) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	req := queryRequest{
		Vector:          values,
		TopK:            topK,
		Namespace:       s.namespace,
		Filter:          equalityFilter(filter),
		IncludeMetadata: true,
	}

	var resp queryResponse
	if err := s.postJSON(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	matches := make([]vectorstore.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		metadata := make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			if str, ok := v.(string); ok {
				metadata[k] = str
			}
		}
		matches = append(matches, vectorstore.Match{ID: m.ID, Score: m.Score, Metadata: metadata})
	}
	return matches, nil
}

type deleteRequest struct {
	DeleteAll bool           `json:"deleteAll,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
}

// Delete removes vectors matching filter; an empty filter clears the
// whole namespace.
func (s *Store) Delete(ctx context.Context, filter map[string]string) error {
	req := deleteRequest{Namespace: s.namespace}
	if len(filter) == 0 {
		req.DeleteAll = true
	} else {
		req.Filter = equalityFilter(filter)
	}

	if err := s.postJSON(ctx, "/vectors/delete", req, nil); err != nil {
		return fmt.Errorf("pinecone delete: %w", err)
	}
	return nil
}

// Ping checks index reachability via describe_index_stats.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.postJSON(ctx, "/describe_index_stats", struct{}{}, nil); err != nil {
		return fmt.Errorf("pinecone ping: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no per-index state.
func (*Store) Close() error { return nil }

// equalityFilter converts {"post_id": "x"} into Pinecone's filter syntax
// {"post_id": {"$eq": "x"}}.
func equalityFilter(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		out[k] = map[string]any{"$eq": v}
	}
	return out
}

// postJSON performs one data-plane call, retrying on 429 and 5xx with
// exponential backoff. out may be nil when the response body is irrelevant.
func (s *Store) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Api-Key", s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			if attempt < s.maxRetries {
				backoff(ctx, attempt)
				continue
			}
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			if attempt < s.maxRetries {
				backoff(ctx, attempt)
				continue
			}
			return fmt.Errorf("%s failed: %s", path, resp.Status)
		}

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			return fmt.Errorf("%s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}
}

func backoff(ctx context.Context, attempt int) {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
