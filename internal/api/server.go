// Package api exposes the service over HTTP: subreddit listings, single-post
// fetch-and-index, and grounded chat about an indexed post.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/post"
	"github.com/threadlens/threadlens/internal/rag"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

// Listing defaults applied when the query string omits them.
const (
	DefaultSubreddit = "wallstreetbets"
	DefaultCategory  = "hot"
	DefaultLimit     = 10
)

// maxBodyBytes caps request bodies on the chat endpoint.
const maxBodyBytes = 1 << 20

// PostSource lists and fetches Reddit posts. *reddit.Client implements it.
type PostSource interface {
	ListPosts(ctx context.Context, subreddit, category string, limit int) ([]post.Post, error)
	FetchPost(ctx context.Context, postID string) (*post.Post, error)
}

// Pipeline indexes posts and answers questions about them. *rag.Engine
// implements it.
type Pipeline interface {
	IndexPost(ctx context.Context, p *post.Post) (int, error)
	Answer(ctx context.Context, postID, question string, history []rag.Turn) (string, error)
}

// ServerConfig carries the server's dependencies.
type ServerConfig struct {
	Logger   log.Logger
	Posts    PostSource
	Pipeline Pipeline
	Store    vectorstore.Store // used by the readiness probe
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires routes and middleware. Health probes sit outside the
// middleware stack so probe traffic stays out of the request log.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Posts == nil {
		return nil, errors.New("post source is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ph := &postHandler{posts: cfg.Posts, pipeline: cfg.Pipeline, logger: logger}
	ch := &chatHandler{pipeline: cfg.Pipeline, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /reddit/posts", ph.list)
	mux.HandleFunc("GET /reddit/post", ph.get)
	mux.HandleFunc("POST /reddit/chat", ch.send)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> Routes
	// RequestID runs before Logging so request_id appears in log attributes.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Store, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
