// Package rag implements the retrieval-augmented pipeline: chunk a post,
// embed the chunks, persist them in a vector store, and answer questions
// grounded in the retrieved chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/threadlens/threadlens/internal/chunk"
	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/post"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

// DefaultTopK is the number of chunks retrieved per question when the
// configuration does not override it.
const DefaultTopK = 4

var (
	ErrNilGenkit   = errors.New("rag: genkit instance is required")
	ErrNilEmbedder = errors.New("rag: embedder is required")
	ErrNilStore    = errors.New("rag: vector store is required")
	ErrNilSplitter = errors.New("rag: splitter is required")
	ErrEmptyModel  = errors.New("rag: model name is required")
)

// generateFunc matches genkit.Generate. Tests substitute a fake so the
// pipeline can run without a model provider.
type generateFunc func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error)

// Config carries the Engine's dependencies.
type Config struct {
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	Store     vectorstore.Store
	Splitter  *chunk.Splitter
	ModelName string
	TopK      int
	Logger    log.Logger
}

// Engine ties the embedder, vector store and model into one pipeline.
type Engine struct {
	g         *genkit.Genkit
	embedder  ai.Embedder
	store     vectorstore.Store
	splitter  *chunk.Splitter
	modelName string
	topK      int
	logger    log.Logger
	generate  generateFunc
}

// New validates cfg and builds an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Genkit == nil {
		return nil, ErrNilGenkit
	}
	if cfg.Embedder == nil {
		return nil, ErrNilEmbedder
	}
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	if cfg.Splitter == nil {
		return nil, ErrNilSplitter
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return nil, ErrEmptyModel
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		g:         cfg.Genkit,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		splitter:  cfg.Splitter,
		modelName: cfg.ModelName,
		topK:      topK,
		logger:    logger,
		generate:  genkit.Generate,
	}, nil
}

// IndexPost replaces the post's vectors with freshly embedded chunks of its
// current content and returns the number of chunks written. Re-fetching a
// post therefore never leaves stale chunks behind.
func (e *Engine) IndexPost(ctx context.Context, p *post.Post) (int, error) {
	if p == nil || p.ID == "" {
		return 0, errors.New("rag: post with a non-empty ID is required")
	}

	chunks := e.splitter.Split(p.Content())
	if len(chunks) == 0 {
		return 0, fmt.Errorf("rag: post %s has no indexable content", p.ID)
	}

	docs := make([]*ai.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = ai.DocumentFromText(c, nil)
	}
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks for post %s: %w", len(chunks), p.ID, err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return 0, fmt.Errorf("rag: embedder returned %d embeddings for %d chunks", len(resp.Embeddings), len(chunks))
	}

	vectors := make([]vectorstore.Vector, len(chunks))
	for i, c := range chunks {
		vectors[i] = vectorstore.Vector{
			ID:     fmt.Sprintf("%s:%d", p.ID, i),
			Values: resp.Embeddings[i].Embedding,
			Metadata: map[string]string{
				vectorstore.MetaPostID:  p.ID,
				vectorstore.MetaTitle:   p.Title,
				vectorstore.MetaUpvotes: strconv.Itoa(p.UpvoteCount()),
				vectorstore.MetaChunk:   strconv.Itoa(i),
				vectorstore.MetaText:    c,
			},
		}
	}

	// Drop the previous generation of chunks first so a shorter re-index
	// cannot leave orphans at higher chunk offsets.
	if err := e.store.Delete(ctx, map[string]string{vectorstore.MetaPostID: p.ID}); err != nil {
		return 0, fmt.Errorf("clearing old vectors for post %s: %w", p.ID, err)
	}
	if err := e.store.Upsert(ctx, vectors); err != nil {
		return 0, fmt.Errorf("upserting %d vectors for post %s: %w", len(vectors), p.ID, err)
	}

	e.logger.Info("post indexed", "post_id", p.ID, "chunks", len(vectors))
	return len(vectors), nil
}

// Answer retrieves the chunks of the given post most similar to question and
// asks the model to answer from them. When nothing is indexed for the post
// it answers "don't know" without calling the model.
func (e *Engine) Answer(ctx context.Context, postID, question string, history []Turn) (string, error) {
	if postID == "" {
		return "", errors.New("rag: post ID is required")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("rag: question is required")
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(question, nil)},
	})
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return "", errors.New("rag: embedder returned no embedding for question")
	}

	matches, err := e.store.Query(ctx, resp.Embeddings[0].Embedding, e.topK,
		map[string]string{vectorstore.MetaPostID: postID})
	if err != nil {
		return "", fmt.Errorf("querying vectors for post %s: %w", postID, err)
	}

	contextBlock := formatContext(matches)
	if contextBlock == "" {
		e.logger.Warn("no context retrieved", "post_id", postID)
		return noContextResponse, nil
	}

	messages, err := buildMessages(history, question)
	if err != nil {
		return "", err
	}

	response, err := e.generate(ctx, e.g,
		ai.WithModelName(e.modelName),
		ai.WithSystem(fmt.Sprintf(answerSystemPrompt, contextBlock)),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return "", fmt.Errorf("generating answer for post %s: %w", postID, err)
	}

	answer := strings.TrimSpace(response.Text())
	if answer == "" {
		return noContextResponse, nil
	}

	e.logger.Debug("answer generated", "post_id", postID, "context_chunks", len(matches))
	return answer, nil
}
