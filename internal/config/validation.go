package config

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingRedditCredentials indicates Reddit API credentials are missing.
	ErrMissingRedditCredentials = errors.New("missing Reddit credentials")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidVectorBackend indicates the vector store backend is unknown.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")

	// ErrMissingPineconeConfig indicates Pinecone settings are incomplete.
	ErrMissingPineconeConfig = errors.New("missing Pinecone configuration")

	// ErrMissingDatabaseURL indicates the pgvector backend has no connection URL.
	ErrMissingDatabaseURL = errors.New("missing database URL")

	// ErrInvalidChunking indicates chunk size/overlap settings are unusable.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidEmbeddingDim indicates the embedding dimension is out of range.
	ErrInvalidEmbeddingDim = errors.New("invalid embedding dimension")
)

// MaxTopK bounds retrieval size; more context than this only dilutes the prompt.
const MaxTopK = 20

// Validate checks the configuration and returns the first problem found.
// Wrapped sentinel errors allow callers to use errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.RedditClientID == "" || c.RedditClientSecret == "" {
		return fmt.Errorf("%w: set REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET", ErrMissingRedditCredentials)
	}
	if c.RedditUserAgent == "" {
		return fmt.Errorf("%w: set REDDIT_USER_AGENT (Reddit rejects requests without one)", ErrMissingRedditCredentials)
	}

	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host required for provider %q", ErrInvalidProvider, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q (supported: openai, gemini, ollama)", ErrInvalidProvider, c.Provider)
	}

	switch c.VectorBackend {
	case BackendPinecone:
		if c.PineconeAPIKey == "" || c.PineconeIndexHost == "" {
			return fmt.Errorf("%w: set PINECONE_API_KEY and PINECONE_INDEX_HOST", ErrMissingPineconeConfig)
		}
	case BackendPGVector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: set DATABASE_URL for the pgvector backend", ErrMissingDatabaseURL)
		}
	case BackendMemory:
		// No external settings; data is lost on restart.
	default:
		return fmt.Errorf("%w: %q (supported: pinecone, pgvector, memory)", ErrInvalidVectorBackend, c.VectorBackend)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.TopK < 1 || c.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k %d must be in [1, %d]", ErrInvalidTopK, c.TopK, MaxTopK)
	}

	if c.EmbeddingDim < 1 || c.EmbeddingDim > 4096 {
		return fmt.Errorf("%w: embedding_dim %d must be in [1, 4096]", ErrInvalidEmbeddingDim, c.EmbeddingDim)
	}

	return nil
}
