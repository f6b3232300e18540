package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestValidate_RedditCredentials(t *testing.T) {
	t.Run("missing client id", func(t *testing.T) {
		cfg := validConfig()
		cfg.RedditClientID = ""
		assert.ErrorIs(t, cfg.Validate(), ErrMissingRedditCredentials)
	})

	t.Run("missing client secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.RedditClientSecret = ""
		assert.ErrorIs(t, cfg.Validate(), ErrMissingRedditCredentials)
	})

	t.Run("missing user agent", func(t *testing.T) {
		cfg := validConfig()
		cfg.RedditUserAgent = ""
		assert.ErrorIs(t, cfg.Validate(), ErrMissingRedditCredentials)
	})
}

func TestValidate_Provider(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider = "anthropic"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidProvider)
	})

	t.Run("openai requires OPENAI_API_KEY", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		cfg := validConfig()
		cfg.Provider = ProviderOpenAI
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("openai passes with key set", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		cfg := validConfig()
		cfg.Provider = ProviderOpenAI
		assert.NoError(t, cfg.Validate())
	})

	t.Run("gemini requires GEMINI_API_KEY", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		cfg := validConfig()
		cfg.Provider = ProviderGemini
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("ollama requires host", func(t *testing.T) {
		cfg := validConfig()
		cfg.OllamaHost = ""
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidProvider)
	})
}

func TestValidate_VectorBackend(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.VectorBackend = "redis"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidVectorBackend)
	})

	t.Run("pinecone requires key and host", func(t *testing.T) {
		cfg := validConfig()
		cfg.VectorBackend = BackendPinecone
		assert.ErrorIs(t, cfg.Validate(), ErrMissingPineconeConfig)

		cfg.PineconeAPIKey = "pcsk_test"
		assert.ErrorIs(t, cfg.Validate(), ErrMissingPineconeConfig)

		cfg.PineconeIndexHost = "https://idx-abc123.svc.pinecone.io"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("pgvector requires database url", func(t *testing.T) {
		cfg := validConfig()
		cfg.VectorBackend = BackendPGVector
		assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)

		cfg.DatabaseURL = "postgres://localhost:5432/threadlens"
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidate_Chunking(t *testing.T) {
	t.Run("non-positive chunk size", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChunkSize = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidChunking)
	})

	t.Run("overlap must be smaller than size", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChunkOverlap = cfg.ChunkSize
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidChunking)
	})

	t.Run("negative overlap", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChunkOverlap = -1
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidChunking)
	})
}

func TestValidate_TopK(t *testing.T) {
	cfg := validConfig()
	cfg.TopK = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTopK)

	cfg.TopK = MaxTopK + 1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTopK)
}

func TestValidate_EmbeddingDim(t *testing.T) {
	cfg := validConfig()
	cfg.EmbeddingDim = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidEmbeddingDim)
}
