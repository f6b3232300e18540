// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml or ./config/config.yaml)
//  3. Default values
//
// Main categories:
//   - Server: listen address
//   - Reddit: API credentials (client id/secret, user agent)
//   - AI: provider, chat model, embedder model
//   - Vector store: backend selection plus Pinecone / PostgreSQL settings
//   - RAG: chunking and retrieval parameters
//   - Observability: optional OTLP trace export
//
// Sensitive fields are masked in MarshalJSON so a Config can be logged safely.
// Validation is fail-fast: Load returns an error before the service starts.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// Vector store backend identifiers used in Config.VectorBackend.
const (
	BackendPinecone = "pinecone"
	BackendPGVector = "pgvector"
	BackendMemory   = "memory"
)

// Defaults for the RAG pipeline. Chunk size and overlap follow the splitter
// settings the service has always used for Reddit posts.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 4
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (secrets, API keys), update MarshalJSON.
type Config struct {
	// Server configuration
	Addr string `mapstructure:"addr" json:"addr"`

	// Reddit API credentials
	RedditClientID     string `mapstructure:"reddit_client_id" json:"reddit_client_id"`
	RedditClientSecret string `mapstructure:"reddit_client_secret" json:"reddit_client_secret"` // SENSITIVE: masked in MarshalJSON
	RedditUserAgent    string `mapstructure:"reddit_user_agent" json:"reddit_user_agent"`

	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`       // "openai" (default), "gemini", "ollama"
	ModelName     string `mapstructure:"model_name" json:"model_name"`   // e.g. "gpt-4o-mini", "gemini-2.5-flash"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"`

	// Vector store configuration
	VectorBackend     string `mapstructure:"vector_backend" json:"vector_backend"` // "pinecone" (default), "pgvector", "memory"
	PineconeAPIKey    string `mapstructure:"pinecone_api_key" json:"pinecone_api_key"` // SENSITIVE: masked in MarshalJSON
	PineconeIndexHost string `mapstructure:"pinecone_index_host" json:"pinecone_index_host"`
	IndexNamespace    string `mapstructure:"index_namespace" json:"index_namespace"`
	DatabaseURL       string `mapstructure:"database_url" json:"database_url"` // SENSITIVE: masked in MarshalJSON
	EmbeddingDim      int    `mapstructure:"embedding_dim" json:"embedding_dim"`

	// RAG pipeline configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	TopK         int `mapstructure:"top_k" json:"top_k"`

	// Observability configuration (trace export disabled when endpoint is empty)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	bindEnvVariables()

	// Configuration file is optional; defaults plus env vars are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("addr", "127.0.0.1:8080")

	// AI defaults. The service has an OpenAI-backed pipeline by default.
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4o-mini")
	viper.SetDefault("embedder_model", "text-embedding-3-small")
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Vector store defaults
	viper.SetDefault("vector_backend", BackendPinecone)
	viper.SetDefault("index_namespace", "reddit-posts")
	viper.SetDefault("embedding_dim", 1536)

	// RAG defaults
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("top_k", DefaultTopK)

	// Observability defaults
	viper.SetDefault("service_name", "threadlens")
	viper.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// Reddit and Pinecone credentials keep their conventional variable names so
// existing deployments work unchanged.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a programming bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("addr", "THREADLENS_ADDR")

	mustBind("reddit_client_id", "REDDIT_CLIENT_ID")
	mustBind("reddit_client_secret", "REDDIT_CLIENT_SECRET")
	mustBind("reddit_user_agent", "REDDIT_USER_AGENT")

	mustBind("provider", "THREADLENS_PROVIDER")
	mustBind("model_name", "THREADLENS_MODEL_NAME")
	mustBind("embedder_model", "THREADLENS_EMBEDDER_MODEL")
	mustBind("ollama_host", "THREADLENS_OLLAMA_HOST")

	mustBind("vector_backend", "THREADLENS_VECTOR_BACKEND")
	mustBind("pinecone_api_key", "PINECONE_API_KEY")
	mustBind("pinecone_index_host", "PINECONE_INDEX_HOST")
	mustBind("index_namespace", "INDEX_NAME")
	mustBind("database_url", "DATABASE_URL")

	mustBind("otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin,
	// and GEMINI_API_KEY by the Google AI plugin, not via Viper.
	// Validation checks their presence based on the selected provider.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 characters
// or fewer are fully masked; longer secrets keep the first and last two
// characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.RedditClientSecret = maskSecret(a.RedditClientSecret)
	a.PineconeAPIKey = maskSecret(a.PineconeAPIKey)
	a.DatabaseURL = maskSecret(a.DatabaseURL)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o-mini", "googleai/gemini-2.5-flash", "ollama/llama3.3".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderGemini, ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}
