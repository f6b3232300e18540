package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	coreapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/threadlens/threadlens/db"
	"github.com/threadlens/threadlens/internal/api"
	"github.com/threadlens/threadlens/internal/chunk"
	"github.com/threadlens/threadlens/internal/config"
	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/rag"
	"github.com/threadlens/threadlens/internal/reddit"
	"github.com/threadlens/threadlens/internal/vectorstore"
	"github.com/threadlens/threadlens/internal/vectorstore/memory"
	"github.com/threadlens/threadlens/internal/vectorstore/pgvector"
	"github.com/threadlens/threadlens/internal/vectorstore/pinecone"
)

// Setup creates and initializes the application. Call Close on the returned
// App to release its resources.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	store, pool, err := provideStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.DBPool = pool

	redditClient, err := reddit.New(reddit.Config{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		UserAgent:    cfg.RedditUserAgent,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating reddit client: %w", err)
	}
	a.Reddit = redditClient

	splitter, err := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating splitter: %w", err)
	}

	engine, err := rag.New(rag.Config{
		Genkit:    g,
		Embedder:  embedder,
		Store:     store,
		Splitter:  splitter,
		ModelName: cfg.FullModelName(),
		TopK:      cfg.TopK,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rag engine: %w", err)
	}
	a.Engine = engine

	server, err := api.NewServer(api.ServerConfig{
		Logger:   logger,
		Posts:    redditClient,
		Pipeline: engine,
		Store:    store,
	})
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}
	a.Server = server

	return a, nil
}

// provideOtelShutdown exports traces over OTLP HTTP when an endpoint is
// configured. Runs before provideGenkit so the span processor is registered
// on Genkit's TracerProvider ahead of any flow execution.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	// SAFETY: os.Setenv is not concurrent-safe, but this runs exactly once
	// during startup before any goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("trace export enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no auto-discovery, models must be registered explicitly.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit", "provider", cfg.Provider,
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGemini, config.ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName)

	default: // openai
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Each provider registers embedders differently:
//   - ollama: registered in provideGenkit, keyed by server address
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderGemini, config.ProviderGoogleAI:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default:
		return genkit.LookupEmbedder(g, coreapi.NewName("openai", cfg.EmbedderModel))
	}
}

// provideStore creates the configured vector store backend. The returned
// pool is non-nil only for pgvector.
func provideStore(ctx context.Context, cfg *config.Config, logger log.Logger) (vectorstore.Store, *pgxpool.Pool, error) {
	switch cfg.VectorBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory vector store, index is lost on restart")
		return memory.New(), nil, nil

	case config.BackendPGVector:
		pool, err := provideDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return pgvector.New(pool, logger), pool, nil

	default: // pinecone
		store, err := pinecone.New(pinecone.Config{
			IndexHost: cfg.PineconeIndexHost,
			APIKey:    cfg.PineconeAPIKey,
			Namespace: cfg.IndexNamespace,
			Logger:    logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating pinecone store: %w", err)
		}
		return store, nil, nil
	}
}

// provideDBPool runs migrations and opens a pgx connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
