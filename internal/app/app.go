// Package app wires configuration, the Reddit client, the AI provider, the
// vector store and the HTTP server into one runnable application.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadlens/threadlens/internal/api"
	"github.com/threadlens/threadlens/internal/config"
	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/rag"
	"github.com/threadlens/threadlens/internal/reddit"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Reddit   *reddit.Client
	Store    vectorstore.Store
	Engine   *rag.Engine
	Server   *api.Server

	// DBPool is non-nil only for the pgvector backend.
	DBPool *pgxpool.Pool

	otelCleanup func()
}

// Close releases resources in reverse initialization order.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	var firstErr error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return firstErr
}
