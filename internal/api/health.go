package api

import (
	"context"
	"net/http"
	"time"

	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/vectorstore"
)

const readinessTimeout = 2 * time.Second

// health is the liveness probe. It answers as long as the process serves.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readiness pings the vector store. A nil store means the backend has no
// meaningful probe, so readiness degrades to liveness.
func readiness(store vectorstore.Store, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logger.Warn("readiness probe failed", "error", err)
				writeError(w, logger, http.StatusServiceUnavailable, codeUnavailable,
					"vector store is unreachable")
				return
			}
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ready"})
	}
}
