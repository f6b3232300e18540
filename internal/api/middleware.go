package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/threadlens/threadlens/internal/log"
)

type requestIDKey struct{}

var ctxKeyRequestID = requestIDKey{}

// requestIDFromContext retrieves the request ID assigned by the middleware.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// loggingWriter wraps http.ResponseWriter to capture status and size.
// Unwrap supports http.ResponseController.
type loggingWriter struct {
	w            http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lw *loggingWriter) Header() http.Header {
	return lw.w.Header()
}

func (lw *loggingWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.w.WriteHeader(code)
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if lw.statusCode == 0 {
		lw.statusCode = http.StatusOK
	}
	n, err := lw.w.Write(b)
	lw.bytesWritten += int64(n)
	return n, err
}

func (lw *loggingWriter) Unwrap() http.ResponseWriter {
	return lw.w
}

// recoveryMiddleware turns panics into 500 responses instead of dropped
// connections.
func recoveryMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &loggingWriter{w: w}

			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"request_id", requestIDFromContext(r.Context()),
						"headers_sent", wrapper.statusCode != 0,
					)
					if wrapper.statusCode == 0 {
						writeError(w, logger, http.StatusInternalServerError,
							codeInternalError, "internal server error")
					}
				}
			}()
			next.ServeHTTP(wrapper, r)
		})
	}
}

// requestIDMiddleware assigns each request a UUID, echoed in the
// X-Request-ID response header and available via the request context.
func requestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", id)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggingMiddleware logs method, path, status, size and latency per request.
// Reuses an existing *loggingWriter from recoveryMiddleware to avoid
// double-wrapping the ResponseWriter.
func loggingMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapper, ok := w.(*loggingWriter)
			if !ok {
				wrapper = &loggingWriter{w: w}
			}

			next.ServeHTTP(wrapper, r)

			status := wrapper.statusCode
			if status == 0 {
				status = http.StatusOK
			}

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", wrapper.bytesWritten,
				"duration", time.Since(start),
				"request_id", requestIDFromContext(r.Context()),
				"ip", r.RemoteAddr,
			)
		})
	}
}
