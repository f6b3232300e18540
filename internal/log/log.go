// Package log provides the logging infrastructure for threadlens.
//
// Components receive a Logger via their constructor and may add context
// with logger.With("component", ...). There are no package-level loggers;
// tests use NewNop or NewWithWriter to capture output.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger. Using the standard library type
// directly keeps full compatibility with the slog ecosystem and avoids a
// custom interface that would only mirror it.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries.
	AddSource bool
}

// New creates a logger writing to os.Stderr with the given configuration.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger that writes to the specified writer.
// Useful for tests that inspect log output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output. Tests only; production
// code should always use New or NewWithWriter.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
