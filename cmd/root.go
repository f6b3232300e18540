// Package cmd contains the threadlens command-line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/threadlens/threadlens/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "threadlens",
	Short: "threadlens - chat with Reddit posts",
	Long: `threadlens fetches Reddit posts, indexes them into a vector store,
and answers questions about a post grounded in its body and comments.

Running threadlens without a subcommand starts the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
	SilenceUsage: true,
}

// Execute runs the root command. Environment variables from a local .env
// file are loaded first so credentials never need to live in shell profiles.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG in the environment switches to
// debug level, LOG_JSON switches the handler to JSON output.
func newLogger() log.Logger {
	return log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("LOG_JSON") != "",
	})
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
