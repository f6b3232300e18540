// Package db manages the PostgreSQL schema for the pgvector backend.
// Migrations are embedded at compile time and applied in order; the
// schema_migrations table is managed by golang-migrate.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending migrations. connURL must be a postgres:// or
// postgresql:// URL; it is rewritten to the pgx5:// scheme golang-migrate
// expects.
func Migrate(connURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	dbURL, err := convertToMigrateURL(connURL)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			slog.Warn("closing migration source", "error", srcErr)
		}
		if dbErr != nil {
			slog.Warn("closing migration connection", "error", dbErr)
		}
	}()

	// A dirty state means a previous run died mid-migration; refuse to
	// proceed rather than guessing.
	version, dirty, verErr := m.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		return fmt.Errorf("checking migration version: %w", verErr)
	}
	if dirty {
		return fmt.Errorf("database in dirty migration state (version=%d), run: migrate force %d", version, version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("no new migrations to apply")
			return nil
		}
		return fmt.Errorf("running migrations: %w", err)
	}

	if v, _, err := m.Version(); err == nil {
		slog.Info("migrations completed", "version", v)
	}
	return nil
}

// convertToMigrateURL rewrites postgres:// and postgresql:// URLs to the
// pgx5:// scheme used by golang-migrate's pgx v5 driver.
func convertToMigrateURL(connURL string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parsing database URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		u.Scheme = "pgx5"
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q (want postgres:// or postgresql://)", u.Scheme)
	}
}
