// Package storage opens the store selected by configuration. Both
// commands go through Open so the server and the admin CLI always agree on
// which database they talk to.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/accounts-api/internal/config"
	"github.com/sakif/accounts-api/internal/repository/postgres"
	"github.com/sakif/accounts-api/internal/repository/sqlite"
	"github.com/sakif/accounts-api/internal/repository/sqlstore"
)

// Open connects to the configured engine and applies pending migrations.
//
// For sqlite the DSN is a file path; its parent directory is created if
// needed (like `mkdir -p`). ":memory:" and "file:" URIs are passed through
// untouched.
func Open(ctx context.Context, cfg config.Storage, logger *slog.Logger) (*sqlstore.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
		return sqlite.New(ctx, cfg.DSN, logger)

	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DSN, postgres.Options{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, logger)
	}
	return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
}

func ensureDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	return nil
}
