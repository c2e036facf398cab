// Package sqlite opens the embedded SQLite storage engine.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C toolchain, the binary
// cross-compiles like any other Go program. That makes it the default
// engine for local development, tests (":memory:") and single-node
// deployments. PostgreSQL (package postgres) serves everything else.
//
// All queries live in package sqlstore; this package only opens the pool,
// sets connection pragmas, runs migrations and describes the dialect.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/accounts-api/internal/repository/sqlstore"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Dialect is the SQLite flavour of sqlstore.Dialect. SQLite accepts "?"
// placeholders as written.
var Dialect = sqlstore.Dialect{
	Name:            "sqlite3",
	UniqueViolation: uniqueViolation,
}

// New opens (or creates) the database at dsn and migrates it.
//
// dsn examples:
//   - "data/accounts.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests; gone on close)
//
// ONE CONNECTION:
// The pool is capped at one connection. SQLite serializes writers anyway,
// pragmas such as foreign_keys are per connection, and an in-memory
// database exists only inside the connection that created it.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*sqlstore.Store, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		// Off by default in SQLite; the profile/token cascades depend on it.
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if err := Migrate(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}

	return sqlstore.New(conn, Dialect), nil
}

// Migrate applies the embedded SQLite migrations.
func Migrate(ctx context.Context, conn *sql.DB, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: migrations fs: %w", err)
	}
	if err := sqlstore.Migrate(ctx, conn, sub, Dialect.Name, logger); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

// uniqueViolation recognizes UNIQUE and PRIMARY KEY failures. SQLite's
// message names the column ("UNIQUE constraint failed: users.email"),
// which is what sqlstore needs to pick the offending field.
func uniqueViolation(err error) (string, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return "", false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return se.Error(), true
	}
	if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE") {
		return se.Error(), true
	}
	return "", false
}
