// Package postgres opens the PostgreSQL storage engine through pgx's
// database/sql driver. Queries are shared with SQLite via package sqlstore;
// this package contributes the $n placeholder style and the way PostgreSQL
// reports unique violations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/sakif/accounts-api/internal/repository/sqlstore"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// uniqueViolationCode is SQLSTATE unique_violation.
const uniqueViolationCode = "23505"

var Dialect = sqlstore.Dialect{
	Name:            "postgres",
	Rebind:          sqlstore.RebindDollar,
	UniqueViolation: uniqueViolation,
}

// Options tunes the connection pool. Zero values keep database/sql defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New connects to dsn (a postgres:// URL or key=value string), migrates
// the schema and returns the store.
func New(ctx context.Context, dsn string, opts Options, logger *slog.Logger) (*sqlstore.Store, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	if err := Migrate(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}

	return sqlstore.New(conn, Dialect), nil
}

// Migrate applies the embedded PostgreSQL migrations.
func Migrate(ctx context.Context, conn *sql.DB, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migrations fs: %w", err)
	}
	if err := sqlstore.Migrate(ctx, conn, sub, Dialect.Name, logger); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// uniqueViolation returns the violated constraint name, e.g. "users_email_key".
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}
