// Package sqlstore implements the repository interfaces on top of
// database/sql. It holds every query the application runs; the sqlite and
// postgres packages only open a connection, run migrations and describe
// their dialect.
//
// QUERIES ARE WRITTEN ONCE:
// Queries use "?" placeholders and a small, portable SQL subset
// (RETURNING, ON CONFLICT DO NOTHING) that both engines understand.
// Dialect.Rebind rewrites the placeholders for engines that want $1, $2...
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/sakif/accounts-api/internal/dbx"
	"github.com/sakif/accounts-api/internal/repository"
)

// Dialect captures what differs between storage engines.
type Dialect struct {
	// Name is the goose dialect ("sqlite3", "postgres").
	Name string

	// Rebind rewrites "?" placeholders. Nil means no rewriting.
	Rebind func(query string) string

	// UniqueViolation reports whether err is a unique-constraint failure
	// and returns text that names the violated constraint or column.
	UniqueViolation func(err error) (string, bool)
}

// Store is a repository.Store backed by database/sql.
//
// Outside a transaction db is set and q == db. Inside WithinTx a new Store
// is handed out whose q is the *sql.Tx and whose db is nil.
type Store struct {
	db      *sql.DB
	q       dbx.DBTX
	dialect Dialect
}

// compile-time check that *Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// New wraps an open connection pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, q: db, dialect: dialect}
}

func (s *Store) Users() repository.UserRepository       { return &userRepo{s} }
func (s *Store) Profiles() repository.ProfileRepository { return &profileRepo{s} }
func (s *Store) Tokens() repository.TokenRepository     { return &tokenRepo{s} }

// WithinTx runs fn in a transaction. Nested calls join the outer
// transaction instead of opening a second one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.db == nil {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &Store{q: tx, dialect: s.dialect})
	})
}

// Ping checks the connection. Inside a transaction there is nothing to check.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	if s.db == nil {
		return errors.New("sqlstore: cannot close a transactional store")
	}
	return s.db.Close()
}

// DB exposes the pool for migrations and admin tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) rebind(query string) string {
	if s.dialect.Rebind == nil {
		return query
	}
	return s.dialect.Rebind(query)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.rebind(query), args...)
}

// uniqueField maps a unique violation to the input field it concerns.
// ok is false when err is not a unique violation at all.
func (s *Store) uniqueField(err error) (field string, ok bool) {
	if s.dialect.UniqueViolation == nil {
		return "", false
	}
	constraint, ok := s.dialect.UniqueViolation(err)
	if !ok {
		return "", false
	}
	switch {
	case strings.Contains(constraint, "email"):
		return "email", true
	case strings.Contains(constraint, "username"):
		return "username", true
	case strings.Contains(constraint, "user_id"):
		return "user_id", true
	case strings.Contains(constraint, "key"):
		return "key", true
	}
	return constraint, true
}

// RebindDollar rewrites "?" placeholders to $1, $2, ... in order.
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
