package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
)

type userRepo struct {
	s *Store
}

const userColumns = `id, username, email, password_hash, first_name, last_name,
	is_superuser, is_active, date_joined`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsSuperuser,
		&u.IsActive,
		&u.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	u.DateJoined = u.DateJoined.UTC()
	return &u, nil
}

// Create inserts the user and fills in ID (and DateJoined when unset).
// A duplicate username or email comes back as apperror.Conflict naming the
// field, so callers can turn a lost race into the same validation error a
// pre-check would have produced.
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC().Truncate(time.Microsecond)
	}

	err := r.s.queryRow(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name,
			is_superuser, is_active, date_joined)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsSuperuser,
		user.IsActive,
		user.DateJoined,
	).Scan(&user.ID)
	if err != nil {
		if field, ok := r.s.uniqueField(err); ok {
			return apperror.Conflict("user", field)
		}
		return fmt.Errorf("sqlstore: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, "id", strconv.FormatInt(id, 10),
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email", email,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "username", username,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *userRepo) getOne(ctx context.Context, by, key, query string, arg any) (*model.User, error) {
	u, err := scanUser(r.s.queryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", by+"="+key)
		}
		return nil, fmt.Errorf("sqlstore: getting user by %s: %w", by, err)
	}
	return u, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email)
}

func (r *userRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username)
}

func (r *userRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	var n int64
	if err := r.s.queryRow(ctx, query, arg).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlstore: checking user existence: %w", err)
	}
	return n > 0, nil
}

// List returns every user ordered by id.
func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating users: %w", err)
	}
	return users, nil
}

// UpdateNames writes the only user columns that change after registration.
func (r *userRepo) UpdateNames(ctx context.Context, user *model.User) error {
	res, err := r.s.exec(ctx,
		`UPDATE users SET first_name = ?, last_name = ? WHERE id = ?`,
		user.FirstName, user.LastName, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating user %d: %w", user.ID, err)
	}
	return mustAffect(res, "user", user.ID)
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.s.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting user %d: %w", id, err)
	}
	return mustAffect(res, "user", id)
}

// mustAffect turns "zero rows touched" into NotFound.
func mustAffect(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, strconv.FormatInt(id, 10))
	}
	return nil
}
