package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
)

type tokenRepo struct {
	s *Store
}

// GetOrCreate is race-safe without locks: the insert is a no-op when the
// user already holds a token (UNIQUE user_id), and the follow-up read
// returns whatever won.
func (r *tokenRepo) GetOrCreate(ctx context.Context, userID int64, candidateKey string) (*model.Token, error) {
	_, err := r.s.exec(ctx,
		`INSERT INTO tokens ("key", user_id, created) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		candidateKey, userID, time.Now().UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: inserting token for user %d: %w", userID, err)
	}

	var t model.Token
	err = r.s.queryRow(ctx,
		`SELECT "key", user_id, created FROM tokens WHERE user_id = ?`, userID,
	).Scan(&t.Key, &t.UserID, &t.Created)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: reading token for user %d: %w", userID, err)
	}
	t.Created = t.Created.UTC()
	return &t, nil
}

func (r *tokenRepo) GetByKey(ctx context.Context, key string) (*model.Token, error) {
	var t model.Token
	err := r.s.queryRow(ctx,
		`SELECT "key", user_id, created FROM tokens WHERE "key" = ?`, key,
	).Scan(&t.Key, &t.UserID, &t.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("token", "<redacted>")
		}
		return nil, fmt.Errorf("sqlstore: getting token: %w", err)
	}
	t.Created = t.Created.UTC()
	return &t, nil
}

func (r *tokenRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.s.exec(ctx, `DELETE FROM tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlstore: deleting token of user %d: %w", userID, err)
	}
	return nil
}
