// Package repository declares the storage contracts the service layer
// depends on. Concrete engines live in the sqlite and postgres
// subpackages; services never import them.
//
// TRANSACTIONS:
// Some operations touch more than one table and must be all-or-nothing
// (a user is never visible without its profile; deleting a user takes its
// profile and token with it). Store.WithinTx hands the callback a Store
// whose repositories all run inside one transaction, so the service spells
// out exactly which writes belong together.
package repository

import (
	"context"

	"github.com/sakif/accounts-api/internal/model"
)

// UserRepository reads and writes user records.
//
// Create returns an *apperror.AppError wrapping ErrConflict (Field "email"
// or "username") when a unique constraint rejects the insert. Lookups
// return ErrNotFound when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateNames(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

// ProfileRepository reads and writes profiles. Reads return the profile
// joined with its owner's identity fields.
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id int64) (*model.ProfileWithUser, error)
	GetByUserID(ctx context.Context, userID int64) (*model.ProfileWithUser, error)
	List(ctx context.Context) ([]model.ProfileWithUser, error)
	Update(ctx context.Context, profile *model.Profile) error
	DeleteByUserID(ctx context.Context, userID int64) error
}

// TokenRepository stores one bearer token per user.
type TokenRepository interface {
	// GetOrCreate inserts candidateKey for the user unless a token already
	// exists, and returns whichever token is stored afterwards. Concurrent
	// callers for the same user all observe the same key.
	GetOrCreate(ctx context.Context, userID int64, candidateKey string) (*model.Token, error)
	GetByKey(ctx context.Context, key string) (*model.Token, error)
	DeleteByUserID(ctx context.Context, userID int64) error
}

// Store bundles the repositories of one storage engine.
type Store interface {
	Users() UserRepository
	Profiles() ProfileRepository
	Tokens() TokenRepository

	// WithinTx runs fn inside a transaction. fn must use the Store it is
	// given, not the outer one. A non-nil error from fn rolls back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
}
