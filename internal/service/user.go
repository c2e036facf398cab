package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/repository"
)

const (
	MsgUserAccessForbidden = "You do not have permission to access this user's data."
	MsgUserUpdateForbidden = "You do not have permission to update this user."
	MsgUserDeleteForbidden = "You do not have permission to delete this user."
	MsgUserCreate          = "User creation is handled by the /register/ endpoint."
)

// UserView is what the user endpoints return. The password hash and the
// account flags never leave the server.
type UserView struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

func newUserView(u *model.User) UserView {
	return UserView{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		DateJoined: u.DateJoined,
	}
}

// UserUpdateInput carries the two mutable user fields. id, username, email
// and date_joined have no slot and cannot be changed.
type UserUpdateInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

type UserService struct {
	store    repository.Store
	validate *validator.Validate
	logger   *slog.Logger
}

func NewUserService(store repository.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:    store,
		validate: newValidator(),
		logger:   logger,
	}
}

// List returns all users to a superuser and just the caller otherwise.
func (s *UserService) List(ctx context.Context, actor *model.User) ([]UserView, error) {
	if !actor.IsSuperuser {
		self, err := s.store.Users().GetByID(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("service/user: loading self: %w", err)
		}
		return []UserView{newUserView(self)}, nil
	}

	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing: %w", err)
	}
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	return views, nil
}

// Get answers 404 for an unknown id before it answers 403 for someone
// else's.
func (s *UserService) Get(ctx context.Context, actor *model.User, ref string) (*UserView, error) {
	u, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccess(actor, u.ID) {
		return nil, apperror.Forbidden(MsgUserAccessForbidden)
	}
	view := newUserView(u)
	return &view, nil
}

// Update is PUT. first_name and last_name are both optional, so it applies
// exactly like PartialUpdate.
func (s *UserService) Update(ctx context.Context, actor *model.User, ref string, in UserUpdateInput) (*UserView, error) {
	return s.update(ctx, actor, ref, in)
}

// PartialUpdate is PATCH.
func (s *UserService) PartialUpdate(ctx context.Context, actor *model.User, ref string, in UserUpdateInput) (*UserView, error) {
	return s.update(ctx, actor, ref, in)
}

func (s *UserService) update(ctx context.Context, actor *model.User, ref string, in UserUpdateInput) (*UserView, error) {
	u, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccess(actor, u.ID) {
		return nil, apperror.Forbidden(MsgUserUpdateForbidden)
	}
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if err := s.store.Users().UpdateNames(ctx, u); err != nil {
		return nil, fmt.Errorf("service/user: updating %d: %w", u.ID, err)
	}

	view := newUserView(u)
	return &view, nil
}

// Delete removes the user with its profile and token in one transaction.
func (s *UserService) Delete(ctx context.Context, actor *model.User, ref string) error {
	u, err := s.load(ctx, ref)
	if err != nil {
		return err
	}
	if !auth.CanAccess(actor, u.ID) {
		return apperror.Forbidden(MsgUserDeleteForbidden)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Tokens().DeleteByUserID(ctx, u.ID); err != nil {
			return err
		}
		if err := tx.Profiles().DeleteByUserID(ctx, u.ID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, u.ID)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/user: deleting %d: %w", u.ID, err)
	}

	s.logger.Info("user deleted",
		slog.Int64("userID", u.ID),
		slog.Int64("actorID", actor.ID),
	)
	return nil
}

// Create always refuses; accounts come from registration.
func (s *UserService) Create(context.Context, *model.User) error {
	return apperror.MethodNotAllowed(MsgUserCreate)
}

func (s *UserService) load(ctx context.Context, ref string) (*model.User, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperror.NotFound("user", ref)
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/user: loading %d: %w", id, err)
	}
	return u, nil
}
