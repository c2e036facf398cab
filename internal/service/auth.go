// Package service contains the business rules of the accounts API.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)       → decodes DTOs, renders views, maps errors to status codes
//	Service (this)       → validates input, enforces ownership, orchestrates writes
//	Repository (storage) → reads and writes rows, reports unique violations
//
// Services depend on repository.Store (an interface), never on a concrete
// engine, so every rule here is tested against an in-memory fake.
//
// ERRORS:
// Every failure a client should see is an *apperror.AppError. Anything
// else that escapes a service is unexpected and becomes a 500.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/repository"
)

// Response messages of the account endpoints.
const (
	MsgRegistered = "Account created successfully. Please check your email to verify your account."
	MsgLoggedIn   = "Login successful."

	MsgInvalidToken = "Invalid token."
	MsgUserInactive = "User inactive or deleted."
)

// Password and uniqueness rules, checked in this order.
const (
	msgPasswordMismatch = "Passwords do not match."
	msgPasswordShort    = "Password must be at least 8 characters long."
	msgPasswordUpper    = "Password must contain at least one uppercase letter."
	msgPasswordLower    = "Password must contain at least one lowercase letter."
	msgPasswordDigit    = "Password must contain at least one number."
	msgPasswordLong     = "Password must be at most 72 bytes long."
	msgEmailTaken       = "This email is already registered."
	msgUsernameTaken    = "This username is already taken."
)

// MinPasswordLength counts characters, not bytes.
const MinPasswordLength = 8

// RegisterInput is the body of POST /register.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,max=150,username"`
	Email           string `json:"email" validate:"required,max=254,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// UserSummary is the short identity block returned on registration.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type RegisterResult struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
	Token   string      `json:"token"`
}

// LoginInput is the body of POST /login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SuperuserInput is what the admin CLI collects.
type SuperuserInput struct {
	Username string
	Email    string
	Password string
}

// AuthEvents receives the outcome of every register and login attempt.
// The metrics package implements it; nil disables reporting.
type AuthEvents interface {
	RecordAuth(operation, outcome string)
}

// Outcomes reported to AuthEvents.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type nopEvents struct{}

func (nopEvents) RecordAuth(string, string) {}

// AuthService registers accounts, checks credentials and resolves tokens.
//
// DEPENDENCIES (injected via NewAuthService):
//   - store      repository.Store       → users, profiles, tokens, transactions
//   - passwords  *auth.PasswordService  → bcrypt
//   - tokens     *auth.TokenService     → mints and verifies token keys
//   - events     AuthEvents             → outcome counters
type AuthService struct {
	store     repository.Store
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	events    AuthEvents
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewAuthService(
	store repository.Store,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	events AuthEvents,
	logger *slog.Logger,
) *AuthService {
	if events == nil {
		events = nopEvents{}
	}
	return &AuthService{
		store:     store,
		passwords: passwords,
		tokens:    tokens,
		events:    events,
		validate:  newValidator(),
		logger:    logger,
	}
}

// Register creates an account, its profile and its token.
//
// VALIDATION RUNS IN TWO STAGES:
//  1. Structural checks on every field (required, format, length). All
//     failures are reported together.
//  2. Password and uniqueness rules in a fixed order. The first failure
//     is the only one reported.
//
// The user and the profile are written in one transaction: a user without
// a profile is never visible. The token is issued afterwards through the
// same get-or-create path login uses.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	user, err := s.createAccount(ctx, in, false)
	if err != nil {
		s.events.RecordAuth("register", outcomeOf(err))
		return nil, err
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		s.events.RecordAuth("register", OutcomeError)
		return nil, err
	}

	s.events.RecordAuth("register", OutcomeSuccess)
	s.logger.Info("account registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return &RegisterResult{
		Message: MsgRegistered,
		User:    UserSummary{ID: user.ID, Username: user.Username, Email: user.Email},
		Token:   token.Key,
	}, nil
}

// CreateSuperuser is the admin path: same checks and same atomic
// user+profile creation as Register, with the superuser flag set. No token
// is issued; the admin logs in like anyone else.
func (s *AuthService) CreateSuperuser(ctx context.Context, in SuperuserInput) (*model.User, error) {
	user, err := s.createAccount(ctx, RegisterInput{
		Username:        in.Username,
		Email:           in.Email,
		Password:        in.Password,
		ConfirmPassword: in.Password,
	}, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("superuser created",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func (s *AuthService) createAccount(ctx context.Context, in RegisterInput, superuser bool) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	if err := s.validateRegistration(in); err != nil {
		return nil, err
	}

	taken, err := s.store.Users().ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}
	if taken {
		return nil, apperror.ValidationFailed("email", msgEmailTaken)
	}

	taken, err = s.store.Users().ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	}
	if taken {
		return nil, apperror.ValidationFailed("username", msgUsernameTaken)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", msgPasswordLong)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsSuperuser:  superuser,
		IsActive:     true,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Profiles().Create(ctx, model.NewProfileFor(user))
	})
	if err != nil {
		// Two registrations raced past the existence checks; the loser gets
		// the same answer the checks would have given it.
		var appErr *apperror.AppError
		if errors.Is(err, apperror.ErrConflict) && errors.As(err, &appErr) {
			switch appErr.Field {
			case "email":
				return nil, apperror.ValidationFailed("email", msgEmailTaken)
			case "username":
				return nil, apperror.ValidationFailed("username", msgUsernameTaken)
			}
		}
		return nil, fmt.Errorf("service/auth: creating account %q: %w", user.Username, err)
	}

	return user, nil
}

// validateRegistration runs the structural pass and the password rules.
//
// Errors are collected per field. When both password fields passed the
// structural pass, the password rules run even if other fields failed,
// and their error is added under "password". A mismatch is therefore
// reported whatever else is wrong with the input.
func (s *AuthService) validateRegistration(in RegisterInput) error {
	err := validateStruct(s.validate, in)
	if err == nil {
		return checkPassword(in.Password, in.ConfirmPassword)
	}

	var structural *apperror.AppError
	if !errors.As(err, &structural) {
		return err
	}
	if _, bad := structural.Fields["password"]; bad {
		return err
	}
	if _, bad := structural.Fields["confirmPassword"]; bad {
		return err
	}

	var rule *apperror.AppError
	if !errors.As(checkPassword(in.Password, in.ConfirmPassword), &rule) {
		return err
	}
	fields := make(map[string][]string, len(structural.Fields)+1)
	for f, msgs := range structural.Fields {
		fields[f] = msgs
	}
	fields["password"] = rule.Fields["password"]
	return apperror.ValidationFailedFields(fields)
}

// checkPassword applies the ordered password rules.
func checkPassword(password, confirm string) error {
	if password != confirm {
		return apperror.ValidationFailed("password", msgPasswordMismatch)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.ValidationFailed("password", msgPasswordShort)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return apperror.ValidationFailed("password", msgPasswordUpper)
	case !lower:
		return apperror.ValidationFailed("password", msgPasswordLower)
	case !digit:
		return apperror.ValidationFailed("password", msgPasswordDigit)
	}

	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", msgPasswordLong)
	}
	return nil
}

// Login exchanges email and password for the user's token.
//
// Every credential failure (unknown email, wrong password, deactivated
// account) produces the same "Invalid credentials." error. An unknown
// email still pays for one bcrypt comparison so that the response time
// does not reveal whether the account exists.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		s.events.RecordAuth("login", OutcomeRejected)
		return nil, err
	}

	user, err := s.checkCredentials(ctx, in)
	if err != nil {
		s.events.RecordAuth("login", outcomeOf(err))
		return nil, err
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		s.events.RecordAuth("login", OutcomeError)
		return nil, err
	}

	s.events.RecordAuth("login", OutcomeSuccess)
	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return &LoginResult{
		Message:  MsgLoggedIn,
		Token:    token.Key,
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

func (s *AuthService) checkCredentials(ctx context.Context, in LoginInput) (*model.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.DummyVerify(in.Password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unusable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	if !user.IsActive {
		return nil, apperror.InvalidCredentials()
	}
	return user, nil
}

// issueToken returns the user's token, creating it on first use.
func (s *AuthService) issueToken(ctx context.Context, userID int64) (*model.Token, error) {
	key, err := s.tokens.NewKey(userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	token, err := s.store.Tokens().GetOrCreate(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", userID, err)
	}
	return token, nil
}

// Authenticate resolves a token key to its user. It implements
// auth.Authenticator.
//
// A key is accepted only if its signature verifies, it is the key stored
// for the user it names, and that user is still active.
func (s *AuthService) Authenticate(ctx context.Context, key string) (*model.User, error) {
	subject, err := s.tokens.Verify(key)
	if err != nil {
		return nil, apperror.Unauthenticated(MsgInvalidToken)
	}

	token, err := s.store.Tokens().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(MsgInvalidToken)
		}
		return nil, fmt.Errorf("service/auth: looking up token: %w", err)
	}
	if token.UserID != subject {
		return nil, apperror.Unauthenticated(MsgInvalidToken)
	}

	user, err := s.store.Users().GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(MsgUserInactive)
		}
		return nil, fmt.Errorf("service/auth: loading token owner: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.Unauthenticated(MsgUserInactive)
	}
	return user, nil
}

// compile-time check that *AuthService satisfies the middleware contract
var _ auth.Authenticator = (*AuthService)(nil)

func outcomeOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return OutcomeRejected
	}
	return OutcomeError
}
