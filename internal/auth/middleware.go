package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
)

// Messages of the 401 responses produced before a key reaches Authenticate.
const (
	MsgNotProvided   = "Authentication credentials were not provided."
	MsgNoCredentials = "Invalid token header. No credentials provided."
	MsgTokenSpaces   = "Invalid token header. Token string should not contain spaces."
)

// contextKey is unexported so no other package can read or shadow the
// values stored under it.
type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a token key to its active user. It returns an
// apperror wrapping ErrUnauthenticated for any key that must be refused.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*model.User, error)
}

// RequireAuth rejects requests without a valid token with 401 and stores
// the authenticated *model.User in the request context otherwise.
//
// HEADER FORMAT:
//
//	Authorization: Token <key>
//	Authorization: Bearer <key>
//
// The scheme is case-insensitive. Any other scheme is treated as no
// credentials at all, so the request gets "not provided" rather than
// "invalid token".
func RequireAuth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, msg := extractKey(r)
			if msg != "" {
				unauthorized(w, r, msg)
				return
			}

			user, err := authn.Authenticate(r.Context(), key)
			if err != nil {
				var appErr *apperror.AppError
				if errors.Is(err, apperror.ErrUnauthenticated) && errors.As(err, &appErr) {
					unauthorized(w, r, appErr.Message)
					return
				}
				logger.Error("authenticating request",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, apperror.InternalResponse())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) when the
// request did not pass through RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// extractKey returns the key, or a non-empty 401 message.
func extractKey(r *http.Request) (key, msg string) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", MsgNotProvided
	}

	parts := strings.Fields(header)
	scheme := strings.ToLower(parts[0])
	if scheme != "token" && scheme != "bearer" {
		return "", MsgNotProvided
	}
	switch len(parts) {
	case 1:
		return "", MsgNoCredentials
	case 2:
		return parts[1], ""
	default:
		return "", MsgTokenSpaces
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Token realm="api"`)
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, apperror.Response{Error: apperror.TypeUnauthorized, Message: msg})
}
