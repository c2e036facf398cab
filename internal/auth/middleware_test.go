package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
)

// stubAuthenticator knows exactly one key.
type stubAuthenticator struct {
	key  string
	user *model.User
	err  error
}

func (s *stubAuthenticator) Authenticate(_ context.Context, key string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if key != s.key {
		return nil, apperror.Unauthenticated("Invalid token.")
	}
	return s.user, nil
}

func newAuthTestServer(authn Authenticator) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return RequireAuth(authn, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			http.Error(w, "no user in context", http.StatusTeapot)
			return
		}
		_, _ = io.WriteString(w, u.Username)
	}))
}

func TestRequireAuth(t *testing.T) {
	alice := &model.User{ID: 1, Username: "alice"}
	srv := newAuthTestServer(&stubAuthenticator{key: "good", user: alice})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string // username on success, message on failure
	}{
		{"Token scheme", "Token good", http.StatusOK, "alice"},
		{"Bearer scheme", "Bearer good", http.StatusOK, "alice"},
		{"scheme is case-insensitive", "token good", http.StatusOK, "alice"},
		{"no header", "", http.StatusUnauthorized, MsgNotProvided},
		{"other scheme", "Basic YWxpY2U6cHc=", http.StatusUnauthorized, MsgNotProvided},
		{"scheme only", "Token", http.StatusUnauthorized, MsgNoCredentials},
		{"key with spaces", "Token go od", http.StatusUnauthorized, MsgTokenSpaces},
		{"unknown key", "Token bad", http.StatusUnauthorized, "Invalid token."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			srv.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rr.Body.String())
				return
			}

			var body apperror.Response
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, "unauthorized", body.Error)
			assert.Equal(t, tt.wantBody, body.Message)
			assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestRequireAuth_InactiveUserMessage(t *testing.T) {
	srv := newAuthTestServer(&stubAuthenticator{err: apperror.Unauthenticated("User inactive or deleted.")})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token whatever")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "User inactive or deleted.")
}

func TestRequireAuth_StorageFailureIs500(t *testing.T) {
	srv := newAuthTestServer(&stubAuthenticator{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token whatever")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")

	var body apperror.Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, apperror.InternalResponse(), body)
}

func TestUserFromContext_Empty(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext() on a bare context should report false")
	}
}
