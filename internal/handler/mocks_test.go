package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/service"
)

type AccountServiceMock struct {
	mock.Mock
}

func (m *AccountServiceMock) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*service.RegisterResult)
	return res, args.Error(1)
}

func (m *AccountServiceMock) Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*service.LoginResult)
	return res, args.Error(1)
}

type UserServiceMock struct {
	mock.Mock
}

func (m *UserServiceMock) List(ctx context.Context, actor *model.User) ([]service.UserView, error) {
	args := m.Called(ctx, actor)
	views, _ := args.Get(0).([]service.UserView)
	return views, args.Error(1)
}

func (m *UserServiceMock) Get(ctx context.Context, actor *model.User, ref string) (*service.UserView, error) {
	args := m.Called(ctx, actor, ref)
	view, _ := args.Get(0).(*service.UserView)
	return view, args.Error(1)
}

func (m *UserServiceMock) Update(ctx context.Context, actor *model.User, ref string, in service.UserUpdateInput) (*service.UserView, error) {
	args := m.Called(ctx, actor, ref, in)
	view, _ := args.Get(0).(*service.UserView)
	return view, args.Error(1)
}

func (m *UserServiceMock) PartialUpdate(ctx context.Context, actor *model.User, ref string, in service.UserUpdateInput) (*service.UserView, error) {
	args := m.Called(ctx, actor, ref, in)
	view, _ := args.Get(0).(*service.UserView)
	return view, args.Error(1)
}

func (m *UserServiceMock) Delete(ctx context.Context, actor *model.User, ref string) error {
	return m.Called(ctx, actor, ref).Error(0)
}

func (m *UserServiceMock) Create(ctx context.Context, actor *model.User) error {
	return m.Called(ctx, actor).Error(0)
}

type ProfileServiceMock struct {
	mock.Mock
}

func (m *ProfileServiceMock) List(ctx context.Context, actor *model.User) ([]service.ProfileView, error) {
	args := m.Called(ctx, actor)
	views, _ := args.Get(0).([]service.ProfileView)
	return views, args.Error(1)
}

func (m *ProfileServiceMock) Get(ctx context.Context, actor *model.User, ref string) (*service.ProfileView, error) {
	args := m.Called(ctx, actor, ref)
	view, _ := args.Get(0).(*service.ProfileView)
	return view, args.Error(1)
}

func (m *ProfileServiceMock) Update(ctx context.Context, actor *model.User, ref string, in service.ProfileUpdateInput) (*service.ProfileView, error) {
	args := m.Called(ctx, actor, ref, in)
	view, _ := args.Get(0).(*service.ProfileView)
	return view, args.Error(1)
}

func (m *ProfileServiceMock) PartialUpdate(ctx context.Context, actor *model.User, ref string, in service.ProfileUpdateInput) (*service.ProfileView, error) {
	args := m.Called(ctx, actor, ref, in)
	view, _ := args.Get(0).(*service.ProfileView)
	return view, args.Error(1)
}

func (m *ProfileServiceMock) Create(ctx context.Context, actor *model.User) error {
	return m.Called(ctx, actor).Error(0)
}

func (m *ProfileServiceMock) Delete(ctx context.Context, actor *model.User, ref string) error {
	return m.Called(ctx, actor, ref).Error(0)
}

// compile-time checks that the real services fit the handler interfaces
var (
	_ AccountService = (*service.AuthService)(nil)
	_ UserService    = (*service.UserService)(nil)
	_ ProfileService = (*service.ProfileService)(nil)
)

// =========================================================================
// HELPERS
// =========================================================================

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// asUser stands in for auth.RequireAuth in handler tests.
func asUser(u *model.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

// do sends body (marshalled unless it is already a string) and returns the
// recorder.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}
