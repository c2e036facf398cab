package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/service"
)

var (
	alice = &model.User{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true}
	admin = &model.User{ID: 3, Username: "admin", Email: "admin@example.com", IsActive: true, IsSuperuser: true}
)

func newUserRouter(users UserService, actor *model.User) http.Handler {
	h := NewUserHandler(users, newNoopLogger())
	r := chi.NewRouter()
	if actor != nil {
		r.Use(asUser(actor))
	}
	r.Get("/users", h.HandleList)
	r.Post("/users", h.HandleCreate)
	r.Get("/users/{id}", h.HandleGet)
	r.Put("/users/{id}", h.HandleUpdate)
	r.Patch("/users/{id}", h.HandlePartialUpdate)
	r.Delete("/users/{id}", h.HandleDelete)
	return r
}

func TestUserHandler_List(t *testing.T) {
	users := new(UserServiceMock)
	users.On("List", mock.Anything, admin).Return([]service.UserView{
		{ID: 1, Username: "alice", DateJoined: time.Now()},
		{ID: 3, Username: "admin", DateJoined: time.Now()},
	}, nil).Once()

	rr := do(t, newUserRouter(users, admin), http.MethodGet, "/users", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var got []service.UserView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Len(t, got, 2)
	users.AssertExpectations(t)
}

func TestUserHandler_Get(t *testing.T) {
	tests := []struct {
		name       string
		mockView   *service.UserView
		mockError  error
		wantStatus int
	}{
		{"own record", &service.UserView{ID: 1, Username: "alice"}, nil, http.StatusOK},
		{"someone else's", nil, apperror.Forbidden(service.MsgUserAccessForbidden), http.StatusForbidden},
		{"missing", nil, apperror.NotFound("user", "1"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserServiceMock)
			users.On("Get", mock.Anything, alice, "1").Return(tt.mockView, tt.mockError).Once()

			rr := do(t, newUserRouter(users, alice), http.MethodGet, "/users/1", nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			users.AssertExpectations(t)
		})
	}
}

func TestUserHandler_UpdatePassesOnlyProvidedFields(t *testing.T) {
	first := "Alicia"
	want := service.UserUpdateInput{FirstName: &first}

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			users := new(UserServiceMock)
			call := "Update"
			if method == http.MethodPatch {
				call = "PartialUpdate"
			}
			users.On(call, mock.Anything, alice, "1", want).
				Return(&service.UserView{ID: 1, Username: "alice", FirstName: first}, nil).Once()

			rr := do(t, newUserRouter(users, alice), method, "/users/1", `{"first_name":"Alicia"}`)

			require.Equal(t, http.StatusOK, rr.Code)
			var got service.UserView
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, "Alicia", got.FirstName)
			users.AssertExpectations(t)
		})
	}
}

func TestUserHandler_Delete(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		users := new(UserServiceMock)
		users.On("Delete", mock.Anything, alice, "1").Return(nil).Once()

		rr := do(t, newUserRouter(users, alice), http.MethodDelete, "/users/1", nil)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("forbidden", func(t *testing.T) {
		users := new(UserServiceMock)
		users.On("Delete", mock.Anything, alice, "2").
			Return(apperror.Forbidden(service.MsgUserDeleteForbidden)).Once()

		rr := do(t, newUserRouter(users, alice), http.MethodDelete, "/users/2", nil)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, service.MsgUserDeleteForbidden, decodeError(t, rr).Message)
	})
}

func TestUserHandler_Create(t *testing.T) {
	users := new(UserServiceMock)
	users.On("Create", mock.Anything, alice).
		Return(apperror.MethodNotAllowed(service.MsgUserCreate)).Once()

	rr := do(t, newUserRouter(users, alice), http.MethodPost, "/users", `{"username":"x"}`)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, service.MsgUserCreate, decodeError(t, rr).Message)
}

func TestUserHandler_NoActor(t *testing.T) {
	users := new(UserServiceMock)

	rr := do(t, newUserRouter(users, nil), http.MethodGet, "/users", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	users.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestUserHandler_CreateWithoutActor(t *testing.T) {
	users := new(UserServiceMock)

	rr := do(t, newUserRouter(users, nil), http.MethodPost, "/users", `{"username":"x"}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
