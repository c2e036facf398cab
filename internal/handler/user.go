package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/service"
)

// UserService is implemented by *service.UserService.
type UserService interface {
	List(ctx context.Context, actor *model.User) ([]service.UserView, error)
	Get(ctx context.Context, actor *model.User, ref string) (*service.UserView, error)
	Update(ctx context.Context, actor *model.User, ref string, in service.UserUpdateInput) (*service.UserView, error)
	PartialUpdate(ctx context.Context, actor *model.User, ref string, in service.UserUpdateInput) (*service.UserView, error)
	Delete(ctx context.Context, actor *model.User, ref string) error
	Create(ctx context.Context, actor *model.User) error
}

// UserHandler serves /api/accounts/users. Every route needs a token.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList: GET /api/accounts/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	views, err := h.users.List(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, views)
}

// HandleCreate: POST /api/accounts/users. The service always refuses, so
// this only ever renders its 405.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeError(w, r, h.logger, h.users.Create(r.Context(), actor))
}

// HandleGet: GET /api/accounts/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view, err := h.users.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleUpdate: PUT /api/accounts/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.users.Update)
}

// HandlePartialUpdate: PATCH /api/accounts/users/{id}
func (h *UserHandler) HandlePartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.users.PartialUpdate)
}

type userUpdateFunc func(ctx context.Context, actor *model.User, ref string, in service.UserUpdateInput) (*service.UserView, error)

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, apply userUpdateFunc) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var in service.UserUpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view, err := apply(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleDelete: DELETE /api/accounts/users/{id}, 204 on success.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.users.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
