package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/service"
)

// ProfileService is implemented by *service.ProfileService.
type ProfileService interface {
	List(ctx context.Context, actor *model.User) ([]service.ProfileView, error)
	Get(ctx context.Context, actor *model.User, ref string) (*service.ProfileView, error)
	Update(ctx context.Context, actor *model.User, ref string, in service.ProfileUpdateInput) (*service.ProfileView, error)
	PartialUpdate(ctx context.Context, actor *model.User, ref string, in service.ProfileUpdateInput) (*service.ProfileView, error)
	Create(ctx context.Context, actor *model.User) error
	Delete(ctx context.Context, actor *model.User, ref string) error
}

// ProfileHandler serves /api/profiles. {ref} is a numeric id or "me".
type ProfileHandler struct {
	profiles ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	views, err := h.profiles.List(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, views)
}

func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view, err := h.profiles.Get(r.Context(), actor, chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.profiles.Update)
}

func (h *ProfileHandler) HandlePartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.profiles.PartialUpdate)
}

type profileUpdateFunc func(ctx context.Context, actor *model.User, ref string, in service.ProfileUpdateInput) (*service.ProfileView, error)

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, apply profileUpdateFunc) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var in service.ProfileUpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	view, err := apply(r.Context(), actor, chi.URLParam(r, "ref"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleCreate and HandleDelete exist to answer 405 with an explanation.
// The service always refuses, so its error is rendered as is.
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeError(w, r, h.logger, h.profiles.Create(r.Context(), actor))
}

func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeError(w, r, h.logger, h.profiles.Delete(r.Context(), actor, chi.URLParam(r, "ref")))
}
