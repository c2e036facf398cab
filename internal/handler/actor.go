package handler

import (
	"net/http"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/model"
)

// actorFrom returns the authenticated caller. Routes using it must sit
// behind auth.RequireAuth; reaching here without a user is a wiring bug,
// answered with 401 rather than a panic.
func actorFrom(r *http.Request) (*model.User, error) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthenticated(auth.MsgNotProvided)
	}
	return u, nil
}
