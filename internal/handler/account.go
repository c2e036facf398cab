// Package handler translates HTTP requests into service calls.
//
// A handler does four things and nothing else:
//  1. decode the request into an input DTO
//  2. pick the caller out of the request context
//  3. call one service method
//  4. render the view, or the error via writeError
//
// Handlers depend on small interfaces declared next to them rather than on
// the concrete services, which keeps handler tests free of storage.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/accounts-api/internal/service"
)

// AccountService is what AccountHandler needs from service.AuthService.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
}

// AccountHandler serves the unauthenticated account endpoints.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/accounts/register
// 201 with {message, user{id, username, email}, token}; 400 with field errors.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

// HandleLogin exchanges email and password for the account's token.
//
// HTTP: POST /api/accounts/login
// 200 with {message, token, user_id, username, email}; 400 "Invalid credentials."
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
