package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every response
// body has one of two shapes: the view the service returned, or
//
//	{"error": "not_found", "message": "Not found."}
//
// with an extra "fields" map for validation failures:
//
//	{"error": "validation_error", "message": "...",
//	 "fields": {"password": ["Passwords do not match."]}}

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sakif/accounts-api/internal/apperror"
)

// ErrorResponse is the body of every non-2xx response. The auth middleware
// writes the same type.
type ErrorResponse = apperror.Response

const msgMalformedBody = "Malformed JSON request body."

// writeJSON renders data with the given status. render.Status must be set
// before render.JSON writes the header.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// writeError maps an error to its status code and body.
//
// The service layer only speaks in apperror sentinels; this is the one
// place they become HTTP. errors.Is walks the whole wrap chain, so
// fmt.Errorf("...: %w", appErr) from deeper layers still maps correctly.
// Anything that is not an *apperror.AppError is a 500 whose cause is
// logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeJSON(w, r, http.StatusInternalServerError, apperror.InternalResponse())
		return
	}

	status, errorType := statusOf(err)
	resp := ErrorResponse{Error: errorType, Message: appErr.Message}
	if status == http.StatusBadRequest && len(appErr.Fields) > 0 {
		resp.Fields = appErr.Fields
	}
	writeJSON(w, r, status, resp)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, apperror.TypeValidation
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusBadRequest, apperror.TypeInvalidCredentials
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, apperror.TypeUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, apperror.TypeForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, apperror.TypeNotFound
	case errors.Is(err, apperror.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, apperror.TypeMethodNotAllowed
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, apperror.TypeConflict
	}
	return http.StatusInternalServerError, apperror.TypeInternal
}

// decodeJSON reads the request body into dst. An empty body decodes as an
// empty object, so the service reports missing fields instead of a parse
// error. Unknown fields are ignored.
func decodeJSON(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.ValidationFailed("non_field_errors", msgMalformedBody)
	}
	return nil
}

// NotFound and MethodNotAllowed replace chi's plain-text defaults.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, ErrorResponse{Error: apperror.TypeNotFound, Message: "Not found."})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   apperror.TypeMethodNotAllowed,
		Message: `Method "` + r.Method + `" not allowed.`,
	})
}
