// Package apperror defines the application's error taxonomy.
//
// Every error a service returns to a handler is either one of the *AppError
// values built here or an unexpected failure (storage down, bug). Handlers
// map the sentinel wrapped inside an AppError to a status code and show its
// Message to the client; anything else becomes a generic 500.
//
// SENTINEL + STRUCT:
// The sentinel (ErrNotFound, ErrValidation, ...) answers "what kind of
// failure is this?" via errors.Is. The struct carries the human-readable
// message and, for validation failures, which input field caused it.
package apperror

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMethodNotAllowed   = errors.New("method not allowed")
)

// InvalidCredentialsMessage is the only text a failed login ever produces.
// Unknown email and wrong password must be indistinguishable.
const InvalidCredentialsMessage = "Invalid credentials."

type AppError struct {
	Err     error               // sentinel, used by errors.Is
	Message string              // Human-readable error message
	Field   string              // Optional: field causing the error
	Fields  map[string][]string // Optional: every failing field and its messages

	Resource string // Optional: what was looked up, for logs only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound never echoes the looked-up key back to the client; Resource keeps
// it around for log lines.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:      ErrNotFound,
		Message:  "Not found.",
		Resource: fmt.Sprintf("%s %s", resource, id),
	}
}

// ValidationFailed reports a single failing field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string][]string{field: {message}},
	}
}

// ValidationFailedFields reports several failing fields at once. Message is
// the first message of the alphabetically first field so that callers which
// only look at Message still get something stable.
func ValidationFailedFields(fields map[string][]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e := &AppError{Err: ErrValidation, Fields: fields}
	if len(keys) > 0 && len(fields[keys[0]]) > 0 {
		e.Field = keys[0]
		e.Message = fields[keys[0]][0]
	} else {
		e.Message = "Invalid input."
	}
	return e
}

// Conflict is returned by repositories when a unique constraint rejects a
// write. Field names the violated column (e.g. "email").
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means the request carried no usable credentials (401).
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// InvalidCredentials is the login failure. It deliberately takes no
// arguments: the message never varies.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: InvalidCredentialsMessage,
	}
}

// MethodNotAllowed marks operations that exist only to be refused.
func MethodNotAllowed(message string) *AppError {
	return &AppError{
		Err:     ErrMethodNotAllowed,
		Message: message,
	}
}
