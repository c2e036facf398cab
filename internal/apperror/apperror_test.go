package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case is one struct in the slice; the assertion loop is written once.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("profile", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("password", "Passwords do not match."),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "ValidationFailedFields wraps ErrValidation",
			err:       ValidationFailedFields(map[string][]string{"email": {"This field is required."}}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "email"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("You do not have permission to edit this profile."),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("Invalid token."),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "InvalidCredentials wraps ErrInvalidCredentials",
			err:       InvalidCredentials(),
			target:    ErrInvalidCredentials,
			wantMatch: true,
		},
		{
			name:      "MethodNotAllowed wraps ErrMethodNotAllowed",
			err:       MethodNotAllowed("nope"),
			target:    ErrMethodNotAllowed,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "1"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("service/profile: %w", Forbidden("x")),
			target:    ErrForbidden,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound hides the looked-up key",
			err:         NotFound("profile", "abc123"),
			wantMessage: "Not found.",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("password", "Password must contain at least one number."),
			wantMessage: "Password must contain at least one number.",
		},
		{
			name:        "Conflict names the column",
			err:         Conflict("user", "username"),
			wantMessage: "user with this username already exists",
		},
		{
			name:        "InvalidCredentials is fixed",
			err:         InvalidCredentials(),
			wantMessage: "Invalid credentials.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("user", "7")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
	if err.Resource != "user 7" {
		t.Errorf("Resource = %q, want %q", err.Resource, "user 7")
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "This email is already registered.")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if got := err.Fields["email"]; len(got) != 1 || got[0] != "This email is already registered." {
		t.Errorf("Fields[email] = %v", got)
	}
}

func TestValidationFailedFields_PicksFirstFieldAlphabetically(t *testing.T) {
	err := ValidationFailedFields(map[string][]string{
		"username": {"This field is required."},
		"email":    {"Enter a valid email address."},
	})

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if err.Message != "Enter a valid email address." {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(err.Fields))
	}
}

func TestValidationFailedFields_Empty(t *testing.T) {
	err := ValidationFailedFields(map[string][]string{})
	if err.Message == "" {
		t.Error("Message should never be empty")
	}
}
