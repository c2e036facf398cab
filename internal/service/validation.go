package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/accounts-api/internal/apperror"
)

// Field-level messages. Clients match on these strings, so they are fixed.
const (
	msgRequired     = "This field is required."
	msgInvalidEmail = "Enter a valid email address."
	msgInvalidURL   = "Enter a valid URL."
	msgUsername     = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgMaxLength    = "Ensure this field has no more than %s characters."
	msgInvalid      = "Enter a valid value."
)

// usernamePattern allows letters and digits of any script plus . @ + - _
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// newValidator builds the validator shared by all services.
//
// Field names in errors come from the json tag, so the error map keys are
// exactly what the client sent ("confirmPassword", "display_name").
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// Registration on a fresh validator only fails for an empty tag name.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	// optional_url is http_url that also accepts "". omitempty only skips
	// nil pointers, so a *string holding "" would otherwise fail http_url
	// and a stored URL could never be cleared.
	_ = v.RegisterValidation("optional_url", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || v.Var(value, "http_url") == nil
	})

	return v
}

// validateStruct runs the structural pass over input and reports every
// failing field at once as an ErrValidation AppError.
func validateStruct(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("service: validating input: %w", err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return apperror.ValidationFailedFields(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return msgInvalidEmail
	case "http_url", "url", "optional_url":
		return msgInvalidURL
	case "username":
		return msgUsername
	case "max":
		return fmt.Sprintf(msgMaxLength, fe.Param())
	default:
		return msgInvalid
	}
}

// normalizeEmail lowercases the domain part. The local part is left alone:
// mail servers may treat it as case-sensitive.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
