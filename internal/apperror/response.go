package apperror

// Response is the JSON body of every non-2xx response:
//
//	{"error": "not_found", "message": "Not found."}
//
// with an extra "fields" map for validation failures. It lives here so the
// auth middleware and the handlers write exactly one shape.
type Response struct {
	Error   string              `json:"error"`            // machine-readable type, e.g. "forbidden"
	Message string              `json:"message"`          // human-readable text
	Fields  map[string][]string `json:"fields,omitempty"` // validation errors per input field
}

// Values of Response.Error.
const (
	TypeValidation         = "validation_error"
	TypeInvalidCredentials = "invalid_credentials"
	TypeUnauthorized       = "unauthorized"
	TypeForbidden          = "forbidden"
	TypeNotFound           = "not_found"
	TypeMethodNotAllowed   = "method_not_allowed"
	TypeConflict           = "conflict"
	TypeInternal           = "internal_error"
)

// InternalMessage is all a client learns about an unexpected failure.
const InternalMessage = "An internal error occurred."

// InternalResponse is the body of every 500.
func InternalResponse() Response {
	return Response{Error: TypeInternal, Message: InternalMessage}
}
