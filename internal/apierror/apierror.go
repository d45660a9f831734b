// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package so storage errors and
// other internals never reach the response body.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// Internal is the body sent for any unexpected server fault.
func Internal() *APIError {
	return &APIError{Detail: "internal server error"}
}
