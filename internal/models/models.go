// Package models contains the wire models of the UE profile API that are
// not profile documents: error bodies and list query parameters.
package models

// Error kinds carried in ErrorResponse.Error.
const (
	ErrorBadRequest   = "BadRequest"
	ErrorValidation   = "ValidationError"
	ErrorNotFound     = "NotFound"
	ErrorConflict     = "Conflict"
	ErrorUnauthorized = "Unauthorized"
	ErrorInternal     = "InternalError"
	ErrorUnavailable  = "ServiceUnavailable"
	ErrorTooLarge     = "PayloadTooLarge"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
