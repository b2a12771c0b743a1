package editor

import (
	"errors"
	"strings"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// Traversal errors are re-exported so callers need only this package.
var (
	ErrPathNotFound    = document.ErrPathNotFound
	ErrNotAnArray      = document.ErrNotAnArray
	ErrIndexOutOfRange = document.ErrIndexOutOfRange
)

// Sentinel errors for editor operations.
var (
	// ErrRejected is returned when an operation would break a structural
	// invariant. The document is left unchanged.
	ErrRejected = errors.New("operation rejected")

	// ErrMissingRequiredField is returned by validation when a required
	// field is absent or empty.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidField is returned by validation when a field holds a value
	// the shape does not accept.
	ErrInvalidField = errors.New("invalid field")

	// ErrImmutableField is returned when writing a write-once field in
	// edit mode.
	ErrImmutableField = errors.New("field is immutable")

	// ErrKindMismatch is returned when a write would change the kind of
	// an existing field.
	ErrKindMismatch = errors.New("value kind mismatch")

	// ErrUnknownField is returned when an inserted element carries a
	// member its template does not define.
	ErrUnknownField = errors.New("unknown field")

	// ErrNotAnObject is returned when initializing from a non-object root.
	ErrNotAnObject = errors.New("document root must be an object")
)

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Missing []string
	Invalid []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required field(s): "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid field(s): "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Is matches ErrMissingRequiredField and ErrInvalidField.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrMissingRequiredField:
		return len(e.Missing) > 0
	case ErrInvalidField:
		return len(e.Invalid) > 0
	default:
		return false
	}
}
