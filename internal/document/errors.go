package document

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by path traversal.
var (
	// ErrPathNotFound is returned when a path cannot be resolved and the
	// traversal policy does not allow creating the missing node.
	ErrPathNotFound = errors.New("path not found")

	// ErrNotAnArray is returned when an index segment or an array
	// operation targets a node that is not an array.
	ErrNotAnArray = errors.New("not an array")

	// ErrIndexOutOfRange is returned when an array position is outside the
	// array bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrUnsupportedValue is returned when decoding input that has no
	// document representation, such as null or fractional numbers.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// PathError records the path at which a traversal failed.
type PathError struct {
	Path Path
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *PathError) Unwrap() error {
	return e.Err
}

func pathErr(p Path, err error) error {
	return &PathError{Path: NewPath(p...), Err: err}
}
