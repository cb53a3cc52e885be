package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a package, tool or artifact does not exist.
	// Missing top-level package/tool aborts the call; everything else in the
	// taxonomy degrades to a message in the returned Result.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a package whose name is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationError reports a malformed script, missing required input or bad
// type coercion. Recoverable: surfaced as a result-level message.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}
