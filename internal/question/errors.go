package question

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the request resolved to nothing: an empty page,
	// search, category or quiz pool.
	ErrNotFound = errors.New("resource not found")
	// ErrUnprocessable means the request was well formed but the store could not apply it.
	ErrUnprocessable = errors.New("unprocessable request")
)

// ValidationError reports a request that failed schema checks before reaching the store.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func newValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
