package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when a user reference is unknown to the store.
	ErrUserNotFound = errors.New("user not found")
	// ErrValidation marks input rejected before any state mutation.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable indicates the record store could not be reached.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
