package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrEmptyContent         = fmt.Errorf("content is empty")
	ErrContentTooLong       = fmt.Errorf("content exceeds maximum length")
	ErrStoreUnavailable     = fmt.Errorf("store unavailable")
	ErrNotFound             = fmt.Errorf("not found")
	ErrSignatureUnavailable = fmt.Errorf("device signature unavailable")
)

// IsValidation reports whether err was raised before reaching the store.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyContent) || errors.Is(err, ErrContentTooLong)
}

// Unavailable wraps a transport or backend failure so callers can match ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
