package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStandUnavailable  = errors.New("stand unavailable")
	ErrAlreadyResolved   = errors.New("conflict already resolved")
	ErrNotFound          = errors.New("not found")
)

// Error attaches a caller-facing reason to one of the sentinel kinds above.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Reason returns the reason string of err, or its message when err carries none.
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}

	return err.Error()
}
