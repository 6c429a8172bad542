package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/program-planner/internal/schedule"
)

var (
	// ErrNotFound covers both a missing program or item and one the caller
	// may not see.
	ErrNotFound = errors.New("not found")

	// ErrNotReady is returned when a first share is attempted on a program
	// without items or with invalid or overlapping items.
	ErrNotReady = errors.New("program is not ready to be shared: it needs at least one item and no overlapping or invalid time ranges")

	// ErrDuplicatePosition is returned when an item position is already
	// used in the program.
	ErrDuplicatePosition = errors.New("position already used in this program")

	// ErrTokenSpaceExhausted is returned when every generated share token
	// collided with an existing one.
	ErrTokenSpaceExhausted = errors.New("could not generate a unique share token")

	// ErrValidation is the parent of every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// isDomainError reports whether err is an expected outcome of user input
// rather than an infrastructure failure.
func isDomainError(err error) bool {
	var (
		rangeErr    *schedule.InvalidRangeError
		conflictErr *schedule.ConflictError
	)
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotReady),
		errors.Is(err, ErrDuplicatePosition),
		errors.Is(err, ErrValidation),
		errors.As(err, &rangeErr),
		errors.As(err, &conflictErr):
		return true
	}
	return false
}
