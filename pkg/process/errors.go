package process

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when a start request or list query fails validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotCancellable is returned when a process is already in a state that cannot be cancelled.
	ErrNotCancellable = errors.New("process cannot be cancelled")
)

// Error adds the failing operation to errors raised before the backend is contacted.
// Backend errors are returned as-is.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("process %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidationError checks if err was raised by request validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsNotCancellable checks if err reports a process that can no longer be cancelled.
func IsNotCancellable(err error) bool {
	return errors.Is(err, ErrNotCancellable)
}
