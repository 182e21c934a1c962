package game

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSubmission = errors.New("facts already submitted today")
	ErrAlreadyGuessed      = errors.New("already guessed this player today")
	ErrConflict            = errors.New("conflict")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrForbidden           = errors.New("forbidden")
)

// Error carries one of the sentinel kinds above together with a message
// that is safe to show to the player.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NewError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return NewError(ErrValidation, format, args...)
}

func notFound(format string, args ...any) error {
	return NewError(ErrNotFound, format, args...)
}

// Unavailable wraps an infrastructure failure of the backing store.
func Unavailable(err error) error {
	return &unavailableError{cause: err}
}

type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return "store unavailable: " + e.cause.Error()
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}

// TransitionError reports a flow transition whose guard did not hold.
type TransitionError struct {
	From   Stage
	To     Stage
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s: %s", e.From, e.To, e.Reason)
}
