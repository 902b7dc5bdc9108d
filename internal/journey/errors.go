package journey

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrRemoteFailure     = errors.New("remote failure")
	ErrGenerationFailure = errors.New("generation failure")

	// ErrConflict is reserved for version-checked multi-writer stores; nothing returns it yet.
	ErrConflict = errors.New("conflict")
)

// Error carries the kind of failure together with the operation and id it concerns.
type Error struct {
	Kind error
	Op   string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.ID != "" {
		msg += " (" + e.ID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Recoverable reports whether retrying the same intent may succeed.
func Recoverable(err error) bool {
	return errors.Is(err, ErrRemoteFailure) || errors.Is(err, ErrGenerationFailure)
}

func validationErr(op string, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

func transitionErr(op, id string, format string, args ...any) error {
	return &Error{Kind: ErrInvalidTransition, Op: op, ID: id, Err: fmt.Errorf(format, args...)}
}

func notFoundErr(op, id string) error {
	return &Error{Kind: ErrNotFound, Op: op, ID: id}
}
