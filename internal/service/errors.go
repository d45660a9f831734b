package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers classify with errors.Is; anything that matches none
// of them is an unexpected fault and is logged, not shown.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error carries a client-safe message and unwraps to its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error   { return newError(ErrNotFound, format, args...) }
func invalid(format string, args ...any) error    { return newError(ErrValidation, format, args...) }
func conflict(format string, args ...any) error   { return newError(ErrConflict, format, args...) }
func unauthorized(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}
func forbidden(format string, args ...any) error { return newError(ErrForbidden, format, args...) }

// ParseError reports a batch entry whose price string is not a number.
// It is local to that entry; the rest of the batch still commits.
type ParseError struct {
	FuelTypeID string
	Value      string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fuel %q: cannot parse price %q", e.FuelTypeID, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }
