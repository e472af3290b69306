package apperr

import (
	"errors"
	"fmt"
)

// Error kinds every service maps to an HTTP status at the boundary.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("collaborator unavailable")
)

type appError struct {
	kind error
	msg  string
}

func (e *appError) Error() string { return e.msg }

func (e *appError) Unwrap() error { return e.kind }

func Validation(format string, args ...any) error {
	return &appError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &appError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) error {
	return &appError{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &appError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Unavailable wraps the transport cause so callers can still inspect it.
func Unavailable(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &appError{kind: ErrUnavailable, msg: msg}
}
