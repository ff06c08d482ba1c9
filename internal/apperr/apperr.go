// Package apperr defines the tagged error values services return and the
// mapping from error codes to HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	BadRequest      Code = "bad_request"
	Unauthorized    Code = "unauthorized"
	NotFound        Code = "not_found"
	TooManyRequests Code = "too_many_requests"
	DatabaseError   Code = "database_error"
	BucketError     Code = "bucket_error"
	UnknownError    Code = "unknown_error"
)

// Error is a request-scoped failure carrying its envelope code. Status
// overrides the code's default HTTP status when non-zero.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the explicit status or the code's default.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return StatusOf(e.Code)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Invalid(message string) *Error {
	return New(BadRequest, message)
}

func Missing(message string) *Error {
	return New(NotFound, message)
}

// Forbidden is an ownership mismatch: reported as unauthorized with 403.
func Forbidden(message string) *Error {
	return &Error{Code: Unauthorized, Message: message, Status: http.StatusForbidden}
}

func Database(err error) *Error {
	return Wrap(DatabaseError, "database operation failed", err)
}

func Bucket(err error) *Error {
	return Wrap(BucketError, "storage operation failed", err)
}

func StatusOf(code Code) int {
	switch code {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// From converts any error into an *Error, defaulting to unknown_error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(UnknownError, "unexpected error", err)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
