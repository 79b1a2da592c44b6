package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in API responses.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeAlreadyResolved    = "ALREADY_RESOLVED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), Status: http.StatusNotFound}
}

func PreconditionFailed(message string) *Error {
	return &Error{Code: CodePreconditionFailed, Message: message, Status: http.StatusUnprocessableEntity}
}

// InvalidTransition rejects a status change that the lifecycle does not permit.
func InvalidTransition(entity, from, to string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		Status:  http.StatusConflict,
	}
}

// AlreadyResolved rejects a second resolution of a terminal dispute.
func AlreadyResolved(status string) *Error {
	return &Error{
		Code:    CodeAlreadyResolved,
		Message: fmt.Sprintf("dispute is already %s", status),
		Status:  http.StatusConflict,
	}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message, Status: http.StatusUnauthorized}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message, Status: http.StatusForbidden}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Status: http.StatusInternalServerError, Err: err}
}

// Is reports whether err carries the given application error code.
func Is(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From extracts an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", err)
}
