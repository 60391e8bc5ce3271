package services

import (
	"fmt"
	"net/http"
)

// Violation is a single input validation failure.
type Violation struct {
	Message string `json:"message"`
}

// Error kinds, branchable by callers.
const (
	KindValidation         = "validation"
	KindUnauthenticated    = "unauthenticated"
	KindInvalidCredentials = "invalid_credentials"
	KindForbidden          = "forbidden"
	KindNotFound           = "not_found"
	KindConflict           = "conflict"
	KindInternal           = "internal"
)

// Error is a structured operation failure carrying an HTTP-equivalent
// status code, a machine-readable kind, and, for validation failures,
// the full violation list.
type Error struct {
	Code       int
	Kind       string
	Message    string
	Violations []Violation
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ErrValidation reports every collected violation, not just the first.
func ErrValidation(violations []Violation) *Error {
	return &Error{
		Code:       http.StatusUnprocessableEntity,
		Kind:       KindValidation,
		Message:    "invalid input",
		Violations: violations,
	}
}

func ErrUnauthenticated() *Error {
	return &Error{Code: http.StatusUnauthorized, Kind: KindUnauthenticated, Message: "not authenticated"}
}

func ErrInvalidCredentials(message string) *Error {
	return &Error{Code: http.StatusUnauthorized, Kind: KindInvalidCredentials, Message: message}
}

func ErrForbidden(message string) *Error {
	return &Error{Code: http.StatusForbidden, Kind: KindForbidden, Message: message}
}

func ErrNotFound(message string) *Error {
	return &Error{Code: http.StatusNotFound, Kind: KindNotFound, Message: message}
}

func ErrConflict(message string) *Error {
	return &Error{Code: http.StatusConflict, Kind: KindConflict, Message: message}
}

func ErrInternal(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Kind: KindInternal, Message: "internal error", cause: err}
}
