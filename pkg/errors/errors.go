// Package errors defines the structured errors rendered by the profile
// service API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error that knows how to present itself to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Internal = err
	return &cpy
}

var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// NewBadRequest builds a 400 error with a caller-supplied message.
func NewBadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, StatusCode: http.StatusBadRequest}
}

// NewConflict builds a 409 error with a caller-supplied message.
func NewConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, StatusCode: http.StatusConflict}
}

// FromError normalises any error into an AppError. Unknown errors map to
// ErrInternalServer with the original attached.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}
