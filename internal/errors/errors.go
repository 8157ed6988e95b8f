// Package errors classifies failures of the role store so callers can degrade or report them.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, label-safe category of an AppError.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeForeignKey ErrorCode = "foreign_key"
	// ErrCodeUnavailable means the role store is missing or unreachable; role lookups degrade on it.
	ErrCodeUnavailable ErrorCode = "unavailable"
	ErrCodeInternal    ErrorCode = "internal"
	ErrCodeTimeout     ErrorCode = "timeout"
	ErrCodeCanceled    ErrorCode = "canceled"
)

// AppError carries a code and a user-facing message on top of the underlying cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input column or flag, if any.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error { return e.Cause }

// NotFoundf reports a missing user or role.
func NotFoundf(format string, args ...any) *AppError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &AppError{Code: ErrCodeNotFound, Message: msg}
}

// ValidationField reports invalid input for field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	if appErr, ok := asAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of the first AppError in err's chain, or "".
func GetField(err error) string {
	if appErr, ok := asAppError(err); ok {
		return appErr.Field
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code ErrorCode) bool { return code != "" && GetCode(err) == code }

func IsNotFound(err error) bool    { return Is(err, ErrCodeNotFound) }
func IsValidation(err error) bool  { return Is(err, ErrCodeValidation) }
func IsUnavailable(err error) bool { return Is(err, ErrCodeUnavailable) }
func IsTimeout(err error) bool     { return Is(err, ErrCodeTimeout) }

func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
