package entity

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a domain failure
type ErrorCode string

const (
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrorCodeValidation     ErrorCode = "VALIDATION"
	ErrorCodeAuthentication ErrorCode = "AUTHENTICATION"
)

// AppError is a typed domain failure surfaced to callers
type AppError struct {
	Code    ErrorCode
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrorCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidStateError(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrorCodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrorCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewAuthenticationError(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrorCodeAuthentication, Message: fmt.Sprintf(format, args...)}
}

// ErrorCodeOf returns the code of the first AppError in err's chain, or "" if there is none
func ErrorCodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND AppError
func IsNotFound(err error) bool {
	return ErrorCodeOf(err) == ErrorCodeNotFound
}

// IsInvalidState reports whether err is an INVALID_STATE AppError
func IsInvalidState(err error) bool {
	return ErrorCodeOf(err) == ErrorCodeInvalidState
}
