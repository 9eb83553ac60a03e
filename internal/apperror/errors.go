// Package apperror carries the HTTP-facing error taxonomy: validation (400),
// authentication (401/403), not-found (404), conflict (400) and upstream
// failures (500).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes surfaced to clients.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeAlreadyLoggedIn    = "ALREADY_LOGGED_IN"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeAlreadyVerified    = "ALREADY_VERIFIED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUseOAuthLogin      = "USE_OAUTH_LOGIN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeAlreadyPaid        = "ALREADY_PAID"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodePaymentFailed      = "PAYMENT_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
)

type AppError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message, nil)
}

// Conflict keeps the 400 status clients already branch on for "already exists" style failures.
func Conflict(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message, nil)
}

func Validation(fields map[string]string) *AppError {
	e := New(http.StatusBadRequest, CodeValidation, "validation failed", nil)
	e.Fields = fields
	return e
}

func Unauthorized(code, message string) *AppError {
	return New(http.StatusUnauthorized, code, message, nil)
}

func Forbidden(code, message string) *AppError {
	return New(http.StatusForbidden, code, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

func Internal(message string, err error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, message, err)
}

// From returns err as an AppError, wrapping unknown errors as internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}
