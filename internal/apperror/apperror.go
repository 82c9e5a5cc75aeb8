// Package apperror defines the error taxonomy shared by services and handlers
// and renders it as the JSON error envelope.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error kind on the wire
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeProfileIncomplete Code = "PROFILE_INCOMPLETE"
	CodeTransactionFailed Code = "TRANSACTION_FAILED"
	CodeInternal          Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation:        http.StatusBadRequest,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeForbidden:         http.StatusForbidden,
	CodeNotFound:          http.StatusNotFound,
	CodeConflict:          http.StatusConflict,
	CodeInsufficientStock: http.StatusConflict,
	CodeProfileIncomplete: http.StatusUnprocessableEntity,
	CodeTransactionFailed: http.StatusInternalServerError,
	CodeInternal:          http.StatusInternalServerError,
}

// Error is an application error carrying its wire code
type Error struct {
	Code    Code
	Message string
	Details any
	// Err is the underlying cause. It is logged, never rendered.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error code
func (e *Error) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Internal reports whether the error must be rendered without its message
func (e *Error) Internal() bool {
	return e.Status() >= http.StatusInternalServerError
}

// New creates an error with the given code and message
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with the given code that keeps cause for logging
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// WithDetails returns a copy of e carrying details
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// FieldError is a single field violation
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validation creates a VALIDATION_ERROR listing every violated field
func Validation(fields []FieldError) *Error {
	return &Error{Code: CodeValidation, Message: "request validation failed", Details: fields}
}

func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternal, "an unexpected error occurred", cause)
}

func TransactionFailed(cause error) *Error {
	return Wrap(CodeTransactionFailed, "the transaction could not be completed", cause)
}

// From converts any error into an *Error, treating unknown errors as internal
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err)
}

// Is reports whether err carries the given code
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
