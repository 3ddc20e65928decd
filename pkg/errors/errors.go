// Package errors defines the structured error taxonomy for the Edusight service.
// Every error crossing a component boundary carries a machine-readable code and
// an HTTP status so the presentation layer can translate it without inspecting
// message text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for propagation policy decisions.
type Code string

const (
	// CodeValidation indicates a malformed or missing mandatory field. Never retried.
	CodeValidation Code = "validation_error"

	// CodeAuthorization indicates an isolation-scope violation. Always surfaced
	// explicitly, never converted into an empty result.
	CodeAuthorization Code = "authorization_error"

	// CodePartitionUnavailable indicates an unreachable or timed-out tenant partition.
	CodePartitionUnavailable Code = "partition_unavailable"

	// CodeNotFound indicates a requested entity absent from the resolved scope.
	CodeNotFound Code = "not_found"

	// CodeInternal indicates an unexpected internal failure. Details stay server-side.
	CodeInternal Code = "internal_error"
)

// AppError is the structured error type used across all modules.
type AppError struct {
	code       Code
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the taxonomy code.
func (e *AppError) Code() Code {
	return e.code
}

// HTTPStatus returns the HTTP status this error maps to.
func (e *AppError) HTTPStatus() int {
	return e.httpStatus
}

// Message returns the caller-safe message without cause details.
func (e *AppError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause for error chain support.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error to the chain.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithMetadata attaches additional context metadata.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all attached metadata.
func (e *AppError) Metadata() map[string]interface{} {
	return e.metadata
}

// New creates a new AppError with the given code, status and message.
func New(code Code, httpStatus int, message string) *AppError {
	return &AppError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

// Wrap annotates err with a code and message while preserving the chain.
func Wrap(err error, code Code, message string) *AppError {
	status := http.StatusInternalServerError
	if app, ok := AsAppError(err); ok {
		status = app.httpStatus
	}
	return &AppError{
		code:       code,
		httpStatus: status,
		message:    message,
		cause:      err,
	}
}

// ================================================================================
// Predefined Constructors
// ================================================================================

// ErrValidation creates a validation_error for a malformed or missing field.
func ErrValidation(message string) *AppError {
	return New(CodeValidation, http.StatusBadRequest, message)
}

// ErrMissingStudentID is the canonical validation failure for an absent record id.
func ErrMissingStudentID() *AppError {
	return ErrValidation("student_id is required")
}

// ErrAuthorization creates an authorization_error for a scope violation.
// The message names the denied tenant so a denial is distinguishable from "no data".
func ErrAuthorization(tenantID string) *AppError {
	return New(CodeAuthorization, http.StatusForbidden,
		fmt.Sprintf("principal scope does not include tenant %q", tenantID)).
		WithMetadata("tenant_id", tenantID)
}

// ErrPartitionUnavailable creates a partition_unavailable error for one tenant.
func ErrPartitionUnavailable(tenantID string, cause error) *AppError {
	return New(CodePartitionUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("partition %q is unavailable", tenantID)).
		WithMetadata("tenant_id", tenantID).
		WithCause(cause)
}

// ErrStudentNotFound creates a not_found error for a student id within scope.
func ErrStudentNotFound(studentID string) *AppError {
	return New(CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("student %q not found", studentID)).
		WithMetadata("student_id", studentID)
}

// ErrTenantNotFound creates a not_found error for an unknown tenant id.
func ErrTenantNotFound(tenantID string) *AppError {
	return New(CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("tenant %q not found", tenantID)).
		WithMetadata("tenant_id", tenantID)
}

// ErrInternal creates a generic internal failure. Full detail belongs in the
// server-side log, never in this message.
func ErrInternal(message string) *AppError {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// ================================================================================
// Predicates
// ================================================================================

// AsAppError extracts an *AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var app *AppError
	if errors.As(err, &app) {
		return app, true
	}
	return nil, false
}

func hasCode(err error, code Code) bool {
	if app, ok := AsAppError(err); ok {
		return app.code == code
	}
	return false
}

// IsValidationError reports whether err is a validation_error.
func IsValidationError(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsAuthorizationError reports whether err is an authorization_error.
func IsAuthorizationError(err error) bool {
	return hasCode(err, CodeAuthorization)
}

// IsPartitionUnavailable reports whether err is a partition_unavailable error.
func IsPartitionUnavailable(err error) bool {
	return hasCode(err, CodePartitionUnavailable)
}

// IsNotFoundError reports whether err is a not_found error.
func IsNotFoundError(err error) bool {
	return hasCode(err, CodeNotFound)
}
