package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// ValidationError is a client-side rejection of a value, either a form field
// failing its constraints or a record value suspected to carry markup.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation creates a ValidationError
func Validation(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// Markup creates the ValidationError raised for values containing a script tag
func Markup(field, value string) *ValidationError {
	return Validation(field, value, "value contains markup and was not displayed")
}

// AsValidation unwraps err into a *ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if stderrors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// Message returns the text shown to the user for err: the server-supplied
// message for request errors, the reason for validation errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if reqErr, ok := client.AsRequestError(err); ok {
		return reqErr.Message
	}
	if v, ok := AsValidation(err); ok {
		return v.Error()
	}
	return err.Error()
}

// AppError is an error returned by the dashboard's own HTTP endpoints
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeForbidden   = "FORBIDDEN"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeRateLimited = "RATE_LIMITED"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}
