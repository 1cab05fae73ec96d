package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RequestError is returned for any non-success HTTP response
type RequestError struct {
	StatusCode int
	Message    string
	Body       string
}

func newRequestError(status int, body *Body) *RequestError {
	e := &RequestError{StatusCode: status, Body: body.Text()}

	if body.Kind == KindJSON {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body.Raw, &payload); err == nil && payload.Error != "" {
			e.Message = payload.Error
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(e.Body)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return e.Message
}

// Detail includes the status code, for logs
func (e *RequestError) Detail() string {
	return fmt.Sprintf("API error: %s (status: %d)", e.Message, e.StatusCode)
}

// IsNotFound returns true if the error is a 404 not found error
func (e *RequestError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true if the error is a 401 unauthorized error
func (e *RequestError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsForbidden returns true if the error is a 403 forbidden error
func (e *RequestError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsServerError returns true if the error is a 5xx server error
func (e *RequestError) IsServerError() bool {
	return e.StatusCode >= 500
}

// AsRequestError unwraps err into a *RequestError
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
