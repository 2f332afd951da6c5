// Package errors provides structured errors that carry a type, a client-safe message
// and log context, and map onto HTTP status codes at the edge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category of an error; it picks the HTTP status and log level.
type ErrorType string

const (
	// TypeValidation is invalid client input (HTTP 400).
	TypeValidation ErrorType = "invalid_input"
	// TypeNotFound is a missing resource (HTTP 404).
	TypeNotFound ErrorType = "not_found"
	// TypeConnectionLost is a push target that can no longer be reached. It is handled
	// where it happens and only reaches HTTP when a handler surfaces it deliberately.
	TypeConnectionLost ErrorType = "connection_lost"
	// TypeConfigMissing is an absent optional setting that was replaced by a default.
	TypeConfigMissing ErrorType = "config_missing"
	// TypeInternal is a server-side failure (HTTP 500).
	TypeInternal ErrorType = "internal"
	// TypeExternal is a failing dependency such as Redis (HTTP 502).
	TypeExternal ErrorType = "external"
)

// Error is a structured error with type, message and context fields.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for the error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConnectionLost:
		return http.StatusGone
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// ValidationError creates an invalid-input error (HTTP 400).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// NotFoundError creates a not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

func ConnectionLostError(message string, cause error) *Error {
	return newError(TypeConnectionLost, message, cause)
}

func ConfigMissingError(setting string) *Error {
	return newError(TypeConfigMissing, setting+" is not set", nil).WithField("setting", setting)
}

// InternalError creates an internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// ExternalError creates a dependency error (HTTP 502).
func ExternalError(message string, cause error) *Error {
	return newError(TypeExternal, message, cause)
}

// WithField adds a context field (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON body sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError returns err as an *Error, wrapping anything unstructured as an
// internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}

// IsType reports whether err is a structured error of type t.
func IsType(err error, t ErrorType) bool {
	var structuredErr *Error
	return errors.As(err, &structuredErr) && structuredErr.Type == t
}
