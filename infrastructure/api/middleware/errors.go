package middleware

import (
	"errors"
	"fmt"
)

// ErrAuthentication is the sentinel matched by errors.Is for any authentication failure.
var ErrAuthentication = errors.New("authentication failed")

// ErrServer is the sentinel matched by errors.Is for any server-side failure.
var ErrServer = errors.New("server error")

// APIError is a generic HTTP-facing error carrying a status code and an
// optional wrapped cause.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError with the given status code, message, and
// optional cause.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the human-readable message.
func (e *APIError) Message() string { return e.message }

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *APIError) Unwrap() error { return e.cause }

// AuthenticationError indicates a request failed API-key authentication.
type AuthenticationError struct {
	message string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{message: message}
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.message)
}

// Is allows errors.Is(err, ErrAuthentication) to match.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// ServerError indicates an internal failure with an explicit status code.
type ServerError struct {
	statusCode int
	message    string
}

// NewServerError creates a ServerError.
func NewServerError(statusCode int, message string) *ServerError {
	return &ServerError{statusCode: statusCode, message: message}
}

// StatusCode returns the HTTP status code.
func (e *ServerError) StatusCode() int { return e.statusCode }

// Message returns the human-readable message.
func (e *ServerError) Message() string { return e.message }

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.statusCode, e.message)
}

// Is allows errors.Is(err, ErrServer) to match.
func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}
