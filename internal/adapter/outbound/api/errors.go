package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrUnauthorized is matched by an APIError carrying status 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrServerUnreachable is returned when the API server cannot be contacted.
	ErrServerUnreachable = errors.New("server unreachable")

	// ErrInvalidResponse is returned when a response body is not a valid envelope.
	ErrInvalidResponse = errors.New("invalid response")
)

// APIError is returned when the server answers with a non-2xx status or an
// envelope whose success flag is false.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Message is the server's error text, or the status text if none was sent.
	Message string
}

// Error returns a human-readable description of the API error.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrUnauthorized).
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// TransportError is returned when the request never produced a response.
type TransportError struct {
	// Cause is the underlying error from the HTTP client.
	Cause error
}

// Error returns a human-readable description of the transport error.
func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server unreachable: %v", e.Cause)
	}
	return "server unreachable"
}

// Unwrap returns the underlying error cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrServerUnreachable).
func (e *TransportError) Is(target error) bool {
	return target == ErrServerUnreachable
}
