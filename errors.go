package walletauth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest is returned when the server rejected the request body or address
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized is returned for failed logins and rejected session tokens
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is returned when the server throttled the client
	ErrRateLimited = errors.New("rate limited")

	// ErrServer is returned for 5xx responses
	ErrServer = errors.New("server error")
)

// APIError is a non-2xx response from the service
type APIError struct {
	StatusCode int
	Message    string
	Details    any
}

func (e *APIError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("walletauth: %d %s: %v", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("walletauth: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the package sentinels
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return ErrInvalidRequest
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrServer
	default:
		return nil
	}
}
