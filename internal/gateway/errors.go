package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired means the credential is missing, expired or was
	// rejected by the server. It is never surfaced as a banner: the caller
	// shows the login surface instead.
	ErrSessionExpired = errors.New("session expired")

	ErrInvalidResponse = errors.New("invalid JSON response")
)

// HTTPError is a non-2xx, non-401 response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// NetworkError is a transport failure: the request never got a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
