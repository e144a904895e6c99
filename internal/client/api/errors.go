package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// DefaultLoginMessage is shown when the backend rejects a login without
// saying why.
const DefaultLoginMessage = "Invalid credentials"

// LoginRejectedError reports a non-success response to a login request.
type LoginRejectedError struct {
	Status  int
	Message string
}

func (e *LoginRejectedError) Error() string {
	return fmt.Sprintf("login rejected (%d): %s", e.Status, e.Message)
}

// RequestError is a non-success response to any other call. Message is the
// backend's "error" field when present.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}
