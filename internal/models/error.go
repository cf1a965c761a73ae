package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNetwork covers timeouts, connection failures and malformed responses
	ErrNetwork = errors.New("network error")
)

// ServerError is returned when the ranking service answers with a non-2xx status
type ServerError struct {
	Status  int
	Body    string
	Message string // parsed from the error envelope when present
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error %d", e.Status)
}

// IsServerError reports whether err wraps a ServerError with the given status.
// A status of 0 matches any ServerError.
func IsServerError(err error, status int) bool {
	var se *ServerError
	if !errors.As(err, &se) {
		return false
	}
	return status == 0 || se.Status == status
}
