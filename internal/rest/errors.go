package rest

import (
	"errors"
	"fmt"
	"net/http"
)

// The core's REST failure taxonomy. Every call site catches these, surfaces
// a transient notification and moves on; nothing here crashes the UI and
// nothing is retried automatically.
var (
	// ErrNetwork means the request did not complete.
	ErrNetwork = errors.New("network failure")
	// ErrNotFound means the target no longer exists server-side.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the session token is invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")
)

// classify maps a non-2xx response to the taxonomy.
func classify(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, status)
	case http.StatusNotFound:
		return fmt.Errorf("%w (status %d)", ErrNotFound, status)
	default:
		return fmt.Errorf("request failed with status %d: %s", status, string(body))
	}
}
