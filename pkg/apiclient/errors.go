package apiclient

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// NetworkError means the server could not be reached or the exchange broke
// off before a status was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerRejected means the server answered with a non-success status, or with
// a body that does not match the expected schema.
type ServerRejected struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *ServerRejected) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: server rejected request (%d): %s", e.Op, e.StatusCode, msg)
}

// IsNetworkError reports whether err is, or wraps, a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsServerRejected reports whether err is, or wraps, a ServerRejected.
func IsServerRejected(err error) bool {
	var sr *ServerRejected
	return errors.As(err, &sr)
}

// StatusCode returns the HTTP status carried by a ServerRejected error, or 0.
func StatusCode(err error) int {
	var sr *ServerRejected
	if errors.As(err, &sr) {
		return sr.StatusCode
	}
	return 0
}
