package fetch

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned before any I/O when the URL is missing or malformed
var ErrInvalidRequest = errors.New("invalid request")

// HTTPError is returned when the exchange completed with a non-2xx status.
// It carries the full response so callers can inspect the server's payload.
type HTTPError struct {
	Method   string
	Response *Response
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Response.URL, e.Response.Status)
}

// TransportError wraps a connection, DNS or socket failure
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func invalidRequest(method, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidRequest, method, fmt.Sprintf(format, args...))
}
