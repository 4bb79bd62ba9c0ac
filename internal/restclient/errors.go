package restclient

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	msgMethodNotFound = "method not found"
	msgServerError    = "server error"
)

// PreconditionError is returned before any request is made when a call
// cannot be valid (missing passkey, body on a read-only verb, no base URL).
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// APIError is a failure reported by the service, either through a non-2xx
// status or an {"error": ...} response body.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// TransportError wraps a network, timeout, cancellation or decoding failure.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// statusMessage maps an HTTP failure status to the message surfaced to users.
// fallback is the service's own error text, if any.
func statusMessage(code int, fallback string) string {
	switch {
	case code == http.StatusNotFound:
		return msgMethodNotFound
	case code >= http.StatusInternalServerError:
		return msgServerError
	case fallback != "":
		return fallback
	}
	return http.StatusText(code)
}

// IsRemote reports whether err came from the service or the transport, as
// opposed to a local precondition.
func IsRemote(err error) bool {
	var apiErr *APIError
	var transportErr *TransportError
	return errors.As(err, &apiErr) || errors.As(err, &transportErr)
}

// IsPrecondition reports whether err is a local precondition violation.
func IsPrecondition(err error) bool {
	var pre *PreconditionError
	return errors.As(err, &pre)
}

// Message returns the user-facing text of err: the service's message for
// remote failures, the underlying cause for transport failures.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Err.Error()
	}
	var pre *PreconditionError
	if errors.As(err, &pre) {
		return pre.Reason
	}
	return err.Error()
}
