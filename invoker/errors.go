package invoker

import (
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
)

// ErrCancelled is wrapped by every error caused by the caller's context being
// cancelled or timing out, so callers can tell cancellation from failure.
var ErrCancelled = errors.New("invocation cancelled")

// TransportError reports a name-resolution or connection failure together
// with the endpoint the request was sent to.
type TransportError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: cannot reach %s: %v", e.Operation, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// isConnectionError reports whether err, at any depth, is a DNS or dial failure.
func isConnectionError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// RemoteServiceError returns the service-side error carried by err, if any.
// Such errors are returned unchanged by the invoker.
// Example:
//
//	if apiErr, ok := invoker.RemoteServiceError(err); ok {
//	    fmt.Printf("%s: %s\n", apiErr.ErrorCode(), apiErr.ErrorMessage())
//	}
func RemoteServiceError(err error) (smithy.APIError, bool) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
