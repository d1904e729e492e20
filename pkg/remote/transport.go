package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"campus-desk-be/pkg/deskerr"
)

const (
	msgConnectFailed = "Unable to connect to the backend server. Please check your internet connection and ensure the backend is running."
	msgRefused       = "Cannot reach the backend server. Please ensure the server is running and accessible."
	msgTimeout       = "The backend server took too long to respond. Please try again."
)

// StatusError carries a non-2xx reply from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded with HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded with HTTP %d: %s", e.StatusCode, e.Body)
}

// ClassifyTransportError turns a failed round trip into a user-facing error:
// refused and unresolvable hosts become transport_connect, anything else
// transport.
func ClassifyTransportError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return deskerr.Wrap(deskerr.CodeTransportConnect, msgRefused, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return deskerr.Wrap(deskerr.CodeTransportConnect, msgConnectFailed, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return deskerr.Wrap(deskerr.CodeTransportConnect, msgConnectFailed, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return deskerr.Wrap(deskerr.CodeTransport, msgTimeout, err)
	}

	return deskerr.Wrap(deskerr.CodeTransport, fmt.Sprintf("Connection error: %s", err.Error()), err)
}

// IsRetryable reports whether repeating the same request could succeed.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
	}
	switch deskerr.CodeOf(err) {
	case deskerr.CodeTransport, deskerr.CodeTransportConnect:
		return true
	}
	return false
}
