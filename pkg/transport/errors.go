package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Connection errors.
var (
	// ErrConnectionRefused indicates the processor actively refused the
	// connection. The host is up but nothing is listening on the port.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrConnectionTimeout indicates connection establishment did not
	// complete within the configured timeout.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrHostUnreachable indicates no route to the host, an unreachable
	// network, or a failed name lookup.
	ErrHostUnreachable = errors.New("host unreachable")

	// ErrConnectionClosed indicates the connection closed unexpectedly.
	ErrConnectionClosed = errors.New("connection closed")
)

// ClassifyDialError maps a dial failure onto one of the transport error
// sentinels so callers can distinguish a powered-off processor from a
// mis-addressed one without matching OS error strings. The original
// error remains available via errors.Unwrap. Unclassified errors are
// returned unchanged.
func ClassifyDialError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrConnectionTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrConnectionTimeout, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	}

	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return fmt.Errorf("%w: %v", ErrHostUnreachable, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrHostUnreachable, err)
	}

	return err
}
