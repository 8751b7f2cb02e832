package control

import (
	"errors"
	"log/slog"
	"time"

	"github.com/azm-tools/azm-go/pkg/dispatch"
	"github.com/azm-tools/azm-go/pkg/log"
	"github.com/azm-tools/azm-go/pkg/probe"
	"github.com/azm-tools/azm-go/pkg/transport"
)

// Service lifecycle errors.
var (
	// ErrNotConnected is returned by operations invoked without a live
	// connection.
	ErrNotConnected = errors.New("not connected to processor")

	// ErrAlreadyConnected is returned by Connect while a connection is
	// established or being established.
	ErrAlreadyConnected = errors.New("already connected to processor")

	// ErrInvalidParameter is returned for arguments that would never be
	// valid on any processor: out-of-range percentages, unknown zone
	// indices, unmapped outputs.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ServiceState identifies the connection lifecycle state of a Service.
type ServiceState uint8

const (
	// StateIdle is the initial state before the first Connect.
	StateIdle ServiceState = iota

	// StateConnecting means a dial is in progress.
	StateConnecting

	// StateConnected means the service has a live connection.
	StateConnected

	// StateDisconnected means the connection was closed or lost. A new
	// Connect is allowed.
	StateDisconnected
)

// String returns a human-readable state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a control Service.
type Config struct {
	// ConnectTimeout bounds connection establishment (default 8s).
	ConnectTimeout time.Duration

	// CommandTimeout bounds each command round trip (default 7s).
	CommandTimeout time.Duration

	// Probe configures output discovery. Zero-value fields use the
	// probe defaults.
	Probe probe.Config

	// Capture receives protocol capture events (optional).
	Capture log.Logger

	// Logger receives operational log records. nil disables logging.
	Logger *slog.Logger

	// OnConnectionLost is invoked when an established connection drops
	// without a Disconnect call, after in-flight calls have been
	// settled. It is not invoked for deliberate disconnects. Callers
	// use it to drive reconnection (see pkg/connection).
	OnConnectionLost func(cause error)
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: transport.DefaultConnectTimeout,
		CommandTimeout: dispatch.DefaultCommandTimeout,
		Probe:          probe.DefaultConfig(),
	}
}
