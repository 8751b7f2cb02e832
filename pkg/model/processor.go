package model

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// DefaultControlPort is the TCP port of the Atmosphere third-party control
// interface.
const DefaultControlPort = 5321

// Processor validation errors.
var (
	// ErrMissingHost indicates a Processor without a network address.
	ErrMissingHost = errors.New("processor host is empty")

	// ErrInvalidZoneCount indicates a Processor whose zone count is not positive.
	ErrInvalidZoneCount = errors.New("processor zone count must be positive")
)

// Processor identifies one audio processor on the network.
//
// Values come from the caller (a config file, command-line flags, or mDNS
// discovery) and are never persisted or mutated by this module.
type Processor struct {
	// ID uniquely identifies the processor to the caller, e.g. a config key.
	ID string

	// Name is a human-readable processor name.
	Name string

	// Host is the processor's hostname or IP address.
	Host string

	// ControlPort is the TCP control port. Zero selects DefaultControlPort.
	ControlPort int

	// Model is the hardware model identifier, e.g. "AZM4" or "AZM8".
	Model string

	// ZoneCount is the number of zones the processor is configured with.
	ZoneCount int

	// SerialNumber is the device serial number, when known.
	SerialNumber string

	// FirmwareVersion is the device firmware version, when known.
	FirmwareVersion string
}

// Validate checks that the processor carries enough information to connect
// and address its zones.
func (p *Processor) Validate() error {
	if p.Host == "" {
		return ErrMissingHost
	}
	if p.ZoneCount < 1 {
		return ErrInvalidZoneCount
	}
	return nil
}

// Address returns the host:port dial address, substituting
// DefaultControlPort when no port is set.
func (p *Processor) Address() string {
	port := p.ControlPort
	if port == 0 {
		port = DefaultControlPort
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// ZoneCountForModel returns the zone count of a known hardware model, or 0
// for models this package does not know. Matching ignores case and
// surrounding whitespace. Amplified variants carry the same zone counts as
// their base models.
func ZoneCountForModel(model string) int {
	switch strings.ToUpper(strings.TrimSpace(model)) {
	case "AZM4", "AZMP4":
		return 4
	case "AZM8", "AZMP8":
		return 8
	default:
		return 0
	}
}
