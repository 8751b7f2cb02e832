package discovery

import (
	"errors"
	"time"

	"github.com/azm-tools/azm-go/pkg/model"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of the control interface.
	ServiceType = "_azm-ctrl._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultTTL is the DNS record TTL for advertised services.
	DefaultTTL = 120 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameInvalid = errors.New("invalid instance name")
	ErrNotFound            = errors.New("service not found")
)

// ProcessorInfo describes one processor for advertisement.
type ProcessorInfo struct {
	// Name is the instance name to advertise, e.g. "Atmosphere AZM8".
	Name string

	// Model is the hardware model, e.g. "AZM4" or "AZM8".
	Model string

	// ZoneCount is the configured zone count.
	ZoneCount int

	// SerialNumber is the device serial number. Optional.
	SerialNumber string

	// FirmwareVersion is the device firmware version. Optional.
	FirmwareVersion string

	// Port is the control port. Zero selects model.DefaultControlPort.
	Port int
}

// Validate checks that the info can be advertised.
func (p *ProcessorInfo) Validate() error {
	if p.Name == "" || len(p.Name) > MaxInstanceNameLen {
		return ErrInstanceNameInvalid
	}
	if p.Model == "" {
		return ErrMissingRequired
	}
	if p.ZoneCount < 1 {
		return model.ErrInvalidZoneCount
	}
	return nil
}

// DiscoveredProcessor is one processor seen on the network.
type DiscoveredProcessor struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the advertised hostname, e.g. "azm8-2301.local.".
	Host string

	// Port is the advertised control port.
	Port int

	// Addresses contains resolved IP addresses, IPv4 first.
	Addresses []string

	// Model is the hardware model (from TXT "md").
	Model string

	// ZoneCount is the configured zone count (from TXT "zc").
	ZoneCount int

	// SerialNumber is the serial number (from TXT "sn").
	SerialNumber string

	// FirmwareVersion is the firmware version (from TXT "fw").
	FirmwareVersion string
}

// Processor converts the discovery record into a control-layer target.
// Resolved addresses are preferred over the mDNS hostname so the dial does
// not depend on .local name resolution.
func (d *DiscoveredProcessor) Processor() model.Processor {
	host := d.Host
	if len(d.Addresses) > 0 {
		host = d.Addresses[0]
	}
	return model.Processor{
		ID:              d.InstanceName,
		Name:            d.InstanceName,
		Host:            host,
		ControlPort:     d.Port,
		Model:           d.Model,
		ZoneCount:       d.ZoneCount,
		SerialNumber:    d.SerialNumber,
		FirmwareVersion: d.FirmwareVersion,
	}
}
