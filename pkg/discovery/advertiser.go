package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/azm-tools/azm-go/pkg/model"
)

// Registration is one active mDNS service registration.
type Registration interface {
	// SetText replaces the registration's TXT records.
	SetText(text []string)

	// Shutdown withdraws the registration.
	Shutdown()
}

// RegisterFunc registers one mDNS service. The default uses zeroconf; set
// this in tests to capture registrations without touching multicast.
type RegisterFunc func(instance, service string, port int, text []string) (Registration, error)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to advertise on.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL. Zero selects DefaultTTL.
	TTL time.Duration

	// Logger receives operational log records. nil disables logging.
	Logger *slog.Logger

	// Register overrides the mDNS registration call. nil uses zeroconf.
	Register RegisterFunc
}

// Advertiser publishes processors as ServiceType. Real hardware announces
// itself; this exists for the simulator and for tests.
type Advertiser struct {
	config AdvertiserConfig

	mu       sync.Mutex
	services map[string]Registration // keyed by instance name
}

// NewAdvertiser creates an advertiser. Nothing is announced until
// Advertise is called.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	a := &Advertiser{
		config:   config,
		services: make(map[string]Registration),
	}
	if a.config.Register == nil {
		a.config.Register = a.zeroconfRegister
	}
	return a
}

// zeroconfRegister is the default RegisterFunc.
func (a *Advertiser) zeroconfRegister(instance, service string, port int, text []string) (Registration, error) {
	opts := []zeroconf.ServerOption{
		zeroconf.TTL(uint32(a.config.TTL.Seconds())),
	}

	server, err := zeroconf.Register(instance, service, Domain, port, text, a.interfaces(), opts...)
	if err != nil {
		return nil, err
	}
	return &zeroconfRegistration{server: server}, nil
}

// zeroconfRegistration adapts *zeroconf.Server to Registration.
type zeroconfRegistration struct {
	server *zeroconf.Server
}

func (r *zeroconfRegistration) SetText(text []string) {
	r.server.SetText(text)
}

func (r *zeroconfRegistration) Shutdown() {
	r.server.Shutdown()
}

// interfaces returns the network interfaces to advertise on.
// Returns nil to use all interfaces.
func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts announcing a processor. Advertising an instance name
// that is already announced replaces the previous registration.
func (a *Advertiser) Advertise(ctx context.Context, info *ProcessorInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.services[info.Name]; ok {
		existing.Shutdown()
		delete(a.services, info.Name)
	}

	port := info.Port
	if port == 0 {
		port = model.DefaultControlPort
	}

	text := TXTRecordsToStrings(EncodeTXT(info))
	registration, err := a.config.Register(info.Name, ServiceType, port, text)
	if err != nil {
		return fmt.Errorf("failed to register %q: %w", info.Name, err)
	}

	a.services[info.Name] = registration
	if a.config.Logger != nil {
		a.config.Logger.Debug("advertising processor",
			"name", info.Name, "model", info.Model, "zones", info.ZoneCount, "port", port)
	}
	return nil
}

// Update replaces the TXT records of an announced processor.
func (a *Advertiser) Update(name string, info *ProcessorInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	registration, ok := a.services[name]
	if !ok {
		return ErrNotFound
	}

	registration.SetText(TXTRecordsToStrings(EncodeTXT(info)))
	return nil
}

// Stop withdraws one announced processor.
func (a *Advertiser) Stop(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	registration, ok := a.services[name]
	if !ok {
		return ErrNotFound
	}

	registration.Shutdown()
	delete(a.services, name)
	return nil
}

// StopAll withdraws every announcement.
func (a *Advertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, registration := range a.services {
		registration.Shutdown()
		delete(a.services, name)
	}
}
