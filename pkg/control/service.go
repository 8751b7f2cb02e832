package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/azm-tools/azm-go/pkg/dispatch"
	"github.com/azm-tools/azm-go/pkg/model"
	"github.com/azm-tools/azm-go/pkg/probe"
	"github.com/azm-tools/azm-go/pkg/transport"
	"github.com/azm-tools/azm-go/pkg/wire"
	"github.com/azm-tools/azm-go/pkg/zone"
)

// Service is the per-processor control facade. One Service owns at most
// one live connection and its dispatcher. All methods are safe for
// concurrent use.
type Service struct {
	processor model.Processor
	config    Config
	dialer    *transport.Dialer

	mu      sync.RWMutex
	state   ServiceState
	conn    *transport.Conn
	disp    *dispatch.Dispatcher
	gen     uint64
	outputs map[int][]zone.Output
	probing map[int]*probeFlight
}

// probeFlight deduplicates concurrent first probes of one zone.
type probeFlight struct {
	done    chan struct{}
	outputs []zone.Output
	err     error
}

// New creates a control service for one processor. The processor value
// is copied and never mutated. Call Connect to establish the
// connection.
func New(processor model.Processor, config Config) (*Service, error) {
	if err := processor.Validate(); err != nil {
		return nil, err
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = transport.DefaultConnectTimeout
	}
	if config.CommandTimeout == 0 {
		config.CommandTimeout = dispatch.DefaultCommandTimeout
	}

	return &Service{
		processor: processor,
		config:    config,
		dialer: transport.NewDialer(transport.Config{
			ConnectTimeout: config.ConnectTimeout,
			Logger:         config.Capture,
		}),
		state:   StateIdle,
		outputs: make(map[int][]zone.Output),
		probing: make(map[int]*probeFlight),
	}, nil
}

// Processor returns the processor this service controls.
func (s *Service) Processor() model.Processor {
	return s.processor
}

// State returns the current lifecycle state.
func (s *Service) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connected reports whether the service has a live connection.
func (s *Service) Connected() bool {
	return s.State() == StateConnected
}

// Connect dials the processor and starts the command dispatcher. A
// service that lost its connection reconnects with a fresh dispatcher,
// so request ids restart from 1, and with an empty output mapping
// cache.
func (s *Service) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnected || s.state == StateConnecting {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateConnecting
	s.gen++
	gen := s.gen
	s.outputs = make(map[int][]zone.Output)
	s.probing = make(map[int]*probeFlight)
	s.mu.Unlock()

	disp := dispatch.NewDispatcher(nil)
	disp.SetTimeout(s.config.CommandTimeout)

	address := s.processor.Address()
	conn, err := s.dialer.Dial(ctx, address, &connHandler{service: s, dispatcher: disp, gen: gen})
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		if s.config.Logger != nil {
			s.config.Logger.Error("connect failed", "processor", s.processor.Host, "address", address, "error", err)
		}
		return fmt.Errorf("connect %s: %w", address, err)
	}

	if s.config.Capture != nil {
		disp.SetLogger(s.config.Capture, conn.ID())
	}
	disp.Bind(conn)

	s.mu.Lock()
	if s.gen != gen {
		// Disconnect raced the dial and won.
		s.mu.Unlock()
		_ = conn.Close()
		return ErrNotConnected
	}
	s.conn = conn
	s.disp = disp
	s.state = StateConnected
	s.mu.Unlock()

	if s.config.Logger != nil {
		s.config.Logger.Info("connected", "processor", s.processor.Host, "address", address, "conn_id", conn.ID())
	}
	return nil
}

// Disconnect closes the connection, failing every in-flight call.
// Disconnecting a service that is not connected is a no-op.
func (s *Service) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	if s.state == StateConnected || s.state == StateConnecting {
		s.state = StateDisconnected
	}
	s.conn = nil
	s.disp = nil
	s.gen++
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	// Close cascades to the dispatcher through the handler and settles
	// every pending call.
	err := conn.Close()
	if s.config.Logger != nil {
		s.config.Logger.Info("disconnected", "processor", s.processor.Host)
	}
	return err
}

// connHandler adapts transport callbacks to the dispatcher and the
// service lifecycle. The generation stamp keeps a stale connection's
// teardown from clobbering a newer connection's state.
type connHandler struct {
	service    *Service
	dispatcher *dispatch.Dispatcher
	gen        uint64
}

var _ transport.Handler = (*connHandler)(nil)

func (h *connHandler) HandleFrame(frame []byte) {
	h.dispatcher.HandleFrame(frame)
}

func (h *connHandler) HandleClose(cause error) {
	h.dispatcher.HandleClose(cause)
	h.service.connClosed(h.gen, cause)
}

// connClosed reacts to a connection teardown the service did not order.
func (s *Service) connClosed(gen uint64, cause error) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.conn = nil
	s.disp = nil
	s.mu.Unlock()

	if cause != nil && s.config.Logger != nil {
		s.config.Logger.Warn("connection lost", "processor", s.processor.Host, "error", cause)
	}
	if s.config.OnConnectionLost != nil {
		s.config.OnConnectionLost(cause)
	}
}

// dispatcher returns the live dispatcher or ErrNotConnected.
func (s *Service) dispatcher() (*dispatch.Dispatcher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected || s.disp == nil {
		return nil, ErrNotConnected
	}
	return s.disp, nil
}

// checkZone validates a zone index against the processor's zone count.
func (s *Service) checkZone(z int) error {
	if z < 0 || z >= s.processor.ZoneCount {
		return fmt.Errorf("%w: zone %d out of range [0,%d)", ErrInvalidParameter, z, s.processor.ZoneCount)
	}
	return nil
}

// SetVolume sets a zone's gain as a percentage. Out-of-range values are
// rejected, not clamped, so a caller's arithmetic bug surfaces instead
// of slamming a room to full volume.
func (s *Service) SetVolume(ctx context.Context, z, pct int) error {
	if err := s.checkZone(z); err != nil {
		return err
	}
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: volume %d out of range [0,100]", ErrInvalidParameter, pct)
	}
	d, err := s.dispatcher()
	if err != nil {
		return err
	}
	if _, err := d.Set(ctx, model.ZoneGain(z), pct); err != nil {
		return fmt.Errorf("set volume zone %d: %w", z, err)
	}
	if s.config.Logger != nil {
		s.config.Logger.Debug("set volume", "zone", z, "pct", pct)
	}
	return nil
}

// SetMute sets a zone's mute state.
func (s *Service) SetMute(ctx context.Context, z int, muted bool) error {
	if err := s.checkZone(z); err != nil {
		return err
	}
	d, err := s.dispatcher()
	if err != nil {
		return err
	}
	val := 0
	if muted {
		val = 1
	}
	if _, err := d.SetVal(ctx, model.ZoneMute(z), val); err != nil {
		return fmt.Errorf("set mute zone %d: %w", z, err)
	}
	if s.config.Logger != nil {
		s.config.Logger.Debug("set mute", "zone", z, "muted", muted)
	}
	return nil
}

// SetSource selects a zone's input source. Negative selectors are
// rejected locally; whether a given selector exists is the device's
// call, surfaced as a *wire.DeviceError.
func (s *Service) SetSource(ctx context.Context, z, src int) error {
	if err := s.checkZone(z); err != nil {
		return err
	}
	if src < 0 {
		return fmt.Errorf("%w: source %d is negative", ErrInvalidParameter, src)
	}
	d, err := s.dispatcher()
	if err != nil {
		return err
	}
	if _, err := d.SetVal(ctx, model.ZoneSource(z), src); err != nil {
		return fmt.Errorf("set source zone %d: %w", z, err)
	}
	if s.config.Logger != nil {
		s.config.Logger.Debug("set source", "zone", z, "source", src)
	}
	return nil
}

// BumpVolume adjusts a zone's gain by a signed step and returns the
// resulting gain as reported by the device.
func (s *Service) BumpVolume(ctx context.Context, z, delta int) (int, error) {
	if err := s.checkZone(z); err != nil {
		return 0, err
	}
	d, err := s.dispatcher()
	if err != nil {
		return 0, err
	}
	resp, err := d.Bump(ctx, model.ZoneGain(z), delta)
	if err != nil {
		return 0, fmt.Errorf("bump volume zone %d: %w", z, err)
	}
	v, err := resp.Int()
	if err != nil {
		return 0, fmt.Errorf("bump volume zone %d: %w", z, err)
	}
	if s.config.Logger != nil {
		s.config.Logger.Debug("bump volume", "zone", z, "delta", delta, "gain", v)
	}
	return v, nil
}

// SetOutputVolume sets one output's gain. param addresses the output
// directly when non-empty; otherwise the mapping discovered by an
// earlier status call is used. An unmapped output is rejected rather
// than probed, so a set never turns into a discovery round trip.
func (s *Service) SetOutputVolume(ctx context.Context, z, output, pct int, param string) error {
	if err := s.checkZone(z); err != nil {
		return err
	}
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: volume %d out of range [0,100]", ErrInvalidParameter, pct)
	}

	if param == "" {
		s.mu.RLock()
		for _, o := range s.outputs[z] {
			if o.Index == output {
				param = o.Param
				break
			}
		}
		s.mu.RUnlock()
		if param == "" {
			return fmt.Errorf("%w: zone %d output %d is not mapped, read the zone status first", ErrInvalidParameter, z, output)
		}
	}

	d, err := s.dispatcher()
	if err != nil {
		return err
	}
	if _, err := d.Set(ctx, param, pct); err != nil {
		return fmt.Errorf("set output volume zone %d output %d: %w", z, output, err)
	}
	if s.config.Logger != nil {
		s.config.Logger.Debug("set output volume", "zone", z, "output", output, "param", param, "pct", pct)
	}
	return nil
}

// ZoneLabel reads a zone's display name. Labels are cosmetic: a device
// that cannot answer gets the positional default, and only transport
// failures propagate.
func (s *Service) ZoneLabel(ctx context.Context, z int) (string, error) {
	if err := s.checkZone(z); err != nil {
		return "", err
	}
	d, err := s.dispatcher()
	if err != nil {
		return "", err
	}
	resp, err := d.Get(ctx, model.ZoneName(z))
	if err != nil {
		var devErr *wire.DeviceError
		if errors.As(err, &devErr) {
			return zone.DefaultZoneLabel(z), nil
		}
		return "", fmt.Errorf("zone %d label: %w", z, err)
	}
	label, err := resp.Text()
	if err != nil || strings.TrimSpace(label) == "" {
		return zone.DefaultZoneLabel(z), nil
	}
	return label, nil
}

// ZoneStatus reads a zone's label, gain, mute, and source plus the live
// volume of each discovered output. The first status call for a zone
// runs output discovery; the mapping is then cached for the session.
func (s *Service) ZoneStatus(ctx context.Context, z int) (*zone.Zone, error) {
	if err := s.checkZone(z); err != nil {
		return nil, err
	}
	d, err := s.dispatcher()
	if err != nil {
		return nil, err
	}

	outs, err := s.zoneOutputs(ctx, z)
	if err != nil {
		return nil, err
	}

	zn := &zone.Zone{Index: z}

	zn.Label, err = s.ZoneLabel(ctx, z)
	if err != nil {
		return nil, err
	}

	resp, err := d.Get(ctx, model.ZoneGain(z))
	if err != nil {
		return nil, fmt.Errorf("zone %d gain: %w", z, err)
	}
	if zn.Gain, err = resp.Int(); err != nil {
		return nil, fmt.Errorf("zone %d gain: %w", z, err)
	}

	resp, err = d.Get(ctx, model.ZoneMute(z))
	if err != nil {
		return nil, fmt.Errorf("zone %d mute: %w", z, err)
	}
	mute, err := resp.Int()
	if err != nil {
		return nil, fmt.Errorf("zone %d mute: %w", z, err)
	}
	zn.Muted = mute != 0

	resp, err = d.Get(ctx, model.ZoneSource(z))
	if err != nil {
		return nil, fmt.Errorf("zone %d source: %w", z, err)
	}
	if zn.Source, err = resp.Int(); err != nil {
		return nil, fmt.Errorf("zone %d source: %w", z, err)
	}

	zn.Outputs = make([]zone.Output, len(outs))
	copy(zn.Outputs, outs)
	for i := range zn.Outputs {
		resp, err := d.Get(ctx, zn.Outputs[i].Param)
		if err != nil {
			// The param answered during discovery; a refusal now
			// leaves the probe-time volume in place.
			var devErr *wire.DeviceError
			if errors.As(err, &devErr) {
				continue
			}
			return nil, fmt.Errorf("zone %d output %d volume: %w", z, zn.Outputs[i].Index, err)
		}
		if v, err := resp.Int(); err == nil {
			zn.Outputs[i].Volume = v
		}
	}

	return zn, nil
}

// ZoneStatuses reads every configured zone concurrently. The result is
// indexed by zone.
func (s *Service) ZoneStatuses(ctx context.Context) ([]*zone.Zone, error) {
	statuses := make([]*zone.Zone, s.processor.ZoneCount)
	g, ctx := errgroup.WithContext(ctx)
	for z := 0; z < len(statuses); z++ {
		g.Go(func() error {
			st, err := s.ZoneStatus(ctx, z)
			if err != nil {
				return err
			}
			statuses[z] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// RefreshOutputs re-probes a zone's outputs and replaces the session
// cache, for racks that were re-patched mid-session.
func (s *Service) RefreshOutputs(ctx context.Context, z int) (*probe.Result, error) {
	if err := s.checkZone(z); err != nil {
		return nil, err
	}
	disp, err := s.dispatcher()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	res, err := s.probeZone(ctx, disp, z)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.outputs[z] = res.Outputs
	}
	s.mu.Unlock()
	return res, nil
}

// zoneOutputs returns the discovered output mapping for a zone, probing
// on first use. Concurrent first calls share one probe. A failed probe
// is not cached, so the next call retries.
func (s *Service) zoneOutputs(ctx context.Context, z int) ([]zone.Output, error) {
	s.mu.Lock()
	if outs, ok := s.outputs[z]; ok {
		s.mu.Unlock()
		return outs, nil
	}
	if f := s.probing[z]; f != nil {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.outputs, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	disp := s.disp
	connected := s.state == StateConnected && disp != nil
	gen := s.gen
	f := &probeFlight{done: make(chan struct{})}
	s.probing[z] = f
	s.mu.Unlock()

	if !connected {
		s.settleFlight(z, gen, f, nil, ErrNotConnected)
		return nil, ErrNotConnected
	}

	res, err := s.probeZone(ctx, disp, z)
	var outs []zone.Output
	if err == nil {
		outs = res.Outputs
	}
	s.settleFlight(z, gen, f, outs, err)
	return outs, err
}

// settleFlight publishes a probe flight's outcome and caches a success.
func (s *Service) settleFlight(z int, gen uint64, f *probeFlight, outs []zone.Output, err error) {
	f.outputs = outs
	f.err = err
	s.mu.Lock()
	if s.probing[z] == f {
		delete(s.probing, z)
	}
	if err == nil && s.gen == gen {
		s.outputs[z] = outs
	}
	s.mu.Unlock()
	close(f.done)
}

// probeZone runs output discovery for one zone on the live dispatcher.
func (s *Service) probeZone(ctx context.Context, disp *dispatch.Dispatcher, z int) (*probe.Result, error) {
	cfg := s.config.Probe
	if cfg.Logger == nil {
		cfg.Logger = s.config.Capture
	}
	if cfg.ConnectionID == "" {
		s.mu.RLock()
		if s.conn != nil {
			cfg.ConnectionID = s.conn.ID()
		}
		s.mu.RUnlock()
	}

	res, err := probe.New(disp, cfg).ProbeZone(ctx, z)
	if err != nil {
		return nil, err
	}
	if s.config.Logger != nil {
		s.config.Logger.Debug("outputs discovered",
			"zone", z, "outputs", len(res.Outputs), "exhausted", res.Exhausted, "probes", res.Probes)
	}
	return res, nil
}
