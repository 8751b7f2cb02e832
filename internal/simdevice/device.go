package simdevice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/azm-tools/azm-go/pkg/log"
	"github.com/azm-tools/azm-go/pkg/transport"
	"github.com/azm-tools/azm-go/pkg/wire"
)

// Config configures a simulated processor.
type Config struct {
	// Address is the listen address (default "127.0.0.1:0").
	Address string

	// Definition describes the simulated hardware (default:
	// DefaultDefinition()).
	Definition *Definition

	// ResponseDelay is added to every response, on top of any
	// per-parameter behavior delay.
	ResponseDelay time.Duration

	// Logger receives processor-side capture events (optional).
	Logger log.Logger
}

// Device is an in-process AZM processor simulator. It owns a parameter
// table built from its Definition and answers get, set, bmp, sub, and
// unsub requests over real TCP connections.
type Device struct {
	def    *Definition
	delay  time.Duration
	server *transport.Server

	mu       sync.Mutex
	params   map[string]int
	texts    map[string]string
	subs     map[*transport.ServerConn]map[string]bool
	requests []wire.Request
}

// New creates a simulated processor. Call Start to begin listening.
func New(config Config) (*Device, error) {
	def := config.Definition
	if def == nil {
		def = DefaultDefinition()
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	address := config.Address
	if address == "" {
		address = "127.0.0.1:0"
	}

	params, texts := def.buildParams()
	d := &Device{
		def:    def,
		delay:  config.ResponseDelay,
		params: params,
		texts:  texts,
		subs:   make(map[*transport.ServerConn]map[string]bool),
	}

	server, err := transport.NewServer(transport.ServerConfig{
		Address:      address,
		Logger:       config.Logger,
		OnFrame:      d.handleFrame,
		OnDisconnect: d.dropConn,
	})
	if err != nil {
		return nil, err
	}
	d.server = server

	return d, nil
}

// Start begins accepting connections.
func (d *Device) Start(ctx context.Context) error {
	return d.server.Start(ctx)
}

// Stop closes the listener and all connections.
func (d *Device) Stop() error {
	return d.server.Stop()
}

// Addr returns the device's dialable "host:port" address.
func (d *Device) Addr() string {
	return d.server.Addr().String()
}

// Definition returns the hardware definition the device was built from.
func (d *Device) Definition() *Definition {
	return d.def
}

// Param returns the current value of a numeric parameter.
func (d *Device) Param(name string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.params[name]
	return v, ok
}

// SetParam sets a numeric parameter directly and reports the change to
// subscribers, as if the value changed on the front panel.
func (d *Device) SetParam(name string, value int) {
	d.mu.Lock()
	d.params[name] = value
	targets := d.subscribersLocked(name)
	d.mu.Unlock()
	d.report(targets, name, value)
}

// Requests returns a copy of every decoded request received so far, in
// arrival order.
func (d *Device) Requests() []wire.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]wire.Request, len(d.requests))
	copy(out, d.requests)
	return out
}

// RequestCount counts received requests matching a method and parameter
// name. An empty selector matches everything.
func (d *Device) RequestCount(method wire.Method, param string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.requests {
		if method != "" && r.Method != method {
			continue
		}
		if param != "" && r.Params.Param != param {
			continue
		}
		n++
	}
	return n
}

// dropConn forgets a closed connection's subscriptions.
func (d *Device) dropConn(conn *transport.ServerConn) {
	d.mu.Lock()
	delete(d.subs, conn)
	d.mu.Unlock()
}

// handleFrame services one request frame from a client connection.
func (d *Device) handleFrame(conn *transport.ServerConn, frame []byte) {
	req, err := wire.DecodeRequest(frame)
	if err != nil {
		d.reply(conn, wire.ErrorResponse(wire.UncorrelatedID, wire.CodeParseError, "malformed request"), 0)
		return
	}

	d.mu.Lock()
	d.requests = append(d.requests, *req)
	d.mu.Unlock()

	behavior := d.def.Behaviors[req.Params.Param]
	if behavior.Drop {
		return
	}

	resp, notice := d.respond(conn, req)
	d.reply(conn, resp, d.delay+behavior.delay())
	if notice != nil {
		d.report(notice.targets, notice.param, notice.value)
	}
}

// reportNotice carries a parameter change out of the device lock to the
// subscribed connections.
type reportNotice struct {
	targets []*transport.ServerConn
	param   string
	value   int
}

// respond mutates the parameter tables and builds the response.
func (d *Device) respond(conn *transport.ServerConn, req *wire.Request) (*wire.Response, *reportNotice) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := req.Params.Param
	if b, ok := d.def.Behaviors[p]; ok && b.ErrorCode != 0 {
		msg := b.ErrorMessage
		if msg == "" {
			msg = wire.CodeText(b.ErrorCode)
		}
		return wire.ErrorResponse(req.ID, b.ErrorCode, msg), nil
	}

	switch req.Method {
	case wire.MethodGet:
		if s, ok := d.texts[p]; ok {
			return d.result(req.ID, s), nil
		}
		if v, ok := d.params[p]; ok {
			return d.result(req.ID, v), nil
		}
		return wire.ErrorResponse(req.ID, wire.CodeInvalidParams, "unknown parameter"), nil

	case wire.MethodSet:
		if _, ok := d.params[p]; !ok {
			return wire.ErrorResponse(req.ID, wire.CodeInvalidParams, "unknown parameter"), nil
		}
		var v int
		switch {
		case req.Params.Pct != nil:
			v = *req.Params.Pct
		case req.Params.Val != nil:
			v = *req.Params.Val
		default:
			return wire.ErrorResponse(req.ID, wire.CodeInvalidParams, "missing value"), nil
		}
		v = clamp(p, v)
		d.params[p] = v
		return d.result(req.ID, v), d.noticeLocked(p, v)

	case wire.MethodBump:
		if _, ok := d.params[p]; !ok {
			return wire.ErrorResponse(req.ID, wire.CodeInvalidParams, "unknown parameter"), nil
		}
		if req.Params.Val == nil {
			return wire.ErrorResponse(req.ID, wire.CodeInvalidParams, "missing delta"), nil
		}
		v := clamp(p, d.params[p]+*req.Params.Val)
		d.params[p] = v
		return d.result(req.ID, v), d.noticeLocked(p, v)

	case wire.MethodSubscribe:
		v, ok := d.params[p]
		if !ok {
			return wire.ErrorResponse(req.ID, wire.CodeInvalidParams, "unknown parameter"), nil
		}
		set := d.subs[conn]
		if set == nil {
			set = make(map[string]bool)
			d.subs[conn] = set
		}
		set[p] = true
		// Subscribe acks with the current value, a priming read.
		return d.result(req.ID, v), nil

	case wire.MethodUnsubscribe:
		if set := d.subs[conn]; set != nil {
			delete(set, p)
		}
		return d.result(req.ID, 0), nil

	default:
		return wire.ErrorResponse(req.ID, wire.CodeMethodNotFound, "unknown method"), nil
	}
}

// result builds a success response.
func (d *Device) result(id int64, v any) *wire.Response {
	resp, err := wire.ResultResponse(id, v)
	if err != nil {
		return wire.ErrorResponse(id, wire.CodeInternalError, "encode failure")
	}
	return resp
}

// clamp bounds gain parameters to the 0..100 device range and normalizes
// mute parameters to 0 or 1. Source selectors are stored as-is.
func clamp(param string, v int) int {
	switch {
	case strings.Contains(param, "Gain"):
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
	case strings.HasPrefix(param, "ZoneMute_"):
		if v != 0 {
			return 1
		}
		return 0
	}
	return v
}

func (d *Device) noticeLocked(param string, value int) *reportNotice {
	targets := d.subscribersLocked(param)
	if len(targets) == 0 {
		return nil
	}
	return &reportNotice{targets: targets, param: param, value: value}
}

func (d *Device) subscribersLocked(param string) []*transport.ServerConn {
	var targets []*transport.ServerConn
	for conn, set := range d.subs {
		if set[param] {
			targets = append(targets, conn)
		}
	}
	return targets
}

// report pushes an unsolicited change report to subscribed connections.
func (d *Device) report(targets []*transport.ServerConn, param string, value int) {
	if len(targets) == 0 {
		return
	}
	frame, err := wire.EncodeReport(&wire.Request{
		JSONRPC: wire.Version,
		Method:  wire.MethodSubscribe,
		Params:  wire.ValParams(param, value),
		ID:      wire.UncorrelatedID,
	})
	if err != nil {
		return
	}
	for _, conn := range targets {
		// Best effort; the connection may be mid-close.
		_ = conn.Send(frame)
	}
}

// reply sends a response frame, optionally after a delay. Delayed
// responses run on their own goroutine, so a later request can answer
// first, exactly as a busy processor behaves.
func (d *Device) reply(conn *transport.ServerConn, resp *wire.Response, delay time.Duration) {
	frame, err := wire.EncodeResponse(resp)
	if err != nil {
		return
	}
	if delay > 0 {
		go func() {
			time.Sleep(delay)
			_ = conn.Send(frame)
		}()
		return
	}
	_ = conn.Send(frame)
}
