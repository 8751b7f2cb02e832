package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/azm-tools/azm-go/pkg/log"
	"github.com/azm-tools/azm-go/pkg/wire"
)

// DefaultCommandTimeout is the default wait for a correlated response.
const DefaultCommandTimeout = 7 * time.Second

// Dispatcher errors.
var (
	// ErrCommandTimeout indicates no response arrived within the
	// command timeout. The request may still have taken effect on the
	// device.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrDispatcherClosed indicates the dispatcher was closed before or
	// while the request was in flight.
	ErrDispatcherClosed = errors.New("dispatcher is closed")

	// ErrNotBound indicates no connection has been bound yet.
	ErrNotBound = errors.New("dispatcher not bound to a connection")

	// ErrProtocolParse tags received frames that were not valid
	// JSON-RPC. Parse failures are non-fatal: the frame is dropped and
	// the connection stays up.
	ErrProtocolParse = errors.New("protocol parse error")
)

// Sender is the interface for sending encoded frames over a connection.
type Sender interface {
	Send(data []byte) error
}

// settled carries the single outcome of a pending request.
type settled struct {
	resp *wire.Response
	err  error
}

// pendingCall tracks one in-flight request.
type pendingCall struct {
	ch     chan settled
	sentAt time.Time
}

// Dispatcher correlates JSON-RPC requests with their responses over a
// single connection.
type Dispatcher struct {
	mu            sync.RWMutex
	sender        Sender
	timeout       time.Duration
	reportHandler func(*wire.Request)

	// Message ID generator
	nextID atomic.Int64

	// Pending requests awaiting responses
	pendingMu sync.Mutex
	pending   map[int64]*pendingCall
	closed    bool

	// Counters for non-fatal protocol events
	unmatched   atomic.Int64
	parseErrors atomic.Int64

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewDispatcher creates a dispatcher. sender may be nil when the
// connection is established afterwards, see Bind.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: DefaultCommandTimeout,
		pending: make(map[int64]*pendingCall),
	}
}

// Bind attaches the connection used to send requests. It is typically
// called right after a dial that received this dispatcher as its frame
// handler.
func (d *Dispatcher) Bind(sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sender = sender
}

// SetTimeout sets the default command timeout.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = timeout
}

// SetLogger configures protocol capture for this dispatcher.
// Pass nil to disable logging.
func (d *Dispatcher) SetLogger(logger log.Logger, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = logger
	d.connID = connID
}

// SetReportHandler sets the handler for unsolicited change reports.
// The handler runs on the connection's read goroutine and must not
// block on operations that wait for further frames.
func (d *Dispatcher) SetReportHandler(handler func(*wire.Request)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reportHandler = handler
}

// Stats reports counters for non-fatal protocol events.
type Stats struct {
	// Unmatched counts responses whose id matched no pending request.
	Unmatched int64

	// ParseErrors counts received frames that were not valid JSON-RPC.
	ParseErrors int64
}

// Stats returns the current protocol event counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Unmatched:   d.unmatched.Load(),
		ParseErrors: d.parseErrors.Load(),
	}
}

// Pending returns the number of requests awaiting a response.
func (d *Dispatcher) Pending() int {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	return len(d.pending)
}

// Close settles all pending requests with ErrDispatcherClosed.
// Subsequent calls fail immediately.
func (d *Dispatcher) Close() error {
	d.HandleClose(nil)
	return nil
}

// nextMessageID generates the next unique message id. Ids start at 1
// and increase strictly, id 0 is reserved for uncorrelated messages.
func (d *Dispatcher) nextMessageID() int64 {
	return d.nextID.Add(1)
}

// Call sends a request and waits for the matching response using the
// default command timeout. The response is returned as-is: a device
// error response is not converted into a Go error. Most callers want
// the typed helpers (Get, Set, SetVal, Bump) instead.
func (d *Dispatcher) Call(ctx context.Context, method wire.Method, params wire.Params) (*wire.Response, error) {
	d.mu.RLock()
	timeout := d.timeout
	d.mu.RUnlock()
	return d.CallTimeout(ctx, method, params, timeout)
}

// CallTimeout is Call with a per-request timeout override.
func (d *Dispatcher) CallTimeout(ctx context.Context, method wire.Method, params wire.Params, timeout time.Duration) (*wire.Response, error) {
	req := wire.NewRequest(d.nextMessageID(), method, params)
	return d.send(ctx, req, timeout)
}

// Get reads the current value of a parameter.
func (d *Dispatcher) Get(ctx context.Context, param string) (*wire.Response, error) {
	return d.call(ctx, wire.MethodGet, wire.Params{Param: param})
}

// Set sets a parameter to a percentage value (0-100).
func (d *Dispatcher) Set(ctx context.Context, param string, pct int) (*wire.Response, error) {
	return d.call(ctx, wire.MethodSet, wire.PctParams(param, pct))
}

// SetVal sets a parameter to a raw integer value.
func (d *Dispatcher) SetVal(ctx context.Context, param string, val int) (*wire.Response, error) {
	return d.call(ctx, wire.MethodSet, wire.ValParams(param, val))
}

// Bump adjusts a parameter by a signed relative step.
func (d *Dispatcher) Bump(ctx context.Context, param string, delta int) (*wire.Response, error) {
	return d.call(ctx, wire.MethodBump, wire.ValParams(param, delta))
}

// Subscribe registers for unsolicited change reports on a parameter.
func (d *Dispatcher) Subscribe(ctx context.Context, param string) (*wire.Response, error) {
	return d.call(ctx, wire.MethodSubscribe, wire.Params{Param: param})
}

// Unsubscribe cancels change reports for a parameter.
func (d *Dispatcher) Unsubscribe(ctx context.Context, param string) (*wire.Response, error) {
	return d.call(ctx, wire.MethodUnsubscribe, wire.Params{Param: param})
}

// call issues a request and converts a device error response into an
// error return.
func (d *Dispatcher) call(ctx context.Context, method wire.Method, params wire.Params) (*wire.Response, error) {
	resp, err := d.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp, nil
}

// send registers the request as pending, transmits it, and waits for
// settlement. Whichever of response, timeout, context cancellation, or
// close wins removes the pending entry under the lock, so the request
// settles exactly once.
func (d *Dispatcher) send(ctx context.Context, req *wire.Request, timeout time.Duration) (*wire.Response, error) {
	d.mu.RLock()
	sender := d.sender
	d.mu.RUnlock()

	if sender == nil {
		return nil, ErrNotBound
	}

	// Encode before registering so a malformed request never occupies
	// a pending slot.
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	call := &pendingCall{
		ch:     make(chan settled, 1),
		sentAt: time.Now(),
	}

	d.pendingMu.Lock()
	if d.closed {
		d.pendingMu.Unlock()
		return nil, ErrDispatcherClosed
	}
	d.pending[req.ID] = call
	d.pendingMu.Unlock()

	d.logRequest(req)

	if err := sender.Send(data); err != nil {
		d.take(req.ID)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-call.ch:
		return s.resp, s.err

	case <-timer.C:
		if _, ok := d.take(req.ID); ok {
			return nil, fmt.Errorf("%w: %s %q (id %d) after %v", ErrCommandTimeout, req.Method, req.Params.Param, req.ID, timeout)
		}
		// A settlement raced the timeout and won, honor it.
		s := <-call.ch
		return s.resp, s.err

	case <-ctx.Done():
		if _, ok := d.take(req.ID); ok {
			return nil, ctx.Err()
		}
		s := <-call.ch
		return s.resp, s.err
	}
}

// take removes and returns the pending entry for id. Only the caller
// that successfully takes an entry may settle it.
func (d *Dispatcher) take(id int64) (*pendingCall, bool) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	call, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	return call, ok
}

// HandleFrame decodes a received frame and settles the matching pending
// request. Implements the transport frame handler.
func (d *Dispatcher) HandleFrame(frame []byte) {
	msgType, err := wire.PeekMessageType(frame)
	if err != nil {
		d.recordParseError(err, frame)
		return
	}

	switch msgType {
	case wire.MessageTypeRequest:
		// Request-shaped frames from the device are unsolicited
		// change reports.
		report, err := wire.DecodeReport(frame)
		if err != nil {
			d.recordParseError(err, frame)
			return
		}
		d.handleReport(report)

	case wire.MessageTypeResponse:
		resp, err := wire.DecodeResponse(frame)
		if err != nil {
			d.recordParseError(err, frame)
			return
		}
		if resp.ID == wire.UncorrelatedID {
			d.recordUnmatched(resp)
			return
		}
		d.settle(resp)

	default:
		d.recordParseError(fmt.Errorf("%w: frame is neither request nor response", ErrProtocolParse), frame)
	}
}

// HandleClose settles every pending request with the close cause.
// Implements the transport close handler. cause nil (local close) maps
// to ErrDispatcherClosed.
func (d *Dispatcher) HandleClose(cause error) {
	d.pendingMu.Lock()
	if d.closed {
		d.pendingMu.Unlock()
		return
	}
	d.closed = true
	pending := d.pending
	d.pending = make(map[int64]*pendingCall)
	d.pendingMu.Unlock()

	err := cause
	if err == nil {
		err = ErrDispatcherClosed
	}

	for _, call := range pending {
		call.ch <- settled{err: err}
	}
}

// settle delivers a response to its waiting caller.
func (d *Dispatcher) settle(resp *wire.Response) {
	call, ok := d.take(resp.ID)
	if !ok {
		d.recordUnmatched(resp)
		return
	}

	d.logResponse(resp, time.Since(call.sentAt))

	call.ch <- settled{resp: resp}
}

// handleReport routes an unsolicited change report to the handler.
func (d *Dispatcher) handleReport(report *wire.Request) {
	d.mu.RLock()
	handler := d.reportHandler
	d.mu.RUnlock()

	if handler != nil {
		handler(report)
	}
}

// recordUnmatched counts and logs a response with no pending request.
func (d *Dispatcher) recordUnmatched(resp *wire.Response) {
	d.unmatched.Add(1)

	logger, connID := d.captureLogger()
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		Error: &log.ErrorEvent{
			Layer:   log.LayerWire,
			Message: fmt.Sprintf("unmatched response id %d", resp.ID),
			Context: "dispatch",
		},
	})
}

// recordParseError counts and logs a frame that failed to decode.
func (d *Dispatcher) recordParseError(err error, frame []byte) {
	d.parseErrors.Add(1)

	logger, connID := d.captureLogger()
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		Error: &log.ErrorEvent{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: fmt.Sprintf("decode (%d bytes)", len(frame)),
		},
	})
}

// logRequest emits a wire-layer capture event for an outbound request.
func (d *Dispatcher) logRequest(req *wire.Request) {
	logger, connID := d.captureLogger()
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:   log.MessageTypeRequest,
			ID:     req.ID,
			Method: req.Method,
			Param:  req.Params.Param,
			Pct:    req.Params.Pct,
			Val:    req.Params.Val,
		},
	})
}

// logResponse emits a wire-layer capture event for a matched response.
func (d *Dispatcher) logResponse(resp *wire.Response, elapsed time.Duration) {
	logger, connID := d.captureLogger()
	if logger == nil {
		return
	}

	msg := &log.MessageEvent{
		Type:           log.MessageTypeResponse,
		ID:             resp.ID,
		Result:         string(resp.Result),
		ProcessingTime: &elapsed,
	}
	if resp.Error != nil {
		code := resp.Error.Code
		msg.ErrorCode = &code
		msg.ErrorMessage = resp.Error.Message
	}

	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message:      msg,
	})
}

func (d *Dispatcher) captureLogger() (log.Logger, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.logger, d.connID
}
