package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultAttemptTimeout bounds each reconnection dial.
const DefaultAttemptTimeout = 15 * time.Second

// Supervisor errors.
var (
	// ErrSupervisorClosed is returned by Connect after Close.
	ErrSupervisorClosed = errors.New("supervisor is closed")

	// ErrAlreadyConnected is returned by Connect in the connected and
	// connecting states.
	ErrAlreadyConnected = errors.New("already connected")
)

// State represents the supervised link state.
type State uint8

const (
	// StateDisconnected indicates no active link and no reconnection
	// in progress.
	StateDisconnected State = iota

	// StateConnecting indicates a caller-initiated dial is in
	// progress.
	StateConnecting

	// StateConnected indicates an active link.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in
	// progress.
	StateReconnecting

	// StateClosed indicates the supervisor has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc establishes the underlying connection. The supervisor
// calls it for the initial Connect and for every reconnection attempt.
type ConnectFunc func(ctx context.Context) error

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Backoff paces reconnection attempts. The zero value uses the
	// default pacing.
	Backoff BackoffConfig

	// AttemptTimeout bounds each reconnection dial (default 15s).
	AttemptTimeout time.Duration

	// Logger receives operational log records. nil disables logging.
	Logger *slog.Logger
}

// Supervisor owns the reconnection policy for one processor link: when
// to dial and how fast to retry. It interprets no traffic; the control
// layer reports losses and the supervisor re-dials.
type Supervisor struct {
	mu sync.RWMutex

	state          State
	backoff        *Backoff
	connect        ConnectFunc
	autoReconnect  bool
	attemptTimeout time.Duration
	logger         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Signals the reconnect loop that a loss was reported.
	kick chan struct{}

	onStateChange    func(oldState, newState State)
	onConnected      func()
	onConnectionLost func(cause error)
	onReconnecting   func(attempt int, delay time.Duration)
}

// NewSupervisor creates a supervisor around a connect function with
// auto-reconnect enabled. Call Start to run the reconnection loop.
func NewSupervisor(connect ConnectFunc, config SupervisorConfig) *Supervisor {
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultAttemptTimeout
	}
	backoff := NewBackoff()
	if config.Backoff != (BackoffConfig{}) {
		backoff = NewBackoffWithConfig(config.Backoff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		state:          StateDisconnected,
		backoff:        backoff,
		connect:        connect,
		autoReconnect:  true,
		attemptTimeout: config.AttemptTimeout,
		logger:         config.Logger,
		ctx:            ctx,
		cancel:         cancel,
		kick:           make(chan struct{}, 1),
	}
}

// State returns the current link state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the link is up.
func (s *Supervisor) IsConnected() bool {
	return s.State() == StateConnected
}

// SetAutoReconnect enables or disables reconnection on reported
// losses.
func (s *Supervisor) SetAutoReconnect(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReconnect = enabled
}

// Attempts returns the reconnection attempts since the last successful
// connection.
func (s *Supervisor) Attempts() int {
	return s.backoff.Attempts()
}

// Connect dials once on the caller's behalf.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrSupervisorClosed
	case StateConnected, StateConnecting:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	old := s.state
	s.state = StateConnecting
	s.mu.Unlock()
	s.notifyState(old, StateConnecting)

	if err := s.connect(ctx); err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		s.notifyState(StateConnecting, StateDisconnected)
		return err
	}

	s.mu.Lock()
	s.state = StateConnected
	s.mu.Unlock()
	s.backoff.Reset()
	s.notifyState(StateConnecting, StateConnected)
	s.notifyConnected()
	return nil
}

// Disconnect records a deliberate disconnect. A deliberate stop stays
// stopped: the supervisor will not redial until the next Connect, and
// a reconnection already in progress is called off.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	if s.state != StateConnected && s.state != StateReconnecting {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = StateDisconnected
	s.mu.Unlock()
	s.notifyState(old, StateDisconnected)
}

// ConnectionLost reports that an established link dropped. With
// auto-reconnect enabled the supervisor moves to RECONNECTING and
// starts dialing; otherwise it rests at DISCONNECTED.
func (s *Supervisor) ConnectionLost(cause error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	auto := s.autoReconnect
	next := StateDisconnected
	if auto {
		next = StateReconnecting
	}
	s.state = next
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Warn("connection lost", "error", cause, "reconnect", auto)
	}
	s.notifyState(StateConnected, next)
	s.notifyConnectionLost(cause)
	if auto {
		s.kickReconnect()
	}
}

// Start runs the background reconnection loop. Must be called once
// before reported losses will reconnect.
func (s *Supervisor) Start() {
	s.wg.Add(1)
	go s.reconnectLoop()
}

// Close shuts the supervisor down and stops any reconnection in
// progress.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = StateClosed
	s.mu.Unlock()

	s.notifyState(old, StateClosed)
	s.cancel()
	s.wg.Wait()
}

// kickReconnect wakes the reconnect loop. A pending wake is enough.
func (s *Supervisor) kickReconnect() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Supervisor) reconnectLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.kick:
			s.redial()
		}
	}
}

// redial dials with backoff until the link is up or the reconnection
// is called off.
func (s *Supervisor) redial() {
	for {
		if s.State() != StateReconnecting {
			return
		}

		delay := s.backoff.Next()
		attempt := s.backoff.Attempts()
		s.notifyReconnecting(attempt, delay)
		if s.logger != nil {
			s.logger.Info("reconnecting", "attempt", attempt, "delay", delay)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}

		if s.State() != StateReconnecting {
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, s.attemptTimeout)
		err := s.connect(ctx)
		cancel()
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("reconnect failed", "attempt", attempt, "error", err)
			}
			continue
		}

		s.mu.Lock()
		if s.state != StateReconnecting {
			// Disconnect or Close won the race against the dial.
			s.mu.Unlock()
			return
		}
		s.state = StateConnected
		s.mu.Unlock()

		s.backoff.Reset()
		s.notifyState(StateReconnecting, StateConnected)
		s.notifyConnected()
		if s.logger != nil {
			s.logger.Info("reconnected", "attempts", attempt)
		}
		return
	}
}

// OnStateChange sets a callback for state transitions.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnConnected sets a callback for established links, initial and
// re-established alike.
func (s *Supervisor) OnConnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnected = fn
}

// OnConnectionLost sets a callback for reported losses.
func (s *Supervisor) OnConnectionLost(fn func(cause error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnectionLost = fn
}

// OnReconnecting sets a callback invoked before each reconnection
// delay.
func (s *Supervisor) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnecting = fn
}

func (s *Supervisor) notifyState(oldState, newState State) {
	s.mu.RLock()
	fn := s.onStateChange
	s.mu.RUnlock()
	if fn != nil {
		fn(oldState, newState)
	}
}

func (s *Supervisor) notifyConnected() {
	s.mu.RLock()
	fn := s.onConnected
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Supervisor) notifyConnectionLost(cause error) {
	s.mu.RLock()
	fn := s.onConnectionLost
	s.mu.RUnlock()
	if fn != nil {
		fn(cause)
	}
}

func (s *Supervisor) notifyReconnecting(attempt int, delay time.Duration) {
	s.mu.RLock()
	fn := s.onReconnecting
	s.mu.RUnlock()
	if fn != nil {
		fn(attempt, delay)
	}
}
