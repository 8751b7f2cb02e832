package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/azm-tools/azm-go/pkg/log"
)

// DefaultConnectTimeout bounds connection establishment when the caller's
// context carries no deadline.
const DefaultConnectTimeout = 8 * time.Second

// Config configures a Dialer.
type Config struct {
	// ConnectTimeout bounds connection establishment (default: 8s).
	ConnectTimeout time.Duration

	// MaxFrameSize is the maximum frame payload size (default: 64KB).
	MaxFrameSize int

	// Logger for protocol capture (optional).
	Logger log.Logger
}

// DefaultConfig returns the default dialer configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		MaxFrameSize:   DefaultMaxFrameSize,
	}
}

// Handler receives frames and lifecycle events from a Conn. Callbacks are
// invoked from the connection's read goroutine, so they must not block on
// operations that wait for further frames.
type Handler interface {
	// HandleFrame is called once per complete received frame. The frame
	// is valid only for the duration of the call.
	HandleFrame(frame []byte)

	// HandleClose is called exactly once when the connection is closed.
	// cause is nil when the close was locally initiated, and wraps
	// ErrConnectionClosed when the remote end or a read failure closed it.
	HandleClose(cause error)
}

// Dialer establishes framed TCP connections to AZM processors.
type Dialer struct {
	config Config
}

// NewDialer creates a dialer with the given configuration. Zero-value
// fields fall back to defaults.
func NewDialer(config Config) *Dialer {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = DefaultMaxFrameSize
	}
	return &Dialer{config: config}
}

// Dial connects to the given "host:port" address and starts the read loop.
// Dial failures are classified with ClassifyDialError.
func (d *Dialer) Dial(ctx context.Context, address string, handler Handler) (*Conn, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	// Apply timeout from config if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, ClassifyDialError(err)
	}

	connID := uuid.New().String()

	framer := NewFramerWithMaxSize(netConn, d.config.MaxFrameSize)
	if d.config.Logger != nil {
		framer.SetLogger(d.config.Logger, connID)
	}

	c := &Conn{
		conn:       netConn,
		framer:     framer,
		handler:    handler,
		logger:     d.config.Logger,
		connID:     connID,
		remoteAddr: netConn.RemoteAddr(),
		closeCh:    make(chan struct{}),
	}

	c.logStateChange("", "CONNECTED", "")

	go c.readLoop()

	return c, nil
}

// Dial connects with the default configuration.
func Dial(ctx context.Context, address string, handler Handler) (*Conn, error) {
	return NewDialer(DefaultConfig()).Dial(ctx, address, handler)
}

// Conn is a framed TCP connection to a processor. Frames are delivered to
// the Handler from a dedicated read goroutine.
type Conn struct {
	conn       net.Conn
	framer     *Framer
	handler    Handler
	logger     log.Logger
	connID     string
	remoteAddr net.Addr

	closeOnce sync.Once
	closeCh   chan struct{}
}

// ID returns the unique connection identifier.
func (c *Conn) ID() string {
	return c.connID
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Send writes a single frame to the processor.
// Thread-safe: can be called from multiple goroutines.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Close closes the connection. The handler's HandleClose is invoked with a
// nil cause. Subsequent calls are no-ops.
func (c *Conn) Close() error {
	return c.closeWith(nil)
}

// closeWith closes the connection once and reports cause to the handler.
func (c *Conn) closeWith(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()

		reason := ""
		if cause != nil {
			reason = cause.Error()
		}
		c.logStateChange("CONNECTED", "CLOSED", reason)

		c.handler.HandleClose(cause)
	})
	return err
}

// readLoop reads frames until the connection closes.
func (c *Conn) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		frame, err := c.framer.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrFrameTooLarge) {
				// The oversized line was discarded and the stream is
				// back in sync, keep reading.
				c.logError(err)
				continue
			}

			select {
			case <-c.closeCh:
				// Local close in progress, HandleClose already ran.
			default:
				c.closeWith(closeCause(err))
			}
			return
		}

		c.handler.HandleFrame(frame)
	}
}

// closeCause wraps a fatal read error so callers can test for
// ErrConnectionClosed while keeping the underlying detail.
func closeCause(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrConnectionClosed
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
}

// logStateChange emits a connection state transition capture event.
func (c *Conn) logStateChange(oldState, newState, reason string) {
	if c.logger == nil {
		return
	}
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		LocalRole:    log.RoleClient,
		RemoteAddr:   c.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// logError emits a non-fatal transport error capture event.
func (c *Conn) logError(err error) {
	if c.logger == nil {
		return
	}
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		LocalRole:    log.RoleClient,
		RemoteAddr:   c.remoteAddr.String(),
		Error: &log.ErrorEvent{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: "read",
		},
	})
}
