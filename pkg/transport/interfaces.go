package transport

import (
	"context"
	"net"
)

// FrameConn is the client side of a framed connection.
// Implemented by Conn.
type FrameConn interface {
	// ID returns the unique connection identifier.
	ID() string

	// LocalAddr returns the local network address.
	LocalAddr() net.Addr

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr

	// Send writes a single frame.
	Send(data []byte) error

	// Close closes the connection.
	Close() error
}

// FrameServer accepts processor-side connections.
// Implemented by Server.
type FrameServer interface {
	// Start begins accepting connections.
	Start(ctx context.Context) error

	// Stop gracefully stops the server.
	Stop() error

	// Addr returns the server's listen address.
	Addr() net.Addr

	// ConnectionCount returns the number of active connections.
	ConnectionCount() int
}

// FrameReadWriter provides delimiter-framed I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads the next delimited frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes a payload followed by the frame delimiter.
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ FrameConn       = (*Conn)(nil)
	_ FrameServer     = (*Server)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
