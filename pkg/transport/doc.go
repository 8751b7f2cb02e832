// Package transport provides the TCP transport for AZM control
// connections.
//
// The transport layer handles:
//   - TCP connection establishment with classified dial errors
//   - CRLF-delimited JSON frame framing
//   - Asynchronous frame delivery and close notification
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│     JSON-RPC 2.0 Messages      │
//	├────────────────────────────────┤
//	│    CRLF-Delimited Framing      │
//	├────────────────────────────────┤
//	│            TCP                 │
//	└────────────────────────────────┘
//
// # Framing
//
// Each frame is a single JSON document terminated by CR LF. Encoded JSON
// escapes control characters, so the delimiter never appears inside a
// payload. Bare CRLF sequences between frames are skipped on read. A
// line exceeding the frame size limit is discarded through its delimiter
// and reading resumes with the stream in sync.
//
// # Dial Error Classification
//
// Connection failures are mapped onto sentinel errors so callers can
// distinguish a powered-off processor (ErrConnectionTimeout or
// ErrHostUnreachable) from one that is up but not listening
// (ErrConnectionRefused) without matching OS error strings.
package transport
