package log

import (
	"time"

	"github.com/azm-tools/azm-go/pkg/wire"
)

// Event is one capture record. Every event carries the classifiers
// (direction, layer, category) plus exactly one payload; the CBOR
// integer keys below are the .alog format, so they never get renumbered.
type Event struct {
	// Timestamp is when the event was captured, kept at nanosecond
	// precision so request/response gaps stay measurable.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID ties together every event of one dial. The transport
	// assigns a UUID per connection, so captures spanning reconnects
	// still separate cleanly.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction is the message flow relative to the local endpoint.
	Direction Direction `cbor:"3,keyasint"`

	// Layer is where in the stack the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// LocalRole distinguishes client captures from processor captures;
	// the simulator records the same traffic from the other side.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer's IP:port.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Zone is the zone index the event relates to, when the capturing
	// layer knows it. Transport events never do; service events do.
	Zone *int `cbor:"8,keyasint,omitempty"`

	// Exactly one payload is set, matching Category.
	Frame       *FrameEvent       `cbor:"9,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEvent       `cbor:"12,keyasint,omitempty"`
}

// FrameEvent is a raw frame as it crossed the socket, recorded at the
// transport layer before any decoding.
type FrameEvent struct {
	// Size is the full frame size in bytes, CRLF delimiter included.
	Size int `cbor:"1,keyasint"`

	// Data is the frame content. Oversized frames are cut down before
	// capture; Truncated marks those.
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// MessageEvent is a decoded JSON-RPC message, recorded at the wire layer.
// Request fields and response fields share the struct; Type says which
// half is meaningful.
type MessageEvent struct {
	Type MessageType `cbor:"1,keyasint"`

	// ID pairs a request with its response. Reports pushed by the
	// processor carry id 0.
	ID int64 `cbor:"2,keyasint"`

	// Method, Param, Pct and Val mirror the request body.
	Method wire.Method `cbor:"3,keyasint,omitempty"`
	Param  string      `cbor:"4,keyasint,omitempty"`
	Pct    *int        `cbor:"5,keyasint,omitempty"`
	Val    *int        `cbor:"6,keyasint,omitempty"`

	// Result is the response result rendered as compact JSON.
	Result string `cbor:"7,keyasint,omitempty"`

	// ErrorCode and ErrorMessage mirror a response's error object.
	ErrorCode    *int   `cbor:"8,keyasint,omitempty"`
	ErrorMessage string `cbor:"9,keyasint,omitempty"`

	// ProcessingTime is the request's send-to-settle round trip as
	// measured by the dispatcher. Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"10,keyasint,omitempty"`
}

// StateChangeEvent records a lifecycle transition of the connection,
// the control service or an output probe.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState may be empty for the initial transition.
	OldState string `cbor:"2,keyasint,omitempty"`
	NewState string `cbor:"3,keyasint"`

	// Reason is free text, e.g. the error that dropped a connection.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEvent records a failure at any layer, with enough context to
// find the operation it belongs to.
type ErrorEvent struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Code carries a JSON-RPC error code when the failure came from
	// the processor.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context names the operation that failed, e.g. "dispatch".
	Context string `cbor:"4,keyasint,omitempty"`
}

// Direction is the message flow relative to the capturing endpoint.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer is the capture point in the stack.
type Layer uint8

const (
	// LayerTransport captures raw CRLF-delimited frames.
	LayerTransport Layer = 0
	// LayerWire captures decoded JSON-RPC messages.
	LayerWire Layer = 1
	// LayerService captures control-service activity.
	LayerService Layer = 2
)

func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category is the coarse event class.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role is the side of the protocol the capturing endpoint plays.
type Role uint8

const (
	// RoleClient is the controlling side, the usual capture point.
	RoleClient Role = 0
	// RoleProcessor is the device side, used by the simulator.
	RoleProcessor Role = 1
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleProcessor:
		return "PROCESSOR"
	default:
		return "UNKNOWN"
	}
}

// MessageType splits MessageEvent into its request and response halves.
type MessageType uint8

const (
	MessageTypeRequest  MessageType = 0
	MessageTypeResponse MessageType = 1
)

func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// StateEntity is the thing a StateChangeEvent describes.
type StateEntity uint8

const (
	StateEntityConnection StateEntity = 0
	StateEntityService    StateEntity = 1
	StateEntityProbe      StateEntity = 2
)

func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityService:
		return "SERVICE"
	case StateEntityProbe:
		return "PROBE"
	default:
		return "UNKNOWN"
	}
}
