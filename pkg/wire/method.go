package wire

// Method represents a JSON-RPC method understood by the AZM control port.
type Method string

const (
	// MethodGet reads the current value of a parameter.
	MethodGet Method = "get"

	// MethodSet writes a parameter, with either a pct or a val argument.
	MethodSet Method = "set"

	// MethodBump adjusts a parameter by a signed relative val, clamped by
	// the device to the parameter's range.
	MethodBump Method = "bmp"

	// MethodSubscribe registers for unsolicited updates of a parameter.
	MethodSubscribe Method = "sub"

	// MethodUnsubscribe cancels a subscription.
	MethodUnsubscribe Method = "unsub"
)

// String returns the method name as it appears on the wire.
func (m Method) String() string {
	return string(m)
}

// IsValid returns true if the method is one the AZM control port accepts.
func (m Method) IsValid() bool {
	switch m {
	case MethodGet, MethodSet, MethodBump, MethodSubscribe, MethodUnsubscribe:
		return true
	}
	return false
}
