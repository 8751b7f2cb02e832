package wire

// JSON-RPC error codes used by AZM firmware. The standard codes cover
// malformed traffic; the device reports unknown or read-only parameters as
// invalid params.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeDeviceBusy is returned while the DSP is reloading its preset.
	CodeDeviceBusy = -32000
)

// CodeText returns a short name for an error code, or "unknown" for codes
// this package does not know about.
func CodeText(code int) string {
	switch code {
	case CodeParseError:
		return "parse error"
	case CodeInvalidRequest:
		return "invalid request"
	case CodeMethodNotFound:
		return "method not found"
	case CodeInvalidParams:
		return "invalid params"
	case CodeInternalError:
		return "internal error"
	case CodeDeviceBusy:
		return "device busy"
	default:
		return "unknown"
	}
}
