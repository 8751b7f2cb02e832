package wire

import (
	"encoding/json"
	"fmt"
)

// EncodeRequest encodes a request to its frame payload (without the CRLF
// terminator, which the transport appends). Struct field order fixes the
// key order on the wire: jsonrpc, method, params, id.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return json.Marshal(req)
}

// DecodeRequest decodes a frame payload into a request message.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// DecodeReport decodes a device-originated request frame, an unsolicited
// change report. Reports carry id 0 and are not held to client-side
// request validation; only the shape is checked.
func DecodeReport(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if !req.Method.IsValid() {
		return nil, fmt.Errorf("invalid report method: %q", req.Method)
	}
	if req.Params.Param == "" {
		return nil, fmt.Errorf("report missing param name")
	}
	return &req, nil
}

// EncodeReport encodes a device-originated report frame. Reports carry
// id 0, so they bypass the id check applied to client requests; method
// and param name are still required.
func EncodeReport(report *Request) ([]byte, error) {
	if !report.Method.IsValid() {
		return nil, fmt.Errorf("invalid report method: %q", report.Method)
	}
	if report.Params.Param == "" {
		return nil, fmt.Errorf("report missing param name")
	}
	return json.Marshal(report)
}

// EncodeResponse encodes a response to its frame payload.
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a frame payload into a response message. The
// version field is not enforced on inbound responses; some firmware
// revisions omit it.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// MessageType represents the type of a decoded message.
type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeRequest
	MessageTypeResponse
)

// PeekMessageType examines a frame payload to determine the message type
// without fully decoding it.
//
// Detection logic:
//   - Request: has a non-empty "method" key
//   - Response: has a "result" or "error" key
func PeekMessageType(data []byte) (MessageType, error) {
	var peek struct {
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return MessageTypeUnknown, fmt.Errorf("failed to peek message: %w", err)
	}
	if peek.Method != "" {
		return MessageTypeRequest, nil
	}
	if peek.Result != nil || peek.Error != nil {
		return MessageTypeResponse, nil
	}
	return MessageTypeUnknown, nil
}
