package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Version is the fixed value of the "jsonrpc" field.
const Version = "2.0"

// Request id 0 is never assigned. A response carrying id 0 (or a JSON null
// id, which decodes to 0) cannot be correlated to a pending request.
const UncorrelatedID int64 = 0

// ErrNoResult is returned by result accessors when the response carries
// neither a result nor an error object.
var ErrNoResult = errors.New("response has no result")

// Params is the single-parameter argument object every AZM request carries.
//
// Exactly one of Pct and Val may be set. Pct is used for percentage-scaled
// parameters (gains), Val for raw integers (mute flags, source indices,
// bump deltas). Both are pointers because 0 is a meaningful argument.
type Params struct {
	Param string `json:"param"`
	Pct   *int   `json:"pct,omitempty"`
	Val   *int   `json:"val,omitempty"`
}

// PctParams returns params addressing name with a percentage argument.
func PctParams(name string, pct int) Params {
	p := pct
	return Params{Param: name, Pct: &p}
}

// ValParams returns params addressing name with a raw integer argument.
func ValParams(name string, val int) Params {
	v := val
	return Params{Param: name, Val: &v}
}

// Request represents a JSON-RPC request from client to device.
//
// Wire encoding (field order is fixed):
//
//	{"jsonrpc":"2.0","method":"set","params":{"param":"ZoneGain_2","pct":65},"id":12}
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  Method `json:"method"`
	Params  Params `json:"params"`
	ID      int64  `json:"id"`
}

// NewRequest builds a request with the version field populated.
func NewRequest(id int64, method Method, params Params) *Request {
	return &Request{JSONRPC: Version, Method: method, Params: params, ID: id}
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("jsonrpc version %q, want %q", r.JSONRPC, Version)
	}
	if !r.Method.IsValid() {
		return fmt.Errorf("invalid method: %q", r.Method)
	}
	if r.Params.Param == "" {
		return fmt.Errorf("missing param name")
	}
	if r.ID <= UncorrelatedID {
		return fmt.Errorf("id must be positive, got %d", r.ID)
	}
	if r.Params.Pct != nil && r.Params.Val != nil {
		return fmt.Errorf("pct and val are mutually exclusive")
	}
	if p := r.Params.Pct; p != nil && (*p < 0 || *p > 100) {
		return fmt.Errorf("pct %d out of range [0,100]", *p)
	}
	return nil
}

// Response represents a JSON-RPC response from device to client.
//
// Wire encoding:
//
//	{"jsonrpc":"2.0","result":65,"id":12}
//	{"jsonrpc":"2.0","error":{"code":-32602,"message":"unknown parameter"},"id":12}
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *DeviceError    `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// IsSuccess returns true if the response carries no error object.
func (r *Response) IsSuccess() bool {
	return r.Error == nil
}

// Int returns the result as an integer, rounding fractional values.
func (r *Response) Int() (int, error) {
	f, err := r.Float64()
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// Float64 returns the result as a float. Depending on firmware revision,
// numeric results arrive either as JSON numbers or as numeric strings, so
// both forms are accepted.
func (r *Response) Float64() (float64, error) {
	v, err := r.decodeResult()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("result %q is not numeric", n)
		}
		return f, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("result %s is not numeric", r.Result)
	}
}

// Text returns the result as a string. Non-string results are returned as
// their compact JSON text.
func (r *Response) Text() (string, error) {
	v, err := r.decodeResult()
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return strings.TrimSpace(string(r.Result)), nil
}

func (r *Response) decodeResult() (any, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	if len(r.Result) == 0 {
		return nil, ErrNoResult
	}
	dec := json.NewDecoder(bytes.NewReader(r.Result))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed result: %w", err)
	}
	if v == nil {
		return nil, ErrNoResult
	}
	return v, nil
}

// ResultResponse builds a success response carrying v as the result.
func ResultResponse(id int64, v any) (*Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Response{JSONRPC: Version, Result: raw, ID: id}, nil
}

// ErrorResponse builds an error response.
func ErrorResponse(id int64, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   &DeviceError{Code: code, Message: message},
		ID:      id,
	}
}

// DeviceError is the JSON-RPC error object a device returns when it
// understood the frame but rejected the request: unknown parameter, value
// out of range, unsupported method. It is distinct from transport-level
// failures, which never produce a DeviceError.
type DeviceError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Message)
}
