package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/azm-tools/azm-go/pkg/log"
	"github.com/azm-tools/azm-go/pkg/wire"
)

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 5, 123456000, time.UTC)
	data := []byte(`{"jsonrpc":"2.0","method":"get","params":{"param":"ZoneGain_0"},"id":3}`)
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c-5b4a-3928-1706-fedcba987654",
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size: len(data) + 2,
			Data: data,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Check timestamp format
	if !strings.Contains(output, "2026-07-14T18:30:05.123456Z") {
		t.Errorf("expected microsecond timestamp, got: %s", output)
	}

	// Check connection ID (shortened)
	if !strings.Contains(output, "[conn:9f8e7d6c]") {
		t.Errorf("expected shortened connection ID, got: %s", output)
	}

	// Check direction
	if !strings.Contains(output, "OUT") {
		t.Errorf("expected OUT direction, got: %s", output)
	}

	// Check layer
	if !strings.Contains(output, "TRANSPORT") {
		t.Errorf("expected TRANSPORT layer, got: %s", output)
	}

	// Check frame info; JSON payloads print verbatim
	if !strings.Contains(output, "Frame") {
		t.Errorf("expected Frame label, got: %s", output)
	}
	if !strings.Contains(output, `"param":"ZoneGain_0"`) {
		t.Errorf("expected JSON payload text, got: %s", output)
	}
}

func TestFormatFrameEventBinaryData(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 5, 0, time.UTC)
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c",
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size: 5,
			Data: []byte{0x00, 0x01, 0xff},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Non-printable payloads fall back to hex
	if !strings.Contains(output, "0001ff") {
		t.Errorf("expected hex-encoded payload, got: %s", output)
	}
}

func TestFormatMessageEventRequest(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 5, 123456000, time.UTC)
	pct := 65
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c-5b4a-3928-1706-fedcba987654",
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:   log.MessageTypeRequest,
			ID:     12,
			Method: wire.MethodSet,
			Param:  "ZoneGain_2",
			Pct:    &pct,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Check message type
	if !strings.Contains(output, "REQUEST") {
		t.Errorf("expected REQUEST type, got: %s", output)
	}

	// Check correlation ID
	if !strings.Contains(output, "ID: 12") {
		t.Errorf("expected ID: 12, got: %s", output)
	}

	// Check method and parameter
	if !strings.Contains(output, "Method: set") {
		t.Errorf("expected Method: set, got: %s", output)
	}
	if !strings.Contains(output, "ZoneGain_2") {
		t.Errorf("expected ZoneGain_2 parameter, got: %s", output)
	}

	// Check pct argument
	if !strings.Contains(output, "Pct: 65") {
		t.Errorf("expected Pct: 65, got: %s", output)
	}
}

func TestFormatMessageEventResponse(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 5, 125789000, time.UTC)
	processingTime := 2333 * time.Microsecond
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c-5b4a-3928-1706-fedcba987654",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:           log.MessageTypeResponse,
			ID:             12,
			Result:         `"OK"`,
			ProcessingTime: &processingTime,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Check message type
	if !strings.Contains(output, "RESPONSE") {
		t.Errorf("expected RESPONSE type, got: %s", output)
	}

	// Check result
	if !strings.Contains(output, `Result: "OK"`) {
		t.Errorf("expected Result, got: %s", output)
	}

	// Check duration
	if !strings.Contains(output, "Duration:") {
		t.Errorf("expected Duration, got: %s", output)
	}
}

func TestFormatMessageEventDeviceError(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 6, 0, time.UTC)
	code := -32602
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:         log.MessageTypeResponse,
			ID:           13,
			ErrorCode:    &code,
			ErrorMessage: "invalid params",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Error: invalid params (-32602)") {
		t.Errorf("expected device error details, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 4, 0, time.UTC)
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c-5b4a-3928-1706-fedcba987654",
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: "",
			NewState: "CONNECTED",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Check category
	if !strings.Contains(output, "State") {
		t.Errorf("expected State category, got: %s", output)
	}

	// Check entity
	if !strings.Contains(output, "CONNECTION") {
		t.Errorf("expected CONNECTION entity, got: %s", output)
	}

	// Check new state
	if !strings.Contains(output, "-> CONNECTED") {
		t.Errorf("expected CONNECTED state, got: %s", output)
	}
}

func TestFormatProbeStateChange(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 7, 0, time.UTC)
	zone := 1
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c",
		Direction:    log.DirectionOut,
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		Zone:         &zone,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityProbe,
			OldState: "PROBING",
			NewState: "COMPLETE",
			Reason:   "2 outputs mapped",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "PROBE") {
		t.Errorf("expected PROBE entity, got: %s", output)
	}
	if !strings.Contains(output, "PROBING -> COMPLETE") {
		t.Errorf("expected state transition, got: %s", output)
	}
	if !strings.Contains(output, "Reason: 2 outputs mapped") {
		t.Errorf("expected reason, got: %s", output)
	}
	if !strings.Contains(output, "Zone: 1") {
		t.Errorf("expected zone context line, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 30, 9, 0, time.UTC)
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "9f8e7d6c",
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		Error: &log.ErrorEvent{
			Layer:   log.LayerWire,
			Message: "unmatched response id 9",
			Context: "dispatch",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Error") {
		t.Errorf("expected Error label, got: %s", output)
	}
	if !strings.Contains(output, "unmatched response id 9") {
		t.Errorf("expected error message, got: %s", output)
	}
	if !strings.Contains(output, "Context: dispatch") {
		t.Errorf("expected error context, got: %s", output)
	}
}

func TestFilterByLayer(t *testing.T) {
	events := []log.Event{
		{Layer: log.LayerTransport, Category: log.CategoryMessage},
		{Layer: log.LayerWire, Category: log.CategoryMessage},
		{Layer: log.LayerService, Category: log.CategoryMessage},
	}

	wireLayer := log.LayerWire
	filter := ViewFilter{Layer: &wireLayer}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Layer != log.LayerWire {
		t.Errorf("expected wire layer, got %v", filtered[0].Layer)
	}
}

func TestFilterByDirection(t *testing.T) {
	events := []log.Event{
		{Direction: log.DirectionIn, Category: log.CategoryMessage},
		{Direction: log.DirectionOut, Category: log.CategoryMessage},
		{Direction: log.DirectionIn, Category: log.CategoryMessage},
	}

	out := log.DirectionOut
	filter := ViewFilter{Direction: &out}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Direction != log.DirectionOut {
		t.Errorf("expected out direction, got %v", filtered[0].Direction)
	}
}

func TestFilterByCategory(t *testing.T) {
	events := []log.Event{
		{Category: log.CategoryMessage},
		{Category: log.CategoryState},
		{Category: log.CategoryError},
	}

	state := log.CategoryState
	filter := ViewFilter{Category: &state}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Category != log.CategoryState {
		t.Errorf("expected state category, got %v", filtered[0].Category)
	}
}

func TestFilterByZone(t *testing.T) {
	z0, z2 := 0, 2
	events := []log.Event{
		{Zone: &z0, Category: log.CategoryMessage},
		{Zone: &z2, Category: log.CategoryMessage},
		{Category: log.CategoryMessage}, // no zone context
	}

	want := 2
	filter := ViewFilter{Zone: &want}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Zone == nil || *filtered[0].Zone != 2 {
		t.Errorf("expected zone 2, got %v", filtered[0].Zone)
	}
}

func TestFilterByParam(t *testing.T) {
	events := []log.Event{
		{Category: log.CategoryMessage, Message: &log.MessageEvent{Param: "ZoneGain_0"}},
		{Category: log.CategoryMessage, Message: &log.MessageEvent{Param: "ZoneMute_0"}},
		{Category: log.CategoryState}, // no message
	}

	filter := ViewFilter{Param: "ZoneMute_0"}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Message.Param != "ZoneMute_0" {
		t.Errorf("expected ZoneMute_0, got %s", filtered[0].Message.Param)
	}
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Layer
		wantErr  bool
	}{
		{"transport", log.LayerTransport, false},
		{"TRANSPORT", log.LayerTransport, false},
		{"wire", log.LayerWire, false},
		{"service", log.LayerService, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		got, err := parseLayer(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLayer(%q) expected error", tt.input)
			}
		} else {
			if err != nil {
				t.Errorf("parseLayer(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("parseLayer(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Direction
		wantErr  bool
	}{
		{"in", log.DirectionIn, false},
		{"IN", log.DirectionIn, false},
		{"out", log.DirectionOut, false},
		{"OUT", log.DirectionOut, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		got, err := parseDirection(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDirection(%q) expected error", tt.input)
			}
		} else {
			if err != nil {
				t.Errorf("parseDirection(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("parseDirection(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Category
		wantErr  bool
	}{
		{"message", log.CategoryMessage, false},
		{"MESSAGE", log.CategoryMessage, false},
		{"state", log.CategoryState, false},
		{"error", log.CategoryError, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCategory(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseCategory(%q) expected error", tt.input)
			}
		} else {
			if err != nil {
				t.Errorf("parseCategory(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("parseCategory(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		}
	}
}
