package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/azm-tools/azm-go/pkg/log"
)

func TestStatsCountsByLayer(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerTransport, Category: log.CategoryMessage},
		{Timestamp: ts, Layer: log.LayerTransport, Category: log.CategoryMessage},
		{Timestamp: ts, Layer: log.LayerWire, Category: log.CategoryMessage},
		{Timestamp: ts, Layer: log.LayerService, Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	// Check layer counts
	if !strings.Contains(output, "TRANSPORT:") {
		t.Error("expected TRANSPORT layer in output")
	}
	if !strings.Contains(output, "WIRE:") {
		t.Error("expected WIRE layer in output")
	}
	if !strings.Contains(output, "SERVICE:") {
		t.Error("expected SERVICE layer in output")
	}
}

func TestStatsCountsByCategory(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryMessage},
		{Timestamp: ts, Category: log.CategoryState},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEvent{Message: "test"}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	// Check category counts
	if !strings.Contains(output, "MESSAGE:") {
		t.Error("expected MESSAGE category in output")
	}
	if !strings.Contains(output, "STATE:") {
		t.Error("expected STATE category in output")
	}
	if !strings.Contains(output, "ERROR:") {
		t.Error("expected ERROR category in output")
	}
}

func TestStatsCountsConnections(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-aaaa-bbbb", Category: log.CategoryMessage},
		{Timestamp: ts.Add(time.Second), ConnectionID: "conn-aaaa-bbbb", Category: log.CategoryMessage},
		{Timestamp: ts, ConnectionID: "conn-cccc-dddd", Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	// Check connection count
	if !strings.Contains(output, "Connections: 2") {
		t.Errorf("expected 2 connections in output, got:\n%s", output)
	}

	// Check connection details
	if !strings.Contains(output, "[conn-aaa") {
		t.Error("expected conn-aaaa connection details")
	}
}

func TestStatsTotalEvents(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryMessage},
		{Timestamp: ts, Category: log.CategoryMessage},
		{Timestamp: ts, Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Total Events: 3") {
		t.Errorf("expected 3 total events in output, got:\n%s", output)
	}
}

func TestStatsTimeRange(t *testing.T) {
	start := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 14, 19, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: start, Category: log.CategoryMessage},
		{Timestamp: end, Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Duration:") {
		t.Error("expected Duration in output")
	}
	if !strings.Contains(output, "1h0m0s") {
		t.Errorf("expected 1h0m0s duration in output, got:\n%s", output)
	}
}

func TestStatsErrorCount(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryMessage},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEvent{Message: "error 1"}},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEvent{Message: "error 2"}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Errors: 2") {
		t.Errorf("expected 2 errors in output, got:\n%s", output)
	}
}

func TestStatsBusiestParameters(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryMessage, Message: &log.MessageEvent{Type: log.MessageTypeRequest, Param: "ZoneGain_0"}},
		{Timestamp: ts, Category: log.CategoryMessage, Message: &log.MessageEvent{Type: log.MessageTypeRequest, Param: "ZoneGain_0"}},
		{Timestamp: ts, Category: log.CategoryMessage, Message: &log.MessageEvent{Type: log.MessageTypeRequest, Param: "ZoneMute_1"}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Busiest Parameters:") {
		t.Errorf("expected parameter section in output, got:\n%s", output)
	}
	if !strings.Contains(output, "ZoneGain_0:") {
		t.Errorf("expected ZoneGain_0 in output, got:\n%s", output)
	}

	// Most requested parameter sorts first
	gainIdx := strings.Index(output, "ZoneGain_0:")
	muteIdx := strings.Index(output, "ZoneMute_1:")
	if muteIdx >= 0 && gainIdx > muteIdx {
		t.Errorf("expected ZoneGain_0 before ZoneMute_1, got:\n%s", output)
	}
}

func TestStatsMessageCounts(t *testing.T) {
	ts := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: log.MessageTypeRequest, ID: 1, Param: "ZoneGain_0"}},
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: log.MessageTypeRequest, ID: 2, Param: "ZoneMute_0"}},
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: log.MessageTypeResponse, ID: 1}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Messages: 2 requests, 1 responses") {
		t.Errorf("expected per-connection message counts, got:\n%s", output)
	}
}
