package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/azm-tools/azm-go/pkg/model"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"Error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil {
			t.Errorf("parseLogLevel(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseLogLevel("verbose"); err == nil {
		t.Error("parseLogLevel accepted an unknown level")
	}
}

func TestProcessorListLookup(t *testing.T) {
	list := &ProcessorList{
		Processors: []ProcessorEntry{
			{Name: "main-bar", Host: "192.168.1.50", Model: "AZM8"},
			{Name: "patio", Host: "192.168.1.51", Model: "AZM4"},
		},
	}

	entry, err := list.lookup("Main-Bar")
	if err != nil {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
	if entry.Host != "192.168.1.50" {
		t.Errorf("lookup returned host %q, want %q", entry.Host, "192.168.1.50")
	}

	if _, err := list.lookup("kitchen"); err == nil {
		t.Error("lookup of unknown name did not fail")
	}

	// Two entries and no name: the caller has to pick.
	if _, err := list.lookup(""); err == nil {
		t.Error("empty lookup in a multi-entry inventory did not fail")
	}

	single := &ProcessorList{Processors: list.Processors[:1]}
	entry, err = single.lookup("")
	if err != nil {
		t.Fatalf("empty lookup in a single-entry inventory failed: %v", err)
	}
	if entry.Name != "main-bar" {
		t.Errorf("single-entry lookup returned %q, want %q", entry.Name, "main-bar")
	}
}

func TestProcessorEntryConversion(t *testing.T) {
	entry := ProcessorEntry{Name: "main-bar", Host: "192.168.1.50", Model: "AZM8"}
	p, err := entry.processor()
	if err != nil {
		t.Fatalf("processor conversion failed: %v", err)
	}
	if p.ZoneCount != 8 {
		t.Errorf("ZoneCount = %d, want 8 (from AZM8)", p.ZoneCount)
	}
	want := "192.168.1.50:" + strconv.Itoa(model.DefaultControlPort)
	if p.Address() != want {
		t.Errorf("Address = %q, want %q", p.Address(), want)
	}

	// An explicit zone count wins over the model.
	entry = ProcessorEntry{Name: "custom", Host: "10.0.0.9", Model: "AZM8", Zones: 6, Port: 6400}
	p, err = entry.processor()
	if err != nil {
		t.Fatalf("processor conversion failed: %v", err)
	}
	if p.ZoneCount != 6 {
		t.Errorf("ZoneCount = %d, want 6 (explicit)", p.ZoneCount)
	}
	if p.ControlPort != 6400 {
		t.Errorf("ControlPort = %d, want 6400", p.ControlPort)
	}

	entry = ProcessorEntry{Name: "mystery", Host: "10.0.0.10", Model: "DSP-9000"}
	if _, err := entry.processor(); err == nil {
		t.Error("unknown model without a zone count did not fail")
	}
}

func TestLoadProcessorList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processors.yaml")
	inventory := `default: main-bar
processors:
  - name: main-bar
    host: 192.168.1.50
    port: 5321
    model: AZM8
  - name: patio
    host: 192.168.1.51
    model: AZM4
`
	if err := os.WriteFile(path, []byte(inventory), 0644); err != nil {
		t.Fatalf("failed to write inventory: %v", err)
	}

	list, err := loadProcessorList(path)
	if err != nil {
		t.Fatalf("loadProcessorList failed: %v", err)
	}
	if list.Default != "main-bar" {
		t.Errorf("Default = %q, want %q", list.Default, "main-bar")
	}
	if len(list.Processors) != 2 {
		t.Fatalf("got %d processors, want 2", len(list.Processors))
	}
	if list.Processors[1].Name != "patio" || list.Processors[1].Model != "AZM4" {
		t.Errorf("second entry = %+v, want patio/AZM4", list.Processors[1])
	}
}

func TestLoadProcessorListErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := loadProcessorList(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file did not fail")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("processors: {not a list}"), 0644)
	if _, err := loadProcessorList(bad); err == nil {
		t.Error("malformed YAML did not fail")
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("processors: []"), 0644)
	_, err := loadProcessorList(empty)
	if err == nil {
		t.Fatal("empty inventory did not fail")
	}
	if !strings.Contains(err.Error(), "no processors") {
		t.Errorf("empty inventory error = %v, want mention of no processors", err)
	}
}

func TestSwitchWriterRedirects(t *testing.T) {
	var first, second bytes.Buffer
	w := &switchWriter{w: &first}

	w.Write([]byte("before"))
	w.SetOutput(&second)
	w.Write([]byte("after"))

	if first.String() != "before" {
		t.Errorf("first writer got %q, want %q", first.String(), "before")
	}
	if second.String() != "after" {
		t.Errorf("second writer got %q, want %q", second.String(), "after")
	}
}
