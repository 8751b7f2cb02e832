package model

import (
	"errors"
	"testing"
)

func TestProcessorValidate(t *testing.T) {
	tests := []struct {
		name    string
		proc    Processor
		wantErr error
	}{
		{
			name: "valid",
			proc: Processor{Host: "10.1.4.20", ZoneCount: 8},
		},
		{
			name:    "missing host",
			proc:    Processor{ZoneCount: 4},
			wantErr: ErrMissingHost,
		},
		{
			name:    "zero zones",
			proc:    Processor{Host: "10.1.4.20"},
			wantErr: ErrInvalidZoneCount,
		},
		{
			name:    "negative zones",
			proc:    Processor{Host: "10.1.4.20", ZoneCount: -1},
			wantErr: ErrInvalidZoneCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.proc.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProcessorAddress(t *testing.T) {
	tests := []struct {
		name string
		proc Processor
		want string
	}{
		{
			name: "default port",
			proc: Processor{Host: "10.1.4.20"},
			want: "10.1.4.20:5321",
		},
		{
			name: "explicit port",
			proc: Processor{Host: "bar-av.local", ControlPort: 5322},
			want: "bar-av.local:5322",
		},
		{
			name: "ipv6 host",
			proc: Processor{Host: "fe80::1"},
			want: "[fe80::1]:5321",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.proc.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestZoneCountForModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  int
	}{
		{"azm4", "AZM4", 4},
		{"azm8", "AZM8", 8},
		{"amplified azm4", "AZMP4", 4},
		{"amplified azm8", "AZMP8", 8},
		{"lowercase", "azm8", 8},
		{"surrounding whitespace", " AZM4 ", 4},
		{"unknown model", "AZM16", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZoneCountForModel(tt.model); got != tt.want {
				t.Errorf("ZoneCountForModel(%q) = %d, want %d", tt.model, got, tt.want)
			}
		})
	}
}
