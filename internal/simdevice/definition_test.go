package simdevice

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDefinitionValid(t *testing.T) {
	def := DefaultDefinition()
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if def.ZoneCount() != 4 {
		t.Errorf("ZoneCount = %d, want 4", def.ZoneCount())
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{
			name: "single zone",
			def:  Definition{Zones: []ZoneDef{{Name: "Bar"}}},
		},
		{
			name:    "no zones",
			def:     Definition{},
			wantErr: true,
		},
		{
			name:    "unknown scheme",
			def:     Definition{Zones: []ZoneDef{{Outputs: 2, Scheme: "Matrix"}}},
			wantErr: true,
		},
		{
			name:    "negative outputs",
			def:     Definition{Zones: []ZoneDef{{Outputs: -1}}},
			wantErr: true,
		},
		{
			name:    "outputs beyond hardware limit",
			def:     Definition{Zones: []ZoneDef{{Outputs: 9}}},
			wantErr: true,
		},
		{
			name: "bad behavior delay",
			def: Definition{
				Zones:     []ZoneDef{{}},
				Behaviors: map[string]Behavior{"ZoneGain_0": {Delay: "soon"}},
			},
			wantErr: true,
		},
		{
			name: "empty behavior parameter",
			def: Definition{
				Zones:     []ZoneDef{{}},
				Behaviors: map[string]Behavior{"": {Drop: true}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate succeeded, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestBuildParams(t *testing.T) {
	params, texts := DefaultDefinition().buildParams()

	wantParams := map[string]int{
		"ZoneGain_0":        62,
		"ZoneMute_0":        0,
		"ZoneSource_0":      0,
		"ZoneOutputCount_0": 2,
		"ZoneOutput1Gain_0": 62,
		"ZoneOutput2Gain_0": 62,
		"ZoneOutputCount_1": 1,
		"ZoneOutput1Gain_1": 48,
		"ZoneGain_2":        55,
		"AmpOutGain_2_0":    55,
		"AmpOutGain_2_1":    55,
		"ZoneGain_3":        30,
	}
	for name, want := range wantParams {
		got, ok := params[name]
		if !ok {
			t.Errorf("param %s missing", name)
			continue
		}
		if got != want {
			t.Errorf("param %s = %d, want %d", name, got, want)
		}
	}

	// AmpOut zones have no count parameter; clients must scan.
	if _, ok := params["ZoneOutputCount_2"]; ok {
		t.Error("AmpOut zone exposes a count parameter")
	}
	// SchemeNone zones expose no output-level parameters.
	for _, name := range []string{"ZoneOutputCount_3", "ZoneOutput1Gain_3", "AmpOutGain_3_0"} {
		if _, ok := params[name]; ok {
			t.Errorf("dead zone exposes %s", name)
		}
	}

	if got := texts["ZoneName_2"]; got != "Patio" {
		t.Errorf("ZoneName_2 = %q, want %q", got, "Patio")
	}
}

func TestBuildParamsDefaultsUnnamedZone(t *testing.T) {
	def := &Definition{Zones: []ZoneDef{{}, {}}}
	params, texts := def.buildParams()

	if got := params["ZoneGain_1"]; got != DefaultGain {
		t.Errorf("ZoneGain_1 = %d, want %d", got, DefaultGain)
	}
	if got := texts["ZoneName_1"]; got != "Zone 2" {
		t.Errorf("ZoneName_1 = %q, want %q", got, "Zone 2")
	}
}

func TestParseDefinitionYAML(t *testing.T) {
	doc := `
model: AZM8
name: Back Bar Rack
serial: AT0402115
firmware: 3.1.0
zones:
  - name: Main Bar
    outputs: 2
    gain: 70
  - name: Patio
    outputs: 1
    scheme: AmpOut
    muted: true
behaviors:
  ZoneGain_1:
    delay: 250ms
  ZoneSource_0:
    error_code: -32000
    error_message: source locked
  AmpOutGain_1_0:
    drop: true
`
	def, err := ParseDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDefinition failed: %v", err)
	}
	if def.Model != "AZM8" {
		t.Errorf("Model = %q, want %q", def.Model, "AZM8")
	}
	if len(def.Zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(def.Zones))
	}
	if def.Zones[1].Scheme != SchemeAmpOut {
		t.Errorf("zone 1 scheme = %q, want %q", def.Zones[1].Scheme, SchemeAmpOut)
	}
	if !def.Zones[1].Muted {
		t.Error("zone 1 not muted")
	}
	if got := def.Behaviors["ZoneGain_1"].delay(); got.Milliseconds() != 250 {
		t.Errorf("ZoneGain_1 delay = %v, want 250ms", got)
	}
	if !def.Behaviors["AmpOutGain_1_0"].Drop {
		t.Error("AmpOutGain_1_0 not dropped")
	}
}

func TestParseDefinitionRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: `{{{{`},
		{name: "no zones", doc: `model: AZM4`},
		{name: "bad delay", doc: "zones:\n  - name: Bar\nbehaviors:\n  ZoneGain_0:\n    delay: whenever\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDefinition([]byte(tt.doc)); err == nil {
				t.Error("ParseDefinition succeeded, want error")
			}
		})
	}
}

func TestLoadDefinitionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.yaml")
	doc := "model: AZM4\nzones:\n  - name: Main Bar\n    outputs: 2\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	def, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("LoadDefinition failed: %v", err)
	}
	if def.Zones[0].Name != "Main Bar" {
		t.Errorf("zone 0 name = %q, want %q", def.Zones[0].Name, "Main Bar")
	}

	if _, err := LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadDefinition succeeded on missing file, want error")
	}
}
