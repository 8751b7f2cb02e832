package simdevice

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/azm-tools/azm-go/pkg/model"
	"github.com/azm-tools/azm-go/pkg/zone"
)

// DefaultGain is the initial gain for zones and outputs whose definition
// does not set one.
const DefaultGain = 50

// maxOutputsPerZone matches the hardware limit on output channels.
const maxOutputsPerZone = 8

// Output parameter naming schemes.
const (
	// SchemeZoneOutput exposes ZoneOutputCount_{z} plus one
	// ZoneOutput{n}Gain_{z} parameter per output, n counted from 1.
	SchemeZoneOutput = "ZoneOutput"

	// SchemeAmpOut exposes AmpOutGain_{z}_{i} parameters, i counted
	// from 0, with no count parameter. Clients discover the outputs by
	// scanning.
	SchemeAmpOut = "AmpOut"

	// SchemeNone exposes no output-level parameters at all. The zone
	// is controllable only through ZoneGain_{z}.
	SchemeNone = "none"
)

// Definition describes the simulated processor: identity, zones, and
// per-parameter response quirks.
type Definition struct {
	// Model is the processor model string ("AZM4", "AZM8", ...).
	Model string `yaml:"model"`

	// Name is the friendly device name.
	Name string `yaml:"name"`

	SerialNumber    string `yaml:"serial"`
	FirmwareVersion string `yaml:"firmware"`

	// Zones lists the simulated zones in index order.
	Zones []ZoneDef `yaml:"zones"`

	// Behaviors maps parameter names to response quirks.
	Behaviors map[string]Behavior `yaml:"behaviors"`
}

// ZoneDef describes one simulated zone.
type ZoneDef struct {
	// Name is the zone label returned for ZoneName_{z}.
	Name string `yaml:"name"`

	// Outputs is the number of output channels behind the zone.
	Outputs int `yaml:"outputs"`

	// Scheme selects the output parameter naming scheme. Defaults to
	// SchemeZoneOutput; ignored when Outputs is zero.
	Scheme string `yaml:"scheme"`

	// Gain is the initial zone and output gain (default 50).
	Gain int `yaml:"gain"`

	// Source is the initial source selector.
	Source int `yaml:"source"`

	// Muted is the initial mute state.
	Muted bool `yaml:"muted"`
}

// Behavior describes how the device answers requests naming one
// parameter.
type Behavior struct {
	// Drop suppresses the response entirely, which the client observes
	// as a command timeout.
	Drop bool `yaml:"drop"`

	// Delay postpones the response, as a duration string ("250ms").
	Delay string `yaml:"delay"`

	// ErrorCode, when non-zero, turns every response for the parameter
	// into a JSON-RPC error with this code.
	ErrorCode int `yaml:"error_code"`

	// ErrorMessage overrides the error text (default: the standard
	// text for ErrorCode).
	ErrorMessage string `yaml:"error_message"`
}

// delay returns the parsed response delay. Validate screens the string
// at load time, so a parse failure here reads as no delay.
func (b Behavior) delay() time.Duration {
	if b.Delay == "" {
		return 0
	}
	d, err := time.ParseDuration(b.Delay)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the definition for inconsistencies.
func (d *Definition) Validate() error {
	if len(d.Zones) == 0 {
		return errors.New("definition has no zones")
	}
	for i, z := range d.Zones {
		switch z.Scheme {
		case "", SchemeZoneOutput, SchemeAmpOut, SchemeNone:
		default:
			return fmt.Errorf("zone %d: unknown output scheme %q", i, z.Scheme)
		}
		if z.Outputs < 0 {
			return fmt.Errorf("zone %d: negative output count", i)
		}
		if z.Outputs > maxOutputsPerZone {
			return fmt.Errorf("zone %d: output count %d exceeds hardware limit %d", i, z.Outputs, maxOutputsPerZone)
		}
	}
	for param, b := range d.Behaviors {
		if param == "" {
			return errors.New("behavior with empty parameter name")
		}
		if b.Delay != "" {
			if _, err := time.ParseDuration(b.Delay); err != nil {
				return fmt.Errorf("behavior %s: bad delay %q: %v", param, b.Delay, err)
			}
		}
	}
	return nil
}

// ZoneCount returns the number of simulated zones.
func (d *Definition) ZoneCount() int {
	return len(d.Zones)
}

// ParseDefinition parses a YAML definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinition reads and parses a YAML definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// DefaultDefinition returns a four-zone sports bar layout that exercises
// every output naming scheme, including a zone with no output-level
// parameters.
func DefaultDefinition() *Definition {
	return &Definition{
		Model:           "AZM4",
		Name:            "Atmosphere AZM4",
		SerialNumber:    "SIM-0001",
		FirmwareVersion: "3.2.1-sim",
		Zones: []ZoneDef{
			{Name: "Main Bar", Outputs: 2, Scheme: SchemeZoneOutput, Gain: 62},
			{Name: "Dining", Outputs: 1, Scheme: SchemeZoneOutput, Gain: 48},
			{Name: "Patio", Outputs: 2, Scheme: SchemeAmpOut, Gain: 55},
			{Name: "Back Office", Scheme: SchemeNone, Gain: 30},
		},
	}
}

// buildParams expands the definition into the numeric and text parameter
// tables the device serves.
func (d *Definition) buildParams() (map[string]int, map[string]string) {
	params := make(map[string]int)
	texts := make(map[string]string)

	for z, zd := range d.Zones {
		gain := zd.Gain
		if gain == 0 {
			gain = DefaultGain
		}
		params[model.ZoneGain(z)] = gain

		mute := 0
		if zd.Muted {
			mute = 1
		}
		params[model.ZoneMute(z)] = mute
		params[model.ZoneSource(z)] = zd.Source

		name := zd.Name
		if name == "" {
			name = zone.DefaultZoneLabel(z)
		}
		texts[model.ZoneName(z)] = name

		scheme := zd.Scheme
		if scheme == "" {
			scheme = SchemeZoneOutput
		}
		switch scheme {
		case SchemeZoneOutput:
			if zd.Outputs > 0 {
				params[fmt.Sprintf("ZoneOutputCount_%d", z)] = zd.Outputs
				for i := 0; i < zd.Outputs; i++ {
					params[fmt.Sprintf("ZoneOutput%dGain_%d", i+1, z)] = gain
				}
			}
		case SchemeAmpOut:
			for i := 0; i < zd.Outputs; i++ {
				params[fmt.Sprintf("AmpOutGain_%d_%d", z, i)] = gain
			}
		}
	}

	return params, texts
}
