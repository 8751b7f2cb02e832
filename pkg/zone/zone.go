package zone

import "fmt"

// Zone describes one processor zone and its discovered outputs.
type Zone struct {
	// Index is the 0-based zone index on the processor.
	Index int

	// Label is the zone's human-readable name.
	Label string

	// Source is the 0-based index of the zone's active source.
	Source int

	// Gain is the zone-level gain in percent (0-100).
	Gain int

	// Muted reports whether the zone is muted.
	Muted bool

	// Outputs lists the zone's independently gained outputs in output-index
	// order. A zone always has at least one output.
	Outputs []Output
}

// OutputAt returns the output with the given 0-based index.
func (z *Zone) OutputAt(index int) (*Output, bool) {
	if index < 0 || index >= len(z.Outputs) {
		return nil, false
	}
	return &z.Outputs[index], true
}

// Output describes one independently gained output within a zone.
type Output struct {
	// Index is the 0-based output index within its zone.
	Index int

	// Label is the output's display name ("Main", "Sub", "Output 3").
	Label string

	// Type classifies the output's role within its zone.
	Type OutputType

	// Volume is the output gain in percent (0-100).
	Volume int

	// Param is the device parameter name controlling this output's gain.
	// Discovered once per session and authoritative until an explicit
	// refresh.
	Param string
}

// OutputType classifies an output's role within its zone.
type OutputType uint8

const (
	// OutputMono is the sole output of a single-output zone.
	OutputMono OutputType = 0
	// OutputMain is the primary output of a multi-output zone.
	OutputMain OutputType = 1
	// OutputSub is a subwoofer output.
	OutputSub OutputType = 2
	// OutputLeft is the left output of a stereo pair.
	OutputLeft OutputType = 3
	// OutputRight is the right output of a stereo pair.
	OutputRight OutputType = 4
)

// String returns the output type name.
func (t OutputType) String() string {
	switch t {
	case OutputMono:
		return "MONO"
	case OutputMain:
		return "MAIN"
	case OutputSub:
		return "SUB"
	case OutputLeft:
		return "LEFT"
	case OutputRight:
		return "RIGHT"
	default:
		return "UNKNOWN"
	}
}

// DefaultLabel returns the display label for an output index: "Main" for
// index 0, "Sub" for index 1, "Output N" beyond that.
func DefaultLabel(index int) string {
	switch index {
	case 0:
		return "Main"
	case 1:
		return "Sub"
	default:
		return fmt.Sprintf("Output %d", index+1)
	}
}

// DefaultType returns the output type for an output index, given the total
// number of outputs in the zone.
func DefaultType(index, total int) OutputType {
	switch {
	case index == 0 && total == 1:
		return OutputMono
	case index == 0:
		return OutputMain
	case index == 1:
		return OutputSub
	default:
		return OutputMain
	}
}

// DefaultZoneLabel returns the fallback display name for a zone whose
// ZoneName parameter the device cannot report, "Zone N" with a 1-based N.
func DefaultZoneLabel(index int) string {
	return fmt.Sprintf("Zone %d", index+1)
}
