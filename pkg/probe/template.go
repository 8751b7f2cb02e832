package probe

import (
	"strconv"
	"strings"
)

// Template is one speculative parameter-name pattern.
//
// Format may contain three placeholders: {z} expands to the 0-based zone
// index, {i} to the 0-based output index, and {n} to the 1-based output
// index. Count templates use only {z}.
type Template struct {
	// Format is the parameter-name pattern.
	Format string

	// Label optionally overrides the default output label when this
	// template wins an output slot.
	Label string
}

// Expand substitutes the zone and output indices into the pattern.
func (t Template) Expand(zone, output int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(zone),
		"{i}", strconv.Itoa(output),
		"{n}", strconv.Itoa(output+1),
	)
	return r.Replace(t.Format)
}

// DefaultCountTemplates returns the ordered output-count templates. Order
// matters: the first template that yields a numeric answer wins.
func DefaultCountTemplates() []Template {
	return []Template{
		{Format: "ZoneOutputCount_{z}"},
		{Format: "ZoneChannels_{z}"},
		{Format: "NumOutputs_{z}"},
	}
}

// DefaultGainTemplates returns the ordered per-output gain templates. Order
// matters: templates are tried sequentially per output slot and the first
// answer is recorded.
func DefaultGainTemplates() []Template {
	return []Template{
		{Format: "ZoneOutput{n}Gain_{z}"},
		{Format: "AmpOutGain_{z}_{i}"},
		{Format: "Output{n}Gain_{z}"},
	}
}
