package model

import "fmt"

// ZoneGain returns the gain parameter name for a zone (percent, 0-100).
func ZoneGain(zone int) string {
	return fmt.Sprintf("ZoneGain_%d", zone)
}

// ZoneMute returns the mute parameter name for a zone (val 1 muted, 0 not).
func ZoneMute(zone int) string {
	return fmt.Sprintf("ZoneMute_%d", zone)
}

// ZoneSource returns the source-selection parameter name for a zone
// (val is a 0-based source index).
func ZoneSource(zone int) string {
	return fmt.Sprintf("ZoneSource_%d", zone)
}

// ZoneName returns the label parameter name for a zone.
func ZoneName(zone int) string {
	return fmt.Sprintf("ZoneName_%d", zone)
}
