// Package zone models a processor's zones and their discovered outputs.
//
// A Zone is the unit a bartender thinks in: one room or area with a label,
// an active source, a zone-level gain, and a mute flag. Behind a zone the
// hardware drives one or more independently gained outputs (a mono ceiling
// array, a main/sub pair, a stereo pair). Zone-level parameters are
// canonical (see pkg/model); output-level gain parameters vary by model and
// firmware and are discovered at runtime (see pkg/probe).
//
// Values in this package are transient session state: built when a caller
// first asks for a zone's status, discarded on disconnect. Nothing here is
// persisted.
package zone
