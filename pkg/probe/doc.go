// Package probe discovers a zone's output topology by speculation.
//
// Atmosphere processors have no introspection API: there is no call that
// lists which parameters exist. The only way to learn whether zone 2 drives
// a single ceiling array or a main/sub pair, and what the sub's gain
// parameter is called on this particular model and firmware, is to ask for
// candidate names and see what answers.
//
// # Algorithm
//
// Per zone, in order:
//
//  1. Try the output-count templates (ZoneOutputCount_{z}, ZoneChannels_{z},
//     NumOutputs_{z}). The first numeric answer, clamped to 1..8, fixes the
//     expected output count n.
//  2. For each output slot, try the gain templates (ZoneOutput{n}Gain_{z},
//     AmpOutGain_{z}_{i}, Output{n}Gain_{z}) until one answers; the winning
//     name is recorded against the output together with the gain it
//     reported.
//  3. Without a count, scan slots 0..3 directly and stop at the first slot
//     no template answers for.
//  4. If nothing answers at all, synthesize a single "Main" output bound to
//     the zone's own ZoneGain_{z}. The result is marked Exhausted; it is a
//     degraded success, never an error.
//
// An unanswered or rejected probe is negative evidence about the topology,
// not a failure: the device simply does not have that parameter. Only a
// lost connection or the caller's own cancellation aborts a probe.
//
// Template attempts for one slot are strictly sequential, so the first
// match wins deterministically. Distinct zones touch disjoint parameter
// namespaces and are probed concurrently by ProbeZones.
//
// Template lists are data, not control flow: models with unknown naming
// schemes are handled by extending Config.CountTemplates and
// Config.GainTemplates.
package probe
