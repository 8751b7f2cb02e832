// Package simdevice implements an in-process AZM processor simulator.
//
// The simulator listens on a real TCP socket and speaks the production
// wire protocol, so client code under test exercises the same framing,
// dispatch, and probe paths it uses against hardware. Tests dial it over
// loopback; cmd/azm-sim runs it standalone for bench work without a
// rack unit.
//
// # Definitions
//
// A Definition describes the simulated hardware: the model string, the
// zones, and how each zone names its output parameters. Definitions are
// plain structs and can be loaded from YAML, which keeps awkward device
// layouts (missing count parameters, legacy AmpOut naming, dead zones)
// in data files instead of test code.
//
// # Behaviors
//
// Per-parameter behaviors inject the failure modes a client has to
// survive: dropped responses (command timeouts), delayed responses
// (out-of-order completion), and error responses with a configurable
// code. A behavior applies to every request that names its parameter.
//
// # Reports
//
// Parameters changed through set or bmp, or directly via SetParam, are
// reported to connections subscribed to them with an id-0 request frame,
// mirroring the unsolicited change reports real firmware produces.
package simdevice
