// Package control implements the per-processor control facade.
//
// A Service owns one connection to one AZM processor and exposes the
// operations a venue front-end needs: zone status, volume, mute, source
// selection, and per-output trim. Operations are safe for concurrent
// use; each maps to one wire command (status reads issue several).
//
// # Lifecycle
//
// New -> Connect -> operations -> Disconnect. A dropped connection moves
// the service to DISCONNECTED: every in-flight call fails with the drop
// cause and later calls fail with ErrNotConnected until the caller
// reconnects. Reconnecting builds a fresh connection and dispatcher, so
// request ids restart from 1, and clears the output mapping cache.
//
// # Output discovery
//
// The first status call for a zone runs pkg/probe's speculative
// discovery to learn how that zone names its output parameters; the
// mapping is cached for the life of the connection. Concurrent first
// calls share one probe. RefreshOutputs re-probes on demand; nothing
// else ever re-probes implicitly.
//
// # Errors
//
// Argument errors wrap ErrInvalidParameter. Device refusals surface as
// *wire.DeviceError. Transport and timeout failures pass through from
// pkg/transport and pkg/dispatch with zone and parameter context
// attached.
package control
