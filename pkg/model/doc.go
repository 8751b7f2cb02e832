// Package model describes AZM audio processors and their parameter namespace.
//
// # Parameter Namespace
//
// Atmosphere processors expose a flat, string-keyed parameter space over the
// control port. Zone-level parameters follow the {Base}_{zone} convention
// with 0-based zone indices:
//
//	ZoneGain_2    zone 2 gain, percent 0-100
//	ZoneMute_2    zone 2 mute, 1 or 0
//	ZoneSource_2  zone 2 active source, 0-based index
//	ZoneName_2    zone 2 label
//
// The constructors in this package produce these canonical names.
// Output-level gain parameters are not canonical: their names vary by model
// and firmware revision and are discovered per zone at runtime (see
// pkg/probe).
//
// # Processors
//
// A Processor value carries the identity and address of one physical device.
// It is supplied by the caller (config file, flags, or mDNS discovery) and
// treated as read-only input everywhere in this module.
package model
