// Package discovery finds Atmosphere processors on the local network.
//
// Processors announce their third-party control interface over mDNS/DNS-SD
// as _azm-ctrl._tcp. The instance name is the processor's configured device
// name, and TXT records describe the hardware:
//
//	md=AZM8           hardware model
//	zc=8              configured zone count
//	sn=ATL2301-0042   serial number (optional)
//	fw=3.2.1          firmware version (optional)
//
// A missing or unreadable zc falls back to the zone count implied by the
// model; entries where neither yields a usable count are skipped.
//
// # Browsing
//
// Browser.Browse streams processors as they appear, aggregated by instance
// name across interfaces. Find resolves a single instance by name, FindAll
// collects everything seen until the context ends. Discovered entries
// convert to model.Processor values ready for control.New.
//
// # Advertising
//
// Advertiser publishes the same record shape. Real hardware announces
// itself; Advertiser exists for the azm-sim simulator and for tests.
//
// Browse and registration go through replaceable functions on the configs
// so tests can feed canned entries without touching multicast.
package discovery
