// Package log captures AZM protocol traffic for offline analysis.
//
// Capture is separate from operational logging: slog tells you what the
// client did, a capture file tells you what actually crossed the wire.
// Events are recorded at three layers (raw frames, decoded JSON-RPC
// messages, service state changes) and written as CBOR to an .alog
// file, which the azm-log tool can view, filter, and export.
//
// A sink is any Logger implementation. The control service, simulator
// and CLIs accept one through their Capture configuration:
//
//	capture, err := log.NewFileLogger("/var/log/azm/barfloor.alog")
//	...
//	cfg.Capture = capture
//
// Sinks compose. Recording to a file while mirroring events into the
// process log at Debug level:
//
//	cfg.Capture = log.NewMultiLogger(
//	    capture,
//	    log.NewSlogAdapter(logger),
//	)
//
// Reading a capture back is a streaming decode, optionally filtered:
//
//	reader, err := log.NewFilteredReader(path, log.Filter{Param: "ZoneGain_2"})
//
// One Event is written per capture point, so a single set command shows
// up twice on the client: once as the decoded request at the wire layer
// and once as the outgoing frame at the transport layer.
package log
