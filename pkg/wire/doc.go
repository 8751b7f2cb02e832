// Package wire defines the JSON-RPC wire format types for the AZM control
// protocol.
//
// AZM processors speak JSON-RPC 2.0 as UTF-8 text frames over a plain TCP
// socket, one JSON object per frame, each frame terminated by CRLF. Every
// request addresses a single named device parameter and carries at most one
// argument: "pct" for percentage-scaled values (0-100) or "val" for raw
// integers.
//
// # Message Types
//
// There are two message types on the control port:
//   - Request: client to device (get, set, bmp, sub, unsub)
//   - Response: device to client (result or error object)
//
// # Correlation
//
// Requests carry a positive integer id which the device echoes in the
// matching response. Responses may arrive in any order; correlation is by id
// only, never by arrival position. A response with a missing or null id
// cannot be correlated and is discarded by the dispatcher.
//
// # Parameter Namespace
//
// Parameter names ("ZoneGain_0", "AmpOutGain_2_1", ...) are not part of the
// wire format; they are device namespace and live in pkg/model. The device
// answers a get for an unknown parameter with an error object, which upper
// layers treat as evidence about the namespace rather than as a failure.
package wire
