// Package dispatch implements request/response correlation for the AZM
// JSON-RPC control protocol.
//
// A Dispatcher assigns each outbound request a connection-unique,
// strictly increasing integer id and matches device responses back to
// the waiting caller by that id alone. Arrival order is ignored, so the
// device may answer out of order.
//
// Every request settles exactly once: with the matching response, with
// ErrCommandTimeout when no response arrives in time, or with the close
// cause when the connection drops mid-flight. A response arriving after
// its request has settled is counted, logged, and dropped.
//
// The Dispatcher implements the transport Handler callbacks, so it can
// be handed directly to a dial and then bound to the resulting
// connection:
//
//	d := dispatch.NewDispatcher(nil)
//	conn, err := transport.Dial(ctx, "10.1.4.20:5321", d)
//	if err != nil {
//	    return err
//	}
//	d.Bind(conn)
//
//	resp, err := d.Set(ctx, "ZoneGain_2", 65)
//
// Frames that decode as requests rather than responses are unsolicited
// change reports from the device and are routed to the report handler.
package dispatch
