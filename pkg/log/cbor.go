package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// The .alog container is a plain concatenation of CBOR-encoded events,
// no header and no framing. Integer map keys come from the Event struct
// tags; canonical sorting keeps the encoding deterministic, so the same
// event always produces the same bytes.
var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	// RFC3339Nano keeps the full timestamp precision; request/response
	// gaps on a LAN are well under a millisecond.
	em, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: invalid CBOR encode options: %v", err))
	}
	return em
}

func mustDecMode() cbor.DecMode {
	// Decoding stays lenient so azm-log can still read captures written
	// by older or newer builds with a different event layout.
	dm, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: invalid CBOR decode options: %v", err))
	}
	return dm
}

// EncodeEvent encodes a single event to its .alog byte form.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes a single event from its .alog byte form.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a streaming event encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a streaming event decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
