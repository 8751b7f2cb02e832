package log

import (
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects a slice of a capture. Zero fields match everything, so
// the zero Filter passes every event through.
type Filter struct {
	// ConnectionID selects a single connection's events.
	ConnectionID string

	// Direction, Layer and Category narrow by the event classifiers.
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart and TimeEnd bound the capture window: events at or
	// after TimeStart and strictly before TimeEnd.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// Zone selects events tagged with a zone index.
	Zone *int

	// Param selects message events addressing one parameter, e.g. all
	// traffic touching "ZoneGain_2".
	Param string
}

func (f *Filter) matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Zone != nil && (event.Zone == nil || *event.Zone != *f.Zone) {
		return false
	}
	if f.Param != "" && (event.Message == nil || event.Message.Param != f.Param) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events out of an .alog capture file. Events are decoded
// one at a time, so a multi-hour capture never has to fit in memory.
type Reader struct {
	f      *os.File
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens the capture at path and yields every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens the capture at path and yields only events
// matching filter. Filtering happens during the streaming decode.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		f:      f,
		dec:    NewDecoder(f),
		filter: filter,
	}, nil
}

// Next returns the next matching event, or io.EOF after the last one.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
		// Skip events the filter rejects.
	}
}

// Close closes the capture file.
func (r *Reader) Close() error {
	return r.f.Close()
}
