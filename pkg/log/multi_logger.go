package log

import (
	"errors"
	"io"
)

// MultiLogger fans capture events out to several sinks, so a session can
// record to an .alog file while mirroring events somewhere live (an
// SlogAdapter, a test recorder).
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger returns a logger that forwards every event to each sink
// in order.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log forwards the event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

// Close closes every sink that supports closing and reports their
// combined errors. Sinks without a Close are left alone.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var _ Logger = (*MultiLogger)(nil)
