package log

// Logger is a capture sink. The transport, dispatcher and control service
// hand every capture event to the configured Logger, so one sink sees the
// whole session: raw frames, decoded messages, state changes and errors.
type Logger interface {
	// Log records one capture event. Called from connection goroutines,
	// so implementations must be safe for concurrent use and should not
	// block; a slow sink stalls the read loop it is capturing.
	Log(event Event)
}

// NoopLogger is a Logger that drops every event. The zero value is ready
// to use, so it can stand in wherever capture is optional.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
