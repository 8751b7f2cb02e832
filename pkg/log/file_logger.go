package log

import (
	"os"
	"sync"
)

// FileLogger appends capture events to an .alog file. Opening is append
// mode, so restarts and reconnects accumulate into one file instead of
// truncating the evidence from the previous session.
type FileLogger struct {
	mu     sync.Mutex
	f      *os.File
	closed bool
}

// NewFileLogger opens (or creates, mode 0644) the capture file at path.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{f: f}, nil
}

// Log appends one event to the file. Encoding happens outside the lock;
// only the write is serialized, and a single Write call per event keeps
// concurrent events contiguous in the file.
func (l *FileLogger) Log(event Event) {
	data, err := EncodeEvent(event)
	if err != nil {
		// Capture must never disrupt the session it is recording.
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_, _ = l.f.Write(data)
}

// Close closes the capture file. Close is idempotent, and events logged
// after it are dropped.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

var _ Logger = (*FileLogger)(nil)
