package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/azm-tools/azm-go/pkg/log"
)

// Framing constants.
const (
	// FrameDelimiter terminates every frame on the wire.
	FrameDelimiter = "\r\n"

	// DefaultMaxFrameSize is the default maximum frame payload size (64 KB).
	DefaultMaxFrameSize = 65536

	// MaxLogFrameDataSize is the maximum frame payload size to include in
	// logs (4 KB). Larger frames are truncated in log events to avoid
	// excessive memory usage.
	MaxLogFrameDataSize = 4096
)

// readBufferSize is the bufio read buffer size. Frames larger than this
// are assembled across multiple buffered reads.
const readBufferSize = 4096

// Framing errors.
var (
	// ErrFrameTooLarge indicates the frame exceeds the maximum size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrFrameEmpty indicates an empty frame payload.
	ErrFrameEmpty = errors.New("frame is empty")

	// ErrFrameTruncated indicates the stream ended mid-frame.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrFrameDelimiter indicates the payload contains a CR or LF byte.
	// Encoded JSON escapes control characters, so a delimiter byte in a
	// payload would desynchronize the stream.
	ErrFrameDelimiter = errors.New("payload contains frame delimiter")
)

// FrameWriter writes CRLF-delimited frames to an underlying writer.
type FrameWriter struct {
	w            io.Writer
	maxFrameSize int
	buf          []byte
	mu           sync.Mutex

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{
		w:            w,
		maxFrameSize: DefaultMaxFrameSize,
	}
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom max size.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize int) *FrameWriter {
	return &FrameWriter{
		w:            w,
		maxFrameSize: maxSize,
	}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteFrame writes a payload followed by the frame delimiter.
// The payload and delimiter are issued as a single Write so frames are
// never interleaved. Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrFrameEmpty
	}
	if len(data) > fw.maxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), fw.maxFrameSize)
	}
	if bytes.ContainsAny(data, FrameDelimiter) {
		return ErrFrameDelimiter
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.buf = append(fw.buf[:0], data...)
	fw.buf = append(fw.buf, FrameDelimiter...)

	if _, err := fw.w.Write(fw.buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	// Log the frame if logger is configured
	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.connID, data, len(fw.buf), log.DirectionOut))
	}

	return nil
}

// FrameReader reads CRLF-delimited frames from an underlying reader.
type FrameReader struct {
	br           *bufio.Reader
	maxFrameSize int

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxFrameSize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom max size.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize int) *FrameReader {
	return &FrameReader{
		br:           bufio.NewReaderSize(r, readBufferSize),
		maxFrameSize: maxSize,
	}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// SetMaxFrameSize updates the maximum frame payload size.
func (fr *FrameReader) SetMaxFrameSize(size int) {
	fr.maxFrameSize = size
}

// ReadFrame reads the next delimited frame and returns its payload with
// the delimiter stripped. Bare delimiters (empty frames) are skipped.
//
// An oversized line is consumed through its delimiter before
// ErrFrameTooLarge is returned, leaving the stream in sync; callers may
// treat that error as non-fatal and keep reading.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		raw, err := fr.readLine()
		if err != nil {
			return nil, err
		}

		payload := trimDelimiter(raw)
		if len(payload) == 0 {
			// Bare CRLF between frames, skip it.
			continue
		}
		if len(payload) > fr.maxFrameSize {
			// Delimiter was found, so the stream is already in sync.
			return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), fr.maxFrameSize)
		}

		// Log the frame if logger is configured
		if fr.logger != nil {
			fr.logger.Log(makeFrameEvent(fr.connID, payload, len(raw), log.DirectionIn))
		}

		return payload, nil
	}
}

// readLine accumulates buffered reads until the LF delimiter is found.
// The returned slice includes the delimiter and is owned by the caller.
func (fr *FrameReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := fr.br.ReadSlice('\n')
		line = append(line, chunk...)

		switch {
		case err == nil:
			return line, nil

		case errors.Is(err, bufio.ErrBufferFull):
			if len(line) > fr.maxFrameSize {
				// Drop the remainder of the line so the stream
				// resynchronizes at the next delimiter.
				if derr := fr.discardLine(); derr != nil {
					return nil, derr
				}
				return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrFrameTooLarge, fr.maxFrameSize)
			}

		case errors.Is(err, io.EOF):
			if len(line) > 0 {
				return nil, ErrFrameTruncated
			}
			return nil, io.EOF

		default:
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
	}
}

// discardLine consumes input through the next LF delimiter.
func (fr *FrameReader) discardLine() error {
	for {
		_, err := fr.br.ReadSlice('\n')
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return ErrFrameTruncated
		default:
			return fmt.Errorf("failed to read frame: %w", err)
		}
	}
}

// trimDelimiter strips a trailing LF and optional preceding CR.
// A bare LF terminator is tolerated on inbound frames.
func trimDelimiter(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line
}

// makeFrameEvent creates a log event for a frame. wireSize is the number
// of bytes on the wire including the delimiter.
func makeFrameEvent(connID string, data []byte, wireSize int, direction log.Direction) log.Event {
	frameData := data
	truncated := false

	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      wireSize,
			Data:      frameData,
			Truncated: truncated,
		},
	}
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a new framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// NewFramerWithMaxSize creates a framer with a custom max frame size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize int) *Framer {
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger configures logging for both reader and writer.
// Pass nil to disable logging.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

// FrameSize returns the total wire size of a frame including the delimiter.
func FrameSize(payloadSize int) int {
	return payloadSize + len(FrameDelimiter)
}
