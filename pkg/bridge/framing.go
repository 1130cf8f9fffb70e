package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/stse-tools/stse-go/pkg/log"
)

// Every bridge message travels as a 4-byte big-endian length followed by
// that many bytes. Zero-length messages are not allowed.
const (
	LengthPrefixSize      = 4
	DefaultMaxMessageSize = 64 << 10
)

// Framing errors.
var (
	// ErrMessageTooLarge is returned for a message above the size limit in
	// either direction.
	ErrMessageTooLarge = errors.New("bridge: message exceeds size limit")

	// ErrMessageEmpty is returned for a zero-length message.
	ErrMessageEmpty = errors.New("bridge: empty message")

	// ErrFrameTruncated is returned when the stream ends inside a frame.
	ErrFrameTruncated = errors.New("bridge: stream ended inside a frame")
)

// FrameWriter sends messages on a stream.
type FrameWriter struct {
	w     io.Writer
	limit uint32
	mu    sync.Mutex

	logger log.Logger
	runID  string
}

// NewFrameWriter creates a frame writer. A zero maxSize selects
// DefaultMaxMessageSize.
func NewFrameWriter(w io.Writer, maxSize uint32) *FrameWriter {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &FrameWriter{w: w, limit: maxSize}
}

// SetLogger records every written frame under runID. Pass nil to disable.
func (fw *FrameWriter) SetLogger(logger log.Logger, runID string) {
	fw.logger = logger
	fw.runID = runID
}

// WriteFrame sends data as one frame. Prefix and payload go out in a
// single Write so that concurrent callers never interleave.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	switch {
	case len(data) == 0:
		return ErrMessageEmpty
	case uint64(len(data)) > uint64(fw.limit):
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, len(data), fw.limit)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	buf := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LengthPrefixSize:], data)
	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("bridge: write frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(log.NewFrameEvent(fw.runID, log.DirectionOut, data))
	}
	return nil
}

// FrameReader receives messages from a stream. It is not safe for
// concurrent use.
type FrameReader struct {
	r      io.Reader
	limit  uint32
	prefix [LengthPrefixSize]byte

	logger log.Logger
	runID  string
}

// NewFrameReader creates a frame reader. A zero maxSize selects
// DefaultMaxMessageSize.
func NewFrameReader(r io.Reader, maxSize uint32) *FrameReader {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &FrameReader{r: r, limit: maxSize}
}

// SetLogger records every read frame under runID. Pass nil to disable.
func (fr *FrameReader) SetLogger(logger log.Logger, runID string) {
	fr.logger = logger
	fr.runID = runID
}

// ReadFrame reads one frame and returns its payload. A clean end of
// stream before the prefix returns io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	switch _, err := io.ReadFull(fr.r, fr.prefix[:]); {
	case err == io.EOF:
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, ErrFrameTruncated
	case err != nil:
		return nil, fmt.Errorf("bridge: read frame length: %w", err)
	}

	n := binary.BigEndian.Uint32(fr.prefix[:])
	switch {
	case n == 0:
		return nil, ErrMessageEmpty
	case n > fr.limit:
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, n, fr.limit)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("bridge: read frame payload: %w", err)
	}

	if fr.logger != nil {
		fr.logger.Log(log.NewFrameEvent(fr.runID, log.DirectionIn, payload))
	}
	return payload, nil
}

// Framer is both ends of one bridge connection.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer frames rw in both directions with the same size limit.
func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw, maxSize),
		FrameWriter: NewFrameWriter(rw, maxSize),
	}
}

// SetLogger traces both directions under runID.
func (f *Framer) SetLogger(logger log.Logger, runID string) {
	f.FrameReader.SetLogger(logger, runID)
	f.FrameWriter.SetLogger(logger, runID)
}
