package recording

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	frameMagic0 = 0x0D
	frameMagic1 = 0xA4
	headerSize  = 5

	// MaxFrameSize is the largest payload a 24-bit frame length can describe.
	MaxFrameSize = 1<<24 - 1
)

var (
	// ErrEndOfStream is returned by Next once the recording is exhausted.
	ErrEndOfStream = errors.New("recording: end of stream")
	// ErrCorruptFrame reports broken framing: a bad header or a truncated body.
	ErrCorruptFrame = errors.New("recording: corrupt frame")
)

// Reader yields envelopes from a recording in stored order.
type Reader struct {
	src      *bufio.Reader
	closer   io.Closer
	size     int64
	consumed int64

	pending *Envelope
	err     error
	done    bool
}

// Open opens the recording at path.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	var size int64 = -1
	if info, statErr := file.Stat(); statErr == nil {
		size = info.Size()
	}
	r := NewReader(file, size)
	r.closer = file
	return r, nil
}

// NewReader wraps src. size is the total byte count used for progress
// reporting; pass a negative value when unknown.
func NewReader(src io.Reader, size int64) *Reader {
	return &Reader{src: bufio.NewReaderSize(src, 64*1024), size: size}
}

// HasMore reports whether Next will yield an envelope or a read error.
func (r *Reader) HasMore() bool {
	if r.pending != nil || r.err != nil {
		return true
	}
	if r.done {
		return false
	}
	env, err := r.readFrame()
	switch {
	case errors.Is(err, io.EOF):
		r.done = true
		return false
	case err != nil:
		r.err = err
		return true
	}
	r.pending = &env
	return true
}

// Next returns the next envelope. It returns ErrEndOfStream once the
// recording is exhausted, and a wrapped ErrCorruptFrame or
// ErrMalformedEnvelope for damaged input.
func (r *Reader) Next() (Envelope, error) {
	if !r.HasMore() {
		return Envelope{}, ErrEndOfStream
	}
	if r.err != nil {
		err := r.err
		r.err = nil
		r.done = true
		return Envelope{}, err
	}
	env := *r.pending
	r.pending = nil
	return env, nil
}

// Progress returns the percentage of the recording consumed so far, or -1 when
// the total size is unknown.
func (r *Reader) Progress() float64 {
	if r.size <= 0 {
		if r.size == 0 {
			return 100
		}
		return -1
	}
	pct := float64(r.consumed) * 100 / float64(r.size)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int64 {
	return r.consumed
}

// Close releases the underlying file when the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// readFrame returns io.EOF only on a clean frame boundary.
func (r *Reader) readFrame() (Envelope, error) {
	var header [headerSize]byte
	n, err := io.ReadFull(r.src, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Envelope{}, io.EOF
		}
		return Envelope{}, fmt.Errorf("%w at offset %d: header: %w", ErrCorruptFrame, r.consumed, err)
	}
	offset := r.consumed
	r.consumed += int64(n)
	if header[0] != frameMagic0 || header[1] != frameMagic1 {
		return Envelope{}, fmt.Errorf("%w at offset %d: bad magic %#02x%02x", ErrCorruptFrame, offset, header[0], header[1])
	}
	length := int(header[2]) | int(header[3])<<8 | int(header[4])<<16
	body := make([]byte, length)
	n, err = io.ReadFull(r.src, body)
	r.consumed += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Envelope{}, fmt.Errorf("%w at offset %d: body: %w", ErrCorruptFrame, offset, err)
	}
	env, err := UnmarshalEnvelope(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("frame at offset %d: %w", offset, err)
	}
	return env, nil
}

// ReadAll drains src and returns every envelope.
func ReadAll(src io.Reader) ([]Envelope, error) {
	r := NewReader(src, -1)
	var out []Envelope
	for r.HasMore() {
		env, err := r.Next()
		if err != nil {
			return out, err
		}
		out = append(out, env)
	}
	return out, nil
}
