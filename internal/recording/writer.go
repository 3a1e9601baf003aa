package recording

import (
	"fmt"
	"io"
)

// Writer appends framed envelopes to a recording.
type Writer struct {
	dst     io.Writer
	written int
}

// NewWriter returns a Writer emitting frames to dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// Write frames and writes one envelope.
func (w *Writer) Write(env Envelope) error {
	body := MarshalEnvelope(env)
	if len(body) > MaxFrameSize {
		return fmt.Errorf("recording: envelope of %d bytes exceeds frame limit", len(body))
	}
	header := [headerSize]byte{
		frameMagic0,
		frameMagic1,
		byte(len(body)),
		byte(len(body) >> 8),
		byte(len(body) >> 16),
	}
	if _, err := w.dst.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.dst.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	w.written++
	return nil
}

// Count returns the number of envelopes written.
func (w *Writer) Count() int {
	return w.written
}
