// Package vtt renders cues as a WebVTT track.
package vtt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"rec2vtt/internal/cue"
	"rec2vtt/internal/timestamp"
)

// Header is the first line of every track.
const Header = "WEBVTT"

// TimecodeMode selects how cue timings are rendered.
type TimecodeMode int

const (
	// TimecodeCorrect renders hours, minutes and seconds of elapsed time.
	TimecodeCorrect TimecodeMode = iota
	// TimecodeLegacy reproduces the timings of existing rec2vtt captures,
	// where minutes and hours are always zero and only seconds modulo 60
	// survive.
	TimecodeLegacy
)

func (m TimecodeMode) String() string {
	if m == TimecodeLegacy {
		return "legacy"
	}
	return "correct"
}

// ParseTimecodeMode parses "correct" or "legacy". The empty string selects
// TimecodeCorrect.
func ParseTimecodeMode(s string) (TimecodeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "correct":
		return TimecodeCorrect, nil
	case "legacy":
		return TimecodeLegacy, nil
	}
	return TimecodeCorrect, fmt.Errorf("unknown timecode mode %q (want correct or legacy)", s)
}

// FormatTimecode renders ts as HH:MM:SS.mmm.
func FormatTimecode(ts timestamp.Timestamp, mode TimecodeMode) string {
	total := ts.Seconds
	var hours, mins, secs int64
	switch mode {
	case TimecodeLegacy:
		secs = total % 60
		mins = secs / 60
		hours = mins / 60
	default:
		hours = total / 3600
		mins = (total / 60) % 60
		secs = total % 60
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, mins, secs, ts.Milliseconds())
}

// Writer streams a track. The header is written before the first cue, or by
// Flush when the track has no cues.
type Writer struct {
	out    *bufio.Writer
	mode   TimecodeMode
	header bool
	cues   int
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer, mode TimecodeMode) *Writer {
	return &Writer{out: bufio.NewWriter(w), mode: mode}
}

func (w *Writer) writeHeader() error {
	if w.header {
		return nil
	}
	w.header = true
	_, err := w.out.WriteString(Header + "\n\n")
	return err
}

// WriteCue appends one cue block.
func (w *Writer) WriteCue(c cue.Cue) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(FormatTimecode(c.Start, w.mode))
	b.WriteString(" --> ")
	b.WriteString(FormatTimecode(c.End, w.mode))
	b.WriteByte('\n')
	if c.Label != "" {
		b.WriteString(sanitize(c.Label))
		b.WriteByte('\n')
	}
	for _, line := range c.Lines {
		b.WriteString(sanitize(line))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := w.out.WriteString(b.String()); err != nil {
		return fmt.Errorf("write cue: %w", err)
	}
	w.cues++
	return nil
}

// Flush writes any buffered data, including the header of an empty track.
func (w *Writer) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.out.Flush()
}

// Count returns the number of cues written.
func (w *Writer) Count() int { return w.cues }

var cueTextReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "-->", "->")

// sanitize keeps a payload line from ending the cue block or being read as
// a timing line.
func sanitize(line string) string {
	return cueTextReplacer.Replace(line)
}
