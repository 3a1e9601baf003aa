// Package cue implements the cue synthesis engine: a left-to-right fold over
// the records of one message type that advances a debounced virtual timeline
// and emits subtitle cues.
package cue

import (
	"strings"
	"time"

	"rec2vtt/internal/decoder"
	"rec2vtt/internal/timestamp"
)

// DefaultThreshold is the minimum wall-clock gap, in microseconds, that a
// record must follow its predecessor by to produce a cue.
const DefaultThreshold int64 = 10_000

// LabelLayout renders the wall-clock label of a cue.
const LabelLayout = "2006-01-02 15:04:05.000"

// Cue is one subtitle entry. Start and End are virtual timeline positions;
// Sent is the wall-clock send time of the record that produced it.
type Cue struct {
	Start timestamp.Timestamp
	End   timestamp.Timestamp
	Sent  timestamp.Timestamp
	Label string
	Lines []string
}

// Options configures a Synthesizer. The zero value selects a 10 ms
// threshold, local time labels and decoder.DefaultFloatPrecision.
type Options struct {
	Threshold      int64
	Location       *time.Location
	FloatPrecision int
}

// State is a snapshot of the engine state.
type State struct {
	Primed        bool
	LastSeen      timestamp.Timestamp
	Timer         timestamp.Timestamp
	PreviousTimer timestamp.Timestamp
}

// Stats counts the records a Synthesizer has seen.
type Stats struct {
	Processed  int
	Suppressed int
	Emitted    int
}

// Synthesizer owns the state of one synthesis run. It is not safe for
// concurrent use; independent runs use independent Synthesizers.
type Synthesizer struct {
	threshold int64
	loc       *time.Location
	precision int

	state State
	stats Stats
}

// New returns a Synthesizer with fresh state.
func New(opts Options) *Synthesizer {
	s := &Synthesizer{
		threshold: opts.Threshold,
		loc:       opts.Location,
		precision: opts.FloatPrecision,
	}
	if s.threshold <= 0 {
		s.threshold = DefaultThreshold
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.precision <= 0 {
		s.precision = decoder.DefaultFloatPrecision
	}
	return s
}

// Threshold returns the debounce threshold in microseconds.
func (s *Synthesizer) Threshold() int64 { return s.threshold }

// State returns a snapshot of the engine state.
func (s *Synthesizer) State() State { return s.state }

// Stats returns the record counters.
func (s *Synthesizer) Stats() Stats { return s.stats }

// Process feeds one record into the engine. It returns the emitted cue and
// true when the record passes the debounce gate.
//
// The first record only primes the engine: its gap is measured against
// itself and never passes the gate. The last-seen wall clock moves on every
// record, gated or not, so a burst of closely spaced records keeps
// suppressing until a gap larger than the threshold appears. Gaps that are
// zero or negative always fail the gate.
func (s *Synthesizer) Process(sent timestamp.Timestamp, fields []decoder.Field) (Cue, bool) {
	s.stats.Processed++
	if !s.state.Primed {
		s.state.Primed = true
		s.state.LastSeen = sent
	}
	delta := timestamp.DeltaMicroseconds(sent, s.state.LastSeen)
	s.state.LastSeen = sent

	if delta <= s.threshold {
		s.stats.Suppressed++
		return Cue{}, false
	}

	s.state.Timer = s.state.Timer.Add(delta)
	c := Cue{
		Start: s.state.PreviousTimer,
		End:   s.state.Timer,
		Sent:  sent,
		Label: FormatLabel(sent, s.loc),
		Lines: RenderLines(fields, s.precision),
	}
	s.state.PreviousTimer = s.state.Timer
	s.stats.Emitted++
	return c, true
}

// FormatLabel renders ts as a calendar date and time with milliseconds in
// loc. A nil loc means local time.
func FormatLabel(ts timestamp.Timestamp, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return ts.Time().In(loc).Format(LabelLayout)
}

// RenderLines renders fields as "name = value" lines in order.
func RenderLines(fields []decoder.Field, precision int) []string {
	lines := make([]string, 0, len(fields))
	var b strings.Builder
	for _, f := range fields {
		b.Reset()
		b.WriteString(f.Name)
		b.WriteString(" = ")
		b.WriteString(f.Value.Format(precision))
		lines = append(lines, b.String())
	}
	return lines
}
