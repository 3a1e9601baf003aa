// Package timestamp implements the microsecond-precision time values carried
// by recorded envelopes and the virtual cue timeline.
//
// A Timestamp is a (seconds, microseconds) pair. Values built through this
// package are normalized so that Microseconds stays in [0, 1e6); arithmetic is
// done on signed microsecond counts and converted back with floor semantics,
// which keeps the invariant for negative totals as well.
package timestamp

import (
	"fmt"
	"time"
)

// MicrosPerSecond is the number of microseconds in one second.
const MicrosPerSecond int64 = 1_000_000

// Timestamp is a wall-clock or virtual instant with microsecond resolution.
type Timestamp struct {
	Seconds      int64
	Microseconds int64
}

// New returns the normalized timestamp for the given seconds and microseconds.
// Microsecond overflow carries into seconds.
func New(seconds, micros int64) Timestamp {
	return FromMicroseconds(seconds*MicrosPerSecond + micros)
}

// FromMicroseconds rebuilds a normalized timestamp from a microsecond count.
func FromMicroseconds(total int64) Timestamp {
	secs := total / MicrosPerSecond
	rem := total % MicrosPerSecond
	if rem < 0 {
		secs--
		rem += MicrosPerSecond
	}
	return Timestamp{Seconds: secs, Microseconds: rem}
}

// ToMicroseconds returns the total microsecond count represented by t.
func ToMicroseconds(t Timestamp) int64 {
	return t.Seconds*MicrosPerSecond + t.Microseconds
}

// DeltaMicroseconds returns a - b in microseconds. The result may be negative.
func DeltaMicroseconds(a, b Timestamp) int64 {
	return (a.Seconds-b.Seconds)*MicrosPerSecond + (a.Microseconds - b.Microseconds)
}

// FromTime converts a time.Time, truncating below microsecond resolution.
func FromTime(t time.Time) Timestamp {
	return FromMicroseconds(t.UnixMicro())
}

// Time returns t as a time.Time in the local time zone.
func (t Timestamp) Time() time.Time {
	return time.UnixMicro(ToMicroseconds(t))
}

// Add returns t advanced by delta microseconds.
func (t Timestamp) Add(delta int64) Timestamp {
	return FromMicroseconds(ToMicroseconds(t) + delta)
}

// Normalized reports whether the microsecond component is in range.
func (t Timestamp) Normalized() bool {
	return t.Microseconds >= 0 && t.Microseconds < MicrosPerSecond
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to, or
// after u.
func (t Timestamp) Compare(u Timestamp) int {
	d := DeltaMicroseconds(t, u)
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool {
	return t.Compare(u) < 0
}

// Milliseconds returns the millisecond part of the fractional second.
func (t Timestamp) Milliseconds() int64 {
	return t.Microseconds / 1000
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%06d", t.Seconds, t.Microseconds)
}
