package cue

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rec2vtt/internal/decoder"
	"rec2vtt/internal/timestamp"
)

var base = timestamp.New(1_556_887_815, 0)

func at(offsetMicros int64) timestamp.Timestamp {
	return base.Add(offsetMicros)
}

func speedFields(v float32) []decoder.Field {
	return []decoder.Field{{Name: "groundSpeed", Value: decoder.Float32(v)}}
}

func TestFirstRecordOnlyPrimes(t *testing.T) {
	s := New(Options{Location: time.UTC})
	_, ok := s.Process(at(0), speedFields(1))
	assert.False(t, ok)

	st := s.State()
	assert.True(t, st.Primed)
	assert.Equal(t, at(0), st.LastSeen)
	assert.Zero(t, st.Timer)
	assert.Equal(t, Stats{Processed: 1, Suppressed: 1}, s.Stats())
}

func TestThresholdBoundary(t *testing.T) {
	tests := []struct {
		name string
		gap  int64
		emit bool
	}{
		{"equal to threshold", 10_000, false},
		{"one past threshold", 10_001, true},
		{"well below", 1, false},
		{"zero gap", 0, false},
		{"negative gap", -50_000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{Location: time.UTC})
			s.Process(at(0), nil)
			c, ok := s.Process(at(tt.gap), speedFields(2))
			require.Equal(t, tt.emit, ok)
			if ok {
				assert.Equal(t, timestamp.Timestamp{}, c.Start)
				assert.Equal(t, timestamp.FromMicroseconds(tt.gap), c.End)
			}
		})
	}
}

func TestScenarioZeroFiveTwenty(t *testing.T) {
	s := New(Options{Location: time.UTC})

	_, ok := s.Process(at(0), speedFields(1))
	assert.False(t, ok, "first record primes")
	_, ok = s.Process(at(5_000), speedFields(2))
	assert.False(t, ok, "5 ms gap is suppressed")

	c, ok := s.Process(at(20_000), speedFields(3))
	require.True(t, ok)
	assert.Equal(t, timestamp.New(0, 0), c.Start)
	assert.Equal(t, timestamp.New(0, 15_000), c.End)
	assert.Equal(t, []string{"groundSpeed = 3"}, c.Lines)
	assert.Equal(t, "2019-05-03 12:50:15.020", c.Label)
	assert.Equal(t, at(20_000), c.Sent)
}

func TestCuesChain(t *testing.T) {
	s := New(Options{Location: time.UTC})
	s.Process(at(0), nil)

	first, ok := s.Process(at(1_500_000), nil)
	require.True(t, ok)
	second, ok := s.Process(at(3_750_000), nil)
	require.True(t, ok)

	assert.Equal(t, first.End, second.Start)
	assert.Equal(t, timestamp.New(1, 500_000), first.End)
	assert.Equal(t, timestamp.New(3, 750_000), second.End)
}

func TestSuppressedRecordLeavesTimerUnchanged(t *testing.T) {
	s := New(Options{})
	s.Process(at(0), nil)
	s.Process(at(50_000), nil)
	before := s.State()

	_, ok := s.Process(at(52_000), nil)
	assert.False(t, ok)
	after := s.State()
	assert.Equal(t, before.Timer, after.Timer)
	assert.Equal(t, before.PreviousTimer, after.PreviousTimer)
	assert.Equal(t, at(52_000), after.LastSeen)
}

func TestBackwardsTimeIsAbsorbed(t *testing.T) {
	s := New(Options{})
	s.Process(at(1_000_000), nil)
	_, ok := s.Process(at(0), nil)
	assert.False(t, ok)

	c, ok := s.Process(at(100_000), nil)
	require.True(t, ok)
	assert.Equal(t, timestamp.New(0, 100_000), c.End)
}

func TestCustomThreshold(t *testing.T) {
	s := New(Options{Threshold: 500_000})
	assert.Equal(t, int64(500_000), s.Threshold())
	s.Process(at(0), nil)
	_, ok := s.Process(at(400_000), nil)
	assert.False(t, ok)
	_, ok = s.Process(at(1_000_000), nil)
	assert.True(t, ok)

	assert.Equal(t, DefaultThreshold, New(Options{}).Threshold())
}

func TestRenderLines(t *testing.T) {
	fields := []decoder.Field{
		{Name: "latitude", Value: decoder.Float64(57.7089)},
		{Name: "valid", Value: decoder.Bool(true)},
		{Name: "pos.x", Value: decoder.Int(-3)},
		{Name: "tag", Value: decoder.String("front")},
	}
	assert.Equal(t, []string{
		"latitude = 57.7089",
		"valid = true",
		"pos.x = -3",
		"tag = front",
	}, RenderLines(fields, 10))
	assert.Empty(t, RenderLines(nil, 10))
}

func TestFormatLabel(t *testing.T) {
	ts := timestamp.New(1_556_887_815, 123_456)
	assert.Equal(t, "2019-05-03 12:50:15.123", FormatLabel(ts, time.UTC))

	berlin := time.FixedZone("CEST", 2*60*60)
	assert.Equal(t, "2019-05-03 14:50:15.123", FormatLabel(ts, berlin))
}

func TestSynthesizerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	gaps := gen.SliceOf(gen.Int64Range(0, 40_000))

	properties.Property("cues are ordered and contiguous for monotonic input", prop.ForAll(
		func(steps []int64) bool {
			s := New(Options{Location: time.UTC})
			now := base
			var prev *Cue
			for _, step := range steps {
				now = now.Add(step)
				c, ok := s.Process(now, nil)
				if !ok {
					continue
				}
				if c.End.Before(c.Start) {
					return false
				}
				if prev != nil && (c.Start.Before(prev.Start) || c.Start != prev.End) {
					return false
				}
				if !c.Start.Normalized() || !c.End.Normalized() {
					return false
				}
				prev = &c
			}
			return true
		},
		gaps,
	))

	properties.Property("exactly the gaps above threshold emit", prop.ForAll(
		func(steps []int64) bool {
			s := New(Options{})
			now := base
			want := 0
			for i, step := range steps {
				now = now.Add(step)
				s.Process(now, nil)
				if i > 0 && step > DefaultThreshold {
					want++
				}
			}
			st := s.Stats()
			return st.Emitted == want && st.Emitted+st.Suppressed == len(steps)
		},
		gaps,
	))

	properties.Property("virtual timer equals the sum of emitted gaps", prop.ForAll(
		func(steps []int64) bool {
			s := New(Options{})
			now := base
			var sum int64
			for i, step := range steps {
				now = now.Add(step)
				s.Process(now, nil)
				if i > 0 && step > DefaultThreshold {
					sum += step
				}
			}
			return timestamp.ToMicroseconds(s.State().Timer) == sum
		},
		gaps,
	))

	properties.TestingRun(t)
}
