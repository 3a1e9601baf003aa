// Package convert runs one recording through the cue pipeline: select the
// cue message, decode its payloads, synthesize cues and write the track.
//
// The pipeline is single pass and synchronous. The context is checked
// between envelopes.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rec2vtt/internal/cue"
	"rec2vtt/internal/decoder"
	"rec2vtt/internal/logging"
	"rec2vtt/internal/metrics"
	"rec2vtt/internal/odvd"
	"rec2vtt/internal/preflight"
	"rec2vtt/internal/recording"
	"rec2vtt/internal/timestamp"
	"rec2vtt/internal/vtt"
)

var (
	// ErrSchemaMismatch marks a selected envelope whose data type has no
	// descriptor in the registry. Such envelopes are skipped.
	ErrSchemaMismatch = errors.New("convert: schema mismatch")

	// ErrInputNotFound reports a missing recording or specification.
	ErrInputNotFound = preflight.ErrInputNotFound
)

// Source yields envelopes in log order.
type Source interface {
	HasMore() bool
	Next() (recording.Envelope, error)
	Progress() float64
}

// CueSink receives every emitted cue, for example a cuestore.RunWriter.
type CueSink interface {
	Add(ctx context.Context, c cue.Cue) error
}

// Options configures a Run.
type Options struct {
	Registry *odvd.Registry
	// MessageID is the data type that drives the timeline. Envelopes of any
	// other data type are skipped.
	MessageID int32
	// Sender restricts selection to one sender stamp when HasSender is set.
	Sender    uint32
	HasSender bool

	Engine    cue.Options
	Timecodes vtt.TimecodeMode

	Logger        *slog.Logger
	Progress      *logging.ProgressSampler
	Metrics       *metrics.Collector
	Sink          CueSink
	ProgressStage string
}

// Summary counts what a run did.
type Summary struct {
	Read            int
	Selected        int
	SkippedType     int
	SkippedSender   int
	SchemaMismatch  int
	Suppressed      int
	Cues            int
	VirtualDuration timestamp.Timestamp
	Elapsed         time.Duration
}

// LogAttrs returns the summary as structured log fields.
func (s Summary) LogAttrs() []any {
	return logging.Args(
		logging.Int("envelopes_read", s.Read),
		logging.Int("envelopes_selected", s.Selected),
		logging.Int("skipped_other_type", s.SkippedType),
		logging.Int("skipped_other_sender", s.SkippedSender),
		logging.Int("schema_mismatch", s.SchemaMismatch),
		logging.Int("suppressed", s.Suppressed),
		logging.Int("cues", s.Cues),
		logging.String("timeline", vtt.FormatTimecode(s.VirtualDuration, vtt.TimecodeCorrect)),
		logging.Duration("elapsed", s.Elapsed),
	)
}

// Run consumes src and writes a WebVTT track to out. The header is always
// written, so an empty or fully filtered stream yields a header-only track.
//
// Corrupt frames and malformed payloads abort the run; the track written so
// far is flushed but the error is returned.
func Run(ctx context.Context, src Source, out io.Writer, opts Options) (Summary, error) {
	if opts.Registry == nil {
		return Summary{}, errors.New("convert: no message registry")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithContext(ctx, logger)
	stage := opts.ProgressStage
	if stage == "" {
		stage = "convert"
	}

	started := time.Now()
	dec := decoder.New(opts.Registry)
	engine := cue.New(opts.Engine)
	track := vtt.NewWriter(out, opts.Timecodes)

	var summary Summary
	finish := func(runErr error) (Summary, error) {
		stats := engine.Stats()
		summary.Suppressed = stats.Suppressed
		summary.Cues = stats.Emitted
		summary.VirtualDuration = engine.State().Timer
		summary.Elapsed = time.Since(started)
		opts.Metrics.SetTimeline(float64(timestamp.ToMicroseconds(summary.VirtualDuration)) / float64(timestamp.MicrosPerSecond))
		opts.Metrics.SetRunDuration(summary.Elapsed.Seconds())
		if o, ok := src.(interface{ Offset() int64 }); ok {
			opts.Metrics.SetBytesScanned(o.Offset())
		}
		if err := track.Flush(); err != nil && runErr == nil {
			runErr = fmt.Errorf("write track: %w", err)
		}
		return summary, runErr
	}

	for src.HasMore() {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		env, err := src.Next()
		if err != nil {
			if errors.Is(err, recording.ErrEndOfStream) {
				break
			}
			return finish(fmt.Errorf("read envelope %d: %w", summary.Read+1, err))
		}
		summary.Read++
		opts.Metrics.RecordEnvelope()
		reportProgress(logger, opts.Progress, src.Progress(), stage)

		fields, err := selectAndDecode(dec, env, opts)
		switch {
		case errors.Is(err, errOtherType):
			summary.SkippedType++
			opts.Metrics.RecordSkipped(metrics.SkipOtherType)
			continue
		case errors.Is(err, errOtherSender):
			summary.SkippedSender++
			opts.Metrics.RecordSkipped(metrics.SkipOtherSender)
			continue
		case errors.Is(err, ErrSchemaMismatch):
			summary.SchemaMismatch++
			opts.Metrics.RecordSkipped(metrics.SkipSchemaMismatch)
			logger.Debug("skipping envelope without descriptor",
				logging.String(logging.FieldEventType, "schema_mismatch"),
				logging.Int64("data_type", int64(env.DataType)),
			)
			continue
		case err != nil:
			return finish(fmt.Errorf("decode envelope %d (%s): %w", summary.Read, env.Key(), err))
		}
		summary.Selected++
		opts.Metrics.RecordSelected()

		c, ok := engine.Process(env.Sent, fields)
		if !ok {
			opts.Metrics.RecordSuppressed()
			continue
		}
		gap := timestamp.DeltaMicroseconds(c.End, c.Start)
		opts.Metrics.RecordCue(float64(gap) / float64(timestamp.MicrosPerSecond))
		if err := track.WriteCue(c); err != nil {
			return finish(fmt.Errorf("write cue: %w", err))
		}
		if opts.Sink != nil {
			if err := opts.Sink.Add(ctx, c); err != nil {
				return finish(fmt.Errorf("export cue: %w", err))
			}
		}
	}
	return finish(nil)
}

var (
	errOtherType   = errors.New("other data type")
	errOtherSender = errors.New("other sender")
)

func selectAndDecode(dec *decoder.Decoder, env recording.Envelope, opts Options) ([]decoder.Field, error) {
	if env.DataType != opts.MessageID {
		return nil, errOtherType
	}
	if opts.HasSender && env.SenderStamp != opts.Sender {
		return nil, errOtherSender
	}
	desc, ok := opts.Registry.Lookup(env.DataType)
	if !ok {
		return nil, fmt.Errorf("%w: data type %d", ErrSchemaMismatch, env.DataType)
	}
	return dec.Decode(desc, env.Payload)
}

func reportProgress(logger *slog.Logger, sampler *logging.ProgressSampler, percent float64, stage string) {
	if sampler == nil {
		return
	}
	reported, emit := sampler.Observe(percent, stage)
	if !emit {
		return
	}
	logger.Info(fmt.Sprintf("processed %.0f%%", reported),
		logging.String(logging.FieldStage, stage),
		logging.String(logging.FieldEventType, "progress"),
		logging.Float64(logging.FieldPercent, reported),
	)
}
