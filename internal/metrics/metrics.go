// Package metrics collects conversion run counters in a private Prometheus
// registry and writes them as a node-exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons recorded by RecordSkipped.
const (
	SkipOtherType      = "other_type"
	SkipOtherSender    = "other_sender"
	SkipSchemaMismatch = "schema_mismatch"
)

// Collector holds the counters of one conversion run. A nil *Collector
// accepts every call and records nothing.
type Collector struct {
	registry *prometheus.Registry

	envelopesRead     prometheus.Counter
	envelopesSelected prometheus.Counter
	envelopesSkipped  *prometheus.CounterVec
	recordsSuppressed prometheus.Counter
	cuesEmitted       prometheus.Counter

	cueGap       prometheus.Histogram
	timeline     prometheus.Gauge
	runDuration  prometheus.Gauge
	bytesScanned prometheus.Gauge
}

// NewCollector creates a collector whose series carry the given constant
// labels, typically the selected message.
func NewCollector(constLabels prometheus.Labels) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		envelopesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rec2vtt_envelopes_read_total",
			Help:        "Envelopes read from the recording.",
			ConstLabels: constLabels,
		}),
		envelopesSelected: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rec2vtt_envelopes_selected_total",
			Help:        "Envelopes of the selected message fed to the cue engine.",
			ConstLabels: constLabels,
		}),
		envelopesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rec2vtt_envelopes_skipped_total",
			Help:        "Envelopes not fed to the cue engine, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		recordsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rec2vtt_records_suppressed_total",
			Help:        "Selected records dropped by the debounce gate.",
			ConstLabels: constLabels,
		}),
		cuesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rec2vtt_cues_emitted_total",
			Help:        "Cues written to the track.",
			ConstLabels: constLabels,
		}),
		cueGap: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "rec2vtt_cue_gap_seconds",
			Help:        "Wall-clock gap that opened each cue.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.02, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		timeline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rec2vtt_virtual_timeline_seconds",
			Help:        "Length of the virtual cue timeline.",
			ConstLabels: constLabels,
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rec2vtt_run_duration_seconds",
			Help:        "Wall time spent converting the recording.",
			ConstLabels: constLabels,
		}),
		bytesScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rec2vtt_recording_bytes",
			Help:        "Bytes of the recording consumed.",
			ConstLabels: constLabels,
		}),
	}

	c.registry.MustRegister(
		c.envelopesRead,
		c.envelopesSelected,
		c.envelopesSkipped,
		c.recordsSuppressed,
		c.cuesEmitted,
		c.cueGap,
		c.timeline,
		c.runDuration,
		c.bytesScanned,
	)
	return c
}

// Registry exposes the collector's registry for gathering.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) RecordEnvelope() {
	if c != nil {
		c.envelopesRead.Inc()
	}
}

func (c *Collector) RecordSelected() {
	if c != nil {
		c.envelopesSelected.Inc()
	}
}

func (c *Collector) RecordSkipped(reason string) {
	if c != nil {
		c.envelopesSkipped.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) RecordSuppressed() {
	if c != nil {
		c.recordsSuppressed.Inc()
	}
}

// RecordCue counts an emitted cue and the gap, in seconds, that opened it.
func (c *Collector) RecordCue(gapSeconds float64) {
	if c != nil {
		c.cuesEmitted.Inc()
		c.cueGap.Observe(gapSeconds)
	}
}

func (c *Collector) SetTimeline(seconds float64) {
	if c != nil {
		c.timeline.Set(seconds)
	}
}

func (c *Collector) SetRunDuration(seconds float64) {
	if c != nil {
		c.runDuration.Set(seconds)
	}
}

func (c *Collector) SetBytesScanned(n int64) {
	if c != nil {
		c.bytesScanned.Set(float64(n))
	}
}

// WriteTextfile atomically writes the collected series to path in the
// Prometheus text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
