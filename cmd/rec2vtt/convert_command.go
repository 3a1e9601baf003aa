package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"rec2vtt/internal/config"
	"rec2vtt/internal/convert"
	"rec2vtt/internal/cue"
	"rec2vtt/internal/cuestore"
	"rec2vtt/internal/logging"
	"rec2vtt/internal/metrics"
	"rec2vtt/internal/odvd"
	"rec2vtt/internal/preflight"
	"rec2vtt/internal/recording"
	"rec2vtt/internal/vtt"
)

type convertOptions struct {
	recording       string
	specification   string
	message         string
	sender          int64
	output          string
	sqlitePath      string
	metricsPath     string
	threshold       time.Duration
	timezone        string
	legacyTimecodes bool
	noProgress      bool
}

func bindConvertFlags(cmd *cobra.Command, opts *convertOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.recording, "rec", "", "Recording (.rec) to convert")
	flags.StringVar(&opts.specification, "odvd", "", "Message specification (.odvd) describing the recording")
	flags.StringVarP(&opts.message, "message", "m", "", "Cue message id or name (default from config, 1046)")
	flags.Int64Var(&opts.sender, "sender", -1, "Only use envelopes from this sender stamp (-1 for any)")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the track to this file instead of stdout")
	flags.StringVar(&opts.sqlitePath, "sqlite", "", "Also store cues in this SQLite database")
	flags.StringVar(&opts.metricsPath, "metrics", "", "Write run counters to this Prometheus textfile")
	flags.DurationVar(&opts.threshold, "threshold", 0, "Minimum gap between records for a new cue (default 10ms)")
	flags.StringVar(&opts.timezone, "timezone", "", "Time zone for cue labels (local, UTC or an IANA name)")
	flags.BoolVar(&opts.legacyTimecodes, "legacy-timecodes", false, "Render timecodes with minutes and hours always zero")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable progress logging")
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a recording into a WebVTT track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, ctx, opts)
		},
	}
	bindConvertFlags(cmd, opts)
	return cmd
}

// applyConvertOverrides layers explicitly set flags over cfg.
func applyConvertOverrides(cmd *cobra.Command, cfg config.Config, opts *convertOptions) (config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("message") {
		cfg.Cue.MessageName = strings.TrimSpace(opts.message)
	}
	if flags.Changed("sender") {
		cfg.Cue.SenderStamp = opts.sender
	}
	if flags.Changed("threshold") {
		if opts.threshold <= 0 {
			return cfg, errors.New("--threshold must be positive")
		}
		cfg.Cue.ThresholdUS = opts.threshold.Microseconds()
	}
	if flags.Changed("timezone") {
		cfg.VTT.LabelTimezone = strings.TrimSpace(opts.timezone)
	}
	if opts.legacyTimecodes {
		cfg.VTT.Timecodes = vtt.TimecodeLegacy.String()
	}
	if opts.noProgress {
		cfg.Progress.Enabled = false
	}
	paths := []struct {
		flag   string
		value  string
		target *string
	}{
		{"output", opts.output, &cfg.Output.Path},
		{"sqlite", opts.sqlitePath, &cfg.Output.SQLitePath},
		{"metrics", opts.metricsPath, &cfg.Output.MetricsPath},
	}
	for _, p := range paths {
		if !flags.Changed(p.flag) {
			continue
		}
		value := strings.TrimSpace(p.value)
		if value == "-" {
			*p.target = value
			continue
		}
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return cfg, fmt.Errorf("--%s: %w", p.flag, err)
		}
		*p.target = expanded
	}
	return cfg, cfg.Validate()
}

func expandInput(flag, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("--%s is required", flag)
	}
	return config.ExpandPath(value)
}

func runConvert(cmd *cobra.Command, ctx *commandContext, opts *convertOptions) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyConvertOverrides(cmd, *base, opts)
	if err != nil {
		return err
	}
	recPath, err := expandInput("rec", opts.recording)
	if err != nil {
		return err
	}
	specPath, err := expandInput("odvd", opts.specification)
	if err != nil {
		return err
	}

	if err := preflight.FirstFailure(preflight.RunAll(preflight.Inputs{
		Recording:     recPath,
		Specification: specPath,
		OutputPath:    cfg.Output.Path,
		SQLitePath:    cfg.Output.SQLitePath,
		MetricsPath:   cfg.Output.MetricsPath,
	})); err != nil {
		return err
	}

	logger, err := ctx.logger(cmd)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	runCtx := logging.ContextWithRunID(cmd.Context(), runID)
	logger = logging.WithContext(runCtx, logging.NewComponentLogger(logger, "convert"))

	reg, err := odvd.ParseFile(specPath)
	if err != nil {
		return fmt.Errorf("load message specification: %w", err)
	}
	messageID, desc, err := convert.ResolveMessage(reg, cfg.Selector())
	if err != nil {
		return fmt.Errorf("select cue message: %w", err)
	}
	messageName := strconv.FormatInt(int64(messageID), 10)
	if desc != nil {
		messageName = desc.QualifiedName()
	} else {
		logger.Warn("cue message not described by specification; every selected envelope will be skipped",
			logging.Int64("message_id", int64(messageID)),
			logging.String(logging.FieldEventType, "schema_mismatch"),
		)
	}
	loc, err := cfg.LabelLocation()
	if err != nil {
		return err
	}
	mode, err := vtt.ParseTimecodeMode(cfg.VTT.Timecodes)
	if err != nil {
		return err
	}

	src, err := recording.Open(recPath)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer src.Close()

	out, err := openTrackOutput(cmd, cfg.Output.Path)
	if err != nil {
		return err
	}
	defer out.Release()

	var collector *metrics.Collector
	if cfg.Output.MetricsPath != "" {
		collector = metrics.NewCollector(prometheus.Labels{"message": messageName})
	}

	runOpts := convert.Options{
		Registry:  reg,
		MessageID: messageID,
		Engine: cue.Options{
			Threshold:      cfg.Cue.ThresholdUS,
			Location:       loc,
			FloatPrecision: cfg.VTT.FloatPrecision,
		},
		Timecodes: mode,
		Logger:    logger,
		Metrics:   collector,
	}
	runOpts.Sender, runOpts.HasSender = cfg.SenderFilter()
	if cfg.Progress.Enabled {
		runOpts.Progress = logging.NewProgressSampler(float64(cfg.Progress.BucketPercent))
	}

	logger.Info("converting recording",
		logging.String("recording", recPath),
		logging.String("specification", specPath),
		logging.String("message", messageName),
		logging.Micros("threshold", cfg.Cue.ThresholdUS),
		logging.String("timecodes", mode.String()),
	)

	var summary convert.Summary
	if cfg.Output.SQLitePath != "" {
		summary, err = runWithCueStore(runCtx, cfg.Output.SQLitePath, cuestore.Run{
			ID:            runID,
			Recording:     recPath,
			Specification: specPath,
			MessageID:     messageID,
			MessageName:   messageName,
		}, src, out, runOpts)
	} else {
		summary, err = convert.Run(runCtx, src, out, runOpts)
	}
	if err != nil {
		logger.Error("conversion failed", logging.Error(err))
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}

	logger.Info("conversion complete", summary.LogAttrs()...)
	if collector != nil {
		if err := collector.WriteTextfile(cfg.Output.MetricsPath); err != nil {
			return err
		}
		logger.Debug("wrote metrics", logging.String("path", cfg.Output.MetricsPath))
	}
	return nil
}

func runWithCueStore(ctx context.Context, path string, run cuestore.Run, src convert.Source, out io.Writer, opts convert.Options) (convert.Summary, error) {
	store, err := cuestore.Open(ctx, path)
	if err != nil {
		return convert.Summary{}, fmt.Errorf("open cue store: %w", err)
	}
	defer store.Close()

	writer, err := store.StartRun(ctx, run)
	if err != nil {
		return convert.Summary{}, err
	}
	opts.Sink = writer
	summary, err := convert.Run(ctx, src, out, opts)
	if err != nil {
		_ = writer.Rollback()
		return summary, err
	}
	// The track is complete here; a late signal must not discard the run.
	if err := writer.Commit(context.WithoutCancel(ctx)); err != nil {
		return summary, err
	}
	loggerFrom(opts.Logger).Info("stored cues",
		logging.String("path", path),
		logging.Int("cues", summary.Cues),
	)
	return summary, nil
}

func loggerFrom(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return logging.NewNop()
	}
	return logger
}
