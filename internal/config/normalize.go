package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeCue()
	c.normalizeVTT()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeProgress()
	return nil
}

func (c *Config) normalizeCue() {
	c.Cue.MessageName = strings.TrimSpace(c.Cue.MessageName)
	if c.Cue.ThresholdUS == 0 {
		c.Cue.ThresholdUS = defaultThresholdUS
	}
}

func (c *Config) normalizeVTT() {
	c.VTT.Timecodes = strings.ToLower(strings.TrimSpace(c.VTT.Timecodes))
	if c.VTT.Timecodes == "" {
		c.VTT.Timecodes = defaultTimecodes
	}
	c.VTT.LabelTimezone = strings.TrimSpace(c.VTT.LabelTimezone)
	if c.VTT.LabelTimezone == "" {
		c.VTT.LabelTimezone = defaultLabelTimezone
	}
	if c.VTT.FloatPrecision == 0 {
		c.VTT.FloatPrecision = defaultFloatPrecision
	}
}

func (c *Config) normalizeOutput() error {
	var err error
	c.Output.Path = strings.TrimSpace(c.Output.Path)
	if c.Output.Path != "-" {
		if c.Output.Path, err = expandPath(c.Output.Path); err != nil {
			return fmt.Errorf("output.path: %w", err)
		}
	}
	if c.Output.SQLitePath, err = expandPath(strings.TrimSpace(c.Output.SQLitePath)); err != nil {
		return fmt.Errorf("output.sqlite_path: %w", err)
	}
	if c.Output.MetricsPath, err = expandPath(strings.TrimSpace(c.Output.MetricsPath)); err != nil {
		return fmt.Errorf("output.metrics_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("REC2VTT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeProgress() {
	if c.Progress.BucketPercent == 0 {
		c.Progress.BucketPercent = defaultBucketPercent
	}
}
