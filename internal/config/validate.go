package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCue(); err != nil {
		return err
	}
	if err := c.validateVTT(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCue() error {
	if c.Cue.ThresholdUS < 0 {
		return errors.New("cue.threshold_us must be positive")
	}
	if c.Cue.SenderStamp < -1 || c.Cue.SenderStamp > math.MaxUint32 {
		return fmt.Errorf("cue.sender_stamp must be -1 or between 0 and %d", uint32(math.MaxUint32))
	}
	return nil
}

func (c *Config) validateVTT() error {
	switch c.VTT.Timecodes {
	case "correct", "legacy":
	default:
		return fmt.Errorf("vtt.timecodes must be \"correct\" or \"legacy\", got %q", c.VTT.Timecodes)
	}
	if c.VTT.FloatPrecision < 1 || c.VTT.FloatPrecision > 17 {
		return errors.New("vtt.float_precision must be between 1 and 17")
	}
	if _, err := loadLocation(c.VTT.LabelTimezone); err != nil {
		return fmt.Errorf("vtt.label_timezone: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
}

func (c *Config) validateProgress() error {
	if c.Progress.BucketPercent < 1 || c.Progress.BucketPercent > 100 {
		return errors.New("progress.bucket_percent must be between 1 and 100")
	}
	return nil
}
