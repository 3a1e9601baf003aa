package config

const (
	defaultConfigPath     = "~/.config/rec2vtt/config.toml"
	projectConfigName     = "rec2vtt.toml"
	defaultMessageID      = 1046
	defaultSenderStamp    = -1
	defaultThresholdUS    = 10_000
	defaultTimecodes      = "correct"
	defaultLabelTimezone  = "local"
	defaultFloatPrecision = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultBucketPercent  = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Cue: Cue{
			MessageID:   defaultMessageID,
			SenderStamp: defaultSenderStamp,
			ThresholdUS: defaultThresholdUS,
		},
		VTT: VTT{
			Timecodes:      defaultTimecodes,
			LabelTimezone:  defaultLabelTimezone,
			FloatPrecision: defaultFloatPrecision,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Progress: Progress{
			Enabled:       true,
			BucketPercent: defaultBucketPercent,
		},
	}
}
