package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Cue selects the message that drives the cue timeline.
type Cue struct {
	MessageID   int32  `toml:"message_id"`
	MessageName string `toml:"message_name"` // takes precedence over message_id when set
	SenderStamp int64  `toml:"sender_stamp"` // -1 accepts every sender
	ThresholdUS int64  `toml:"threshold_us"`
}

// VTT contains cue rendering settings.
type VTT struct {
	Timecodes      string `toml:"timecodes"`
	LabelTimezone  string `toml:"label_timezone"`
	FloatPrecision int    `toml:"float_precision"`
}

// Output contains destinations for the track and optional exports. An empty
// Path or "-" writes the track to standard output.
type Output struct {
	Path        string `toml:"path"`
	SQLitePath  string `toml:"sqlite_path"`
	MetricsPath string `toml:"metrics_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Progress controls progress reporting while a recording is consumed.
type Progress struct {
	Enabled       bool `toml:"enabled"`
	BucketPercent int  `toml:"bucket_percent"`
}

// Config encapsulates all configuration values for rec2vtt.
//
// Configuration sections:
//   - Cue: message selection and debounce threshold
//   - VTT: timecode arithmetic, label time zone, float precision
//   - Output: track destination, SQLite cue export, metrics textfile
//   - Logging: log format and level
//   - Progress: progress reporting cadence
type Config struct {
	Cue      Cue      `toml:"cue"`
	VTT      VTT      `toml:"vtt"`
	Output   Output   `toml:"output"`
	Logging  Logging  `toml:"logging"`
	Progress Progress `toml:"progress"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Selector returns the message selector used to look up the cue message:
// the configured name when set, otherwise the numeric identifier.
func (c *Config) Selector() string {
	if name := strings.TrimSpace(c.Cue.MessageName); name != "" {
		return name
	}
	return strconv.FormatInt(int64(c.Cue.MessageID), 10)
}

// SenderFilter returns the sender stamp to restrict to and whether the
// restriction applies.
func (c *Config) SenderFilter() (uint32, bool) {
	if c.Cue.SenderStamp < 0 {
		return 0, false
	}
	return uint32(c.Cue.SenderStamp), true
}

// LabelLocation resolves the time zone for wall-clock cue labels.
func (c *Config) LabelLocation() (*time.Location, error) {
	return loadLocation(c.VTT.LabelTimezone)
}

// StdoutOutput reports whether the track goes to standard output.
func (c *Config) StdoutOutput() bool {
	return c.Output.Path == "" || c.Output.Path == "-"
}

func loadLocation(name string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return time.Local, nil
	case "utc":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
