// Package config loads, normalizes, and validates rec2vtt configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as REC2VTT_LOG_LEVEL.
// The Config type centralizes every knob the conversion pipeline and CLI
// need: which message drives the cue timeline, how cues are rendered, where
// exports go, and how the run logs.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical enum values, and clear validation errors.
package config
