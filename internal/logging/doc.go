// Package logging assembles structured slog loggers and formatting helpers
// used by the rec2vtt command and conversion pipeline.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so every line of a run carries its
// run identifier. Console output is colorized only when written to a
// terminal. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
