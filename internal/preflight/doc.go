// Package preflight checks the filesystem paths a conversion depends on
// before any output is produced.
//
// The convert command calls RunAll and aborts on the first failed check, so
// a missing recording or message specification is reported by name with no
// subtitle output written. Output directories are checked only when the
// corresponding destination is configured.
package preflight
