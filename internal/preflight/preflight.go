package preflight

import (
	"errors"
	"path/filepath"
)

// ErrInputNotFound reports a recording or message specification that cannot
// be found or read.
var ErrInputNotFound = errors.New("input not found")

// Result reports the outcome of a single preflight check. Err is set when
// the check failed.
type Result struct {
	Name   string
	Passed bool
	Detail string
	Err    error
}

// Inputs lists the paths a conversion reads and writes. Empty output paths
// are skipped.
type Inputs struct {
	Recording     string
	Specification string
	OutputPath    string
	SQLitePath    string
	MetricsPath   string
}

// RunAll executes all applicable checks for the given inputs. Input files
// are checked first, in the order recording then specification.
func RunAll(in Inputs) []Result {
	results := []Result{
		CheckFileReadable("Recording", in.Recording),
		CheckFileReadable("Message specification", in.Specification),
	}
	outputs := []struct {
		name string
		path string
	}{
		{"Output directory", in.OutputPath},
		{"SQLite directory", in.SQLitePath},
		{"Metrics directory", in.MetricsPath},
	}
	for _, out := range outputs {
		if out.path == "" || out.path == "-" {
			continue
		}
		results = append(results, CheckDirectoryAccess(out.name, filepath.Dir(out.path)))
	}
	return results
}

// FirstFailure returns the error of the first failed result, or nil.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if !r.Passed {
			if r.Err != nil {
				return r.Err
			}
			return errors.New(r.Name + ": " + r.Detail)
		}
	}
	return nil
}
