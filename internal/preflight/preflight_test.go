package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckFileReadable_OK(t *testing.T) {
	path := writeFile(t, t.TempDir(), "session.rec")
	result := CheckFileReadable("Recording", path)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
}

func TestCheckFileReadable_Failures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.rec")},
		{"directory", dir},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckFileReadable("Recording", tt.path)
			if result.Passed {
				t.Fatal("expected failure")
			}
			if !errors.Is(result.Err, ErrInputNotFound) {
				t.Fatalf("expected ErrInputNotFound, got %v", result.Err)
			}
			if !strings.Contains(result.Err.Error(), "Recording '"+tt.path+"' not found") {
				t.Fatalf("error should name the resource: %v", result.Err)
			}
		})
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryAccess("out", dir); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if result := CheckDirectoryAccess("out", filepath.Join(dir, "nope")); result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	file := writeFile(t, dir, "file.txt")
	if result := CheckDirectoryAccess("out", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "session.rec")
	spec := writeFile(t, dir, "messages.odvd")

	results := RunAll(Inputs{
		Recording:     rec,
		Specification: spec,
		OutputPath:    filepath.Join(dir, "track.vtt"),
		SQLitePath:    "",
		MetricsPath:   "-",
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if err := FirstFailure(results); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
}

func TestRunAllReportsSpecificationMissing(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "session.rec")
	spec := filepath.Join(dir, "missing.odvd")

	err := FirstFailure(RunAll(Inputs{Recording: rec, Specification: spec}))
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "Message specification") {
		t.Fatalf("error should name the specification: %v", err)
	}
}

func TestFirstFailureWithoutErr(t *testing.T) {
	err := FirstFailure([]Result{{Name: "Output directory", Detail: "/x (error: does not exist)"}})
	if err == nil || !strings.Contains(err.Error(), "Output directory") {
		t.Fatalf("unexpected error %v", err)
	}
}
