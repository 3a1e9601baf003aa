package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"rec2vtt/internal/cuestore"
	"rec2vtt/internal/preflight"
	"rec2vtt/internal/recording"
)

const scenarioTrack = "WEBVTT\n\n" +
	"00:00:00.000 --> 00:00:00.015\n" +
	"2019-05-03 12:50:15.020\n" +
	"groundSpeed = 3\n\n"

func TestConvertToStdout(t *testing.T) {
	env := setupCLITestEnv(t)
	out, stderr, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath, "--timezone", "UTC")
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, stderr)
	}
	if out != scenarioTrack {
		t.Fatalf("unexpected track:\n%q\nwant\n%q", out, scenarioTrack)
	}
	requireContains(t, stderr, "conversion complete")
	requireContains(t, stderr, "cues=1")
}

func TestRootInvocationConverts(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "--rec", env.recPath, "--odvd", env.specPath, "--timezone", "UTC", "--no-progress")
	if err != nil {
		t.Fatalf("root convert: %v", err)
	}
	if out != scenarioTrack {
		t.Fatalf("unexpected track:\n%q", out)
	}
}

func TestRootWithoutInputsShowsHelp(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	requireContains(t, out, "Usage:")
}

func TestConvertMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.dir, "absent.rec")
	out, _, err := runCLI(t, env, "convert", "--rec", missing, "--odvd", env.specPath)
	if err == nil {
		t.Fatal("expected error for missing recording")
	}
	if !errors.Is(err, preflight.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("error should name the missing file: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no track output, got %q", out)
	}
}

func TestConvertSelectByNameAndSender(t *testing.T) {
	env := setupCLITestEnv(t)
	writeRecording(t, env.recPath, append(defaultEnvelopes(),
		speedEnvelope(7, 40_000, 8),
		speedEnvelope(7, 90_000, 9),
	))
	out, _, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath,
		"--message", "GroundSpeedReading", "--sender", "7", "--timezone", "UTC")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "00:00:00.000 --> 00:00:00.050\n")
	requireContains(t, out, "groundSpeed = 9\n")
	if strings.Contains(out, "groundSpeed = 3") {
		t.Fatalf("sender 0 leaked into track:\n%s", out)
	}
}

func TestConvertLegacyTimecodes(t *testing.T) {
	env := setupCLITestEnv(t)
	writeRecording(t, env.recPath, []recording.Envelope{
		speedEnvelope(0, 0, 1),
		speedEnvelope(0, 3_661_250_000, 2),
	})
	out, _, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath, "--legacy-timecodes")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "00:00:00.000 --> 00:00:01.250\n")

	out, _, err = runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "00:00:00.000 --> 01:01:01.250\n")
}

func TestConvertWritesExports(t *testing.T) {
	env := setupCLITestEnv(t)
	track := filepath.Join(env.dir, "out", "track.vtt")
	if err := os.MkdirAll(filepath.Dir(track), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	dbPath := filepath.Join(env.dir, "cues.db")
	promPath := filepath.Join(env.dir, "rec2vtt.prom")

	out, stderr, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath,
		"--timezone", "UTC", "--output", track, "--sqlite", dbPath, "--metrics", promPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, stderr)
	}
	if out != "" {
		t.Fatalf("stdout should be empty when --output is set, got %q", out)
	}
	data, err := os.ReadFile(track)
	if err != nil {
		t.Fatalf("read track: %v", err)
	}
	if string(data) != scenarioTrack {
		t.Fatalf("unexpected track file:\n%q", data)
	}
	if _, err := os.Stat(track + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed, stat err = %v", err)
	}

	store, err := cuestore.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open cue store: %v", err)
	}
	defer store.Close()
	runs, err := store.Runs(context.Background())
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one stored run, got %v %v", runs, err)
	}
	if runs[0].MessageName != "opendlv.proxy.GroundSpeedReading" || runs[0].CueCount != 1 {
		t.Fatalf("unexpected run: %#v", runs[0])
	}

	prom, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	requireContains(t, string(prom), `rec2vtt_cues_emitted_total{message="opendlv.proxy.GroundSpeedReading"} 1`)
	requireContains(t, string(prom), `rec2vtt_envelopes_skipped_total{message="opendlv.proxy.GroundSpeedReading",reason="other_type"} 1`)
}

func TestConvertMalformedPayloadLeavesNoTrack(t *testing.T) {
	env := setupCLITestEnv(t)
	writeRecording(t, env.recPath, append(defaultEnvelopes(), badSpeedEnvelope(40_000)))
	track := filepath.Join(env.dir, "track.vtt")

	out, _, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath, "--output", track)
	if err == nil {
		t.Fatal("expected malformed payload error")
	}
	requireContains(t, err.Error(), "malformed payload")
	if out != "" {
		t.Fatalf("stdout should stay empty, got %q", out)
	}
	requireNoOutput(t, track)
}

func TestConvertFailureKeepsPreviousTrack(t *testing.T) {
	env := setupCLITestEnv(t)
	track := filepath.Join(env.dir, "track.vtt")
	if _, _, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath, "--timezone", "UTC", "--output", track); err != nil {
		t.Fatalf("convert: %v", err)
	}

	data, err := os.ReadFile(env.recPath)
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	if err := os.WriteFile(env.recPath, data[:len(data)-3], 0o644); err != nil {
		t.Fatalf("truncate recording: %v", err)
	}
	if _, _, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath, "--timezone", "UTC", "--output", track); err == nil {
		t.Fatal("expected corrupt frame error")
	}

	got, err := os.ReadFile(track)
	if err != nil {
		t.Fatalf("read track: %v", err)
	}
	if string(got) != scenarioTrack {
		t.Fatalf("previous track was replaced:\n%q", got)
	}
}

func TestConvertRefusesLockedOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	track := filepath.Join(env.dir, "track.vtt")
	lock := flock.New(track + ".lock")
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: %v %v", ok, err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath, "--output", track)
	if err == nil {
		t.Fatal("expected lock contention error")
	}
	requireContains(t, err.Error(), "another rec2vtt process")
}

func TestConvertRejectsBadThreshold(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "convert", "--rec", env.recPath, "--odvd", env.specPath, "--threshold", "-5ms")
	if err == nil {
		t.Fatal("expected error for negative threshold")
	}
}
