package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"rec2vtt/internal/recording"
	"rec2vtt/internal/timestamp"
)

const testSpec = `
package opendlv;

message proxy.GroundSpeedReading [id = 1046] {
    float groundSpeed [id = 1];
}

message proxy.SwitchStateReading [id = 1079] {
    int16 state [id = 1];
}
`

const testBaseSeconds = 1556887815

type cliTestEnv struct {
	dir        string
	recPath    string
	specPath   string
	configPath string
}

func speedEnvelope(sender uint32, offsetUS int64, speed float32) recording.Envelope {
	payload := protowire.AppendTag(nil, 1, protowire.Fixed32Type)
	payload = protowire.AppendFixed32(payload, math.Float32bits(speed))
	sent := timestamp.FromMicroseconds(testBaseSeconds*timestamp.MicrosPerSecond + offsetUS)
	return recording.Envelope{DataType: 1046, SenderStamp: sender, Sent: sent, Received: sent, Payload: payload}
}

func switchEnvelope(offsetUS int64, state int64) recording.Envelope {
	payload := protowire.AppendTag(nil, 1, protowire.VarintType)
	payload = protowire.AppendVarint(payload, protowire.EncodeZigZag(state))
	sent := timestamp.FromMicroseconds(testBaseSeconds*timestamp.MicrosPerSecond + offsetUS)
	return recording.Envelope{DataType: 1079, Sent: sent, Received: sent, Payload: payload}
}

// badSpeedEnvelope carries groundSpeed as a varint where the schema declares
// a fixed32 float.
func badSpeedEnvelope(offsetUS int64) recording.Envelope {
	env := speedEnvelope(0, offsetUS, 0)
	env.Payload = protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 3)
	return env
}

// defaultEnvelopes holds the 0/5/20 ms ground speed scenario with an
// unrelated switch reading in between.
func defaultEnvelopes() []recording.Envelope {
	return []recording.Envelope{
		speedEnvelope(0, 0, 1),
		switchEnvelope(2_000, 1),
		speedEnvelope(0, 5_000, 2),
		speedEnvelope(0, 20_000, 3),
	}
}

func writeRecording(t *testing.T, path string, envs []recording.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := recording.NewWriter(&buf)
	for _, env := range envs {
		if err := w.Write(env); err != nil {
			t.Fatalf("write envelope: %v", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("REC2VTT_LOG_LEVEL", "")

	env := &cliTestEnv{
		dir:        dir,
		recPath:    filepath.Join(dir, "session.rec"),
		specPath:   filepath.Join(dir, "messages.odvd"),
		configPath: filepath.Join(dir, "rec2vtt.toml"),
	}
	writeRecording(t, env.recPath, defaultEnvelopes())
	if err := os.WriteFile(env.specPath, []byte(testSpec), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// requireNoOutput fails when path or any temporary sibling of it exists.
func requireNoOutput(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("%s should not exist after a failed run, stat err = %v", path, err)
	}
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed, stat err = %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", needle, haystack)
	}
}
