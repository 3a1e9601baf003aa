package recording

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"rec2vtt/internal/timestamp"
)

func sampleEnvelopes() []Envelope {
	return []Envelope{
		{
			DataType:    1046,
			SenderStamp: 0,
			Sent:        timestamp.Timestamp{Seconds: 1556887815, Microseconds: 120_000},
			Received:    timestamp.Timestamp{Seconds: 1556887815, Microseconds: 121_000},
			SampleTime:  timestamp.Timestamp{Seconds: 1556887815, Microseconds: 119_500},
			Payload:     []byte{0x0d, 0x00, 0x00, 0x80, 0x3f},
		},
		{
			DataType:    -3,
			SenderStamp: 7,
			Sent:        timestamp.Timestamp{Seconds: 1556887816, Microseconds: 0},
		},
	}
}

func encode(t *testing.T, envs ...Envelope) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, env := range envs {
		require.NoError(t, w.Write(env))
	}
	require.Equal(t, len(envs), w.Count())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	envs := sampleEnvelopes()
	data := encode(t, envs...)

	got, err := ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, envs[0], got[0])
	assert.Equal(t, int32(-3), got[1].DataType)
	assert.Equal(t, uint32(7), got[1].SenderStamp)
	assert.Equal(t, "-3/7", got[1].Key())
}

func TestFrameHeader(t *testing.T) {
	data := encode(t, sampleEnvelopes()[0])
	require.GreaterOrEqual(t, len(data), headerSize)
	assert.Equal(t, byte(0x0D), data[0])
	assert.Equal(t, byte(0xA4), data[1])
	length := int(data[2]) | int(data[3])<<8 | int(data[4])<<16
	assert.Equal(t, len(data)-headerSize, length)
}

func TestReaderHasMoreNext(t *testing.T) {
	data := encode(t, sampleEnvelopes()...)
	r := NewReader(bytes.NewReader(data), int64(len(data)))

	assert.Equal(t, 0.0, r.Progress())
	require.True(t, r.HasMore())
	require.True(t, r.HasMore(), "HasMore must be idempotent")
	_, err := r.Next()
	require.NoError(t, err)
	require.True(t, r.HasMore())
	_, err = r.Next()
	require.NoError(t, err)

	assert.False(t, r.HasMore())
	assert.Equal(t, 100.0, r.Progress())
	assert.Equal(t, int64(len(data)), r.Offset())

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestReaderEmpty(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), 0)
	assert.False(t, r.HasMore())
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestReaderTruncatedBody(t *testing.T) {
	data := encode(t, sampleEnvelopes()...)
	truncated := data[:len(data)-3]

	r := NewReader(bytes.NewReader(truncated), int64(len(truncated)))
	_, err := r.Next()
	require.NoError(t, err)

	require.True(t, r.HasMore())
	_, err = r.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptFrame)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	assert.False(t, r.HasMore(), "reader stops after a corrupt frame")
}

func TestReaderBadMagic(t *testing.T) {
	data := encode(t, sampleEnvelopes()[0])
	data[0] = 0x00
	_, err := ReadAll(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrCorruptFrame)
}

func TestReaderPartialHeader(t *testing.T) {
	_, err := ReadAll(bytes.NewReader([]byte{0x0D, 0xA4}))
	assert.ErrorIs(t, err, ErrCorruptFrame)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	body := MarshalEnvelope(sampleEnvelopes()[0])
	body = protowire.AppendTag(body, 42, protowire.BytesType)
	body = protowire.AppendBytes(body, []byte("future"))

	env, err := UnmarshalEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, int32(1046), env.DataType)
}

func TestUnmarshalMalformed(t *testing.T) {
	body := protowire.AppendTag(nil, fieldPayload, protowire.BytesType)
	body = append(body, 0x05, 0x01)

	_, err := UnmarshalEnvelope(body)
	assert.True(t, errors.Is(err, ErrMalformedEnvelope), "got %v", err)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.rec")
	require.NoError(t, os.WriteFile(path, encode(t, sampleEnvelopes()...), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	count := 0
	for r.HasMore() {
		_, err := r.Next()
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 2, count)
	assert.NoError(t, r.Close())

	_, err = Open(filepath.Join(t.TempDir(), "missing.rec"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
