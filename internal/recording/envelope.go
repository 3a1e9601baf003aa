package recording

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"rec2vtt/internal/timestamp"
)

// Envelope field numbers of cluon.data.Envelope.
const (
	fieldDataType    protowire.Number = 1
	fieldPayload     protowire.Number = 2
	fieldSent        protowire.Number = 3
	fieldReceived    protowire.Number = 4
	fieldSampleTime  protowire.Number = 5
	fieldSenderStamp protowire.Number = 6

	fieldSeconds      protowire.Number = 1
	fieldMicroseconds protowire.Number = 2
)

// ErrMalformedEnvelope reports an envelope whose protobuf body cannot be parsed.
var ErrMalformedEnvelope = errors.New("recording: malformed envelope")

// Envelope is one recorded message.
type Envelope struct {
	DataType    int32
	SenderStamp uint32
	Sent        timestamp.Timestamp
	Received    timestamp.Timestamp
	SampleTime  timestamp.Timestamp
	Payload     []byte
}

// Key identifies the (type, sender) stream an envelope belongs to.
func (e Envelope) Key() string {
	return fmt.Sprintf("%d/%d", e.DataType, e.SenderStamp)
}

// MarshalEnvelope encodes env in the libcluon wire format. Signed integers are
// zig-zag encoded.
func MarshalEnvelope(env Envelope) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldDataType, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(env.DataType)))
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, env.Payload)
	b = appendTimestamp(b, fieldSent, env.Sent)
	b = appendTimestamp(b, fieldReceived, env.Received)
	b = appendTimestamp(b, fieldSampleTime, env.SampleTime)
	b = protowire.AppendTag(b, fieldSenderStamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.SenderStamp))
	return b
}

func appendTimestamp(b []byte, num protowire.Number, ts timestamp.Timestamp) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, fieldSeconds, protowire.VarintType)
	inner = protowire.AppendVarint(inner, protowire.EncodeZigZag(ts.Seconds))
	inner = protowire.AppendTag(inner, fieldMicroseconds, protowire.VarintType)
	inner = protowire.AppendVarint(inner, protowire.EncodeZigZag(ts.Microseconds))
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

// UnmarshalEnvelope decodes a libcluon envelope. Unknown fields are skipped.
func UnmarshalEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldDataType && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return Envelope{}, fmt.Errorf("%w: data type: %v", ErrMalformedEnvelope, protowire.ParseError(m))
			}
			env.DataType = int32(protowire.DecodeZigZag(v))
			n = m
		case num == fieldSenderStamp && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return Envelope{}, fmt.Errorf("%w: sender stamp: %v", ErrMalformedEnvelope, protowire.ParseError(m))
			}
			env.SenderStamp = uint32(v)
			n = m
		case num == fieldPayload && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return Envelope{}, fmt.Errorf("%w: payload: %v", ErrMalformedEnvelope, protowire.ParseError(m))
			}
			env.Payload = append([]byte(nil), v...)
			n = m
		case (num == fieldSent || num == fieldReceived || num == fieldSampleTime) && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return Envelope{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedEnvelope, protowire.ParseError(m))
			}
			ts, err := parseTimestamp(v)
			if err != nil {
				return Envelope{}, err
			}
			switch num {
			case fieldSent:
				env.Sent = ts
			case fieldReceived:
				env.Received = ts
			default:
				env.SampleTime = ts
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Envelope{}, fmt.Errorf("%w: field %d: %v", ErrMalformedEnvelope, num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return env, nil
}

func parseTimestamp(b []byte) (timestamp.Timestamp, error) {
	var secs, micros int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return timestamp.Timestamp{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return timestamp.Timestamp{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return timestamp.Timestamp{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedEnvelope, protowire.ParseError(m))
		}
		switch num {
		case fieldSeconds:
			secs = protowire.DecodeZigZag(v)
		case fieldMicroseconds:
			micros = protowire.DecodeZigZag(v)
		}
		b = b[m:]
	}
	return timestamp.New(secs, micros), nil
}
