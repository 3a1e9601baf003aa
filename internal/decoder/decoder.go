package decoder

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"rec2vtt/internal/odvd"
)

// ErrMalformedPayload reports a payload that does not match its descriptor.
var ErrMalformedPayload = errors.New("decoder: malformed payload")

// Field is one decoded field. Nested message fields are flattened, so Name
// carries the dotted path from the top-level message.
type Field struct {
	Name  string
	Type  odvd.FieldType
	Value Value
}

// Decoder decodes payloads against the descriptors of a registry.
type Decoder struct {
	reg *odvd.Registry
}

// New returns a Decoder resolving nested message types through reg.
func New(reg *odvd.Registry) *Decoder {
	return &Decoder{reg: reg}
}

// Decode decodes payload as an instance of desc. Fields are returned in
// declaration order. Fields absent from the payload carry their declared
// default or the zero value of their type. Unknown field numbers are skipped.
func (d *Decoder) Decode(desc *odvd.Descriptor, payload []byte) ([]Field, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: no descriptor", ErrMalformedPayload)
	}
	return d.decode(desc, payload, "", nil)
}

type rawField struct {
	typ   protowire.Type
	value uint64
	bytes []byte
}

func (d *Decoder) decode(desc *odvd.Descriptor, payload []byte, prefix string, out []Field) ([]Field, error) {
	raw, err := scan(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, desc.Name, err)
	}
	for _, f := range desc.Fields {
		name := prefix + f.Name
		rf, present := raw[protowire.Number(f.ID)]

		if f.Type == odvd.TypeMessage {
			nested, ok := d.reg.Resolve(desc, f)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s: unresolved type %s", ErrMalformedPayload, desc.Name, f.Name, f.TypeName)
			}
			var body []byte
			if present {
				if rf.typ != protowire.BytesType {
					return nil, mismatch(desc, f, rf.typ)
				}
				body = rf.bytes
			}
			out, err = d.decode(nested, body, name+".", out)
			if err != nil {
				return nil, err
			}
			continue
		}

		var v Value
		if present {
			v, err = convert(f, rf)
			if err != nil {
				return nil, mismatch(desc, f, rf.typ)
			}
		} else {
			v = defaultValue(f)
		}
		out = append(out, Field{Name: name, Type: f.Type, Value: v})
	}
	return out, nil
}

// scan splits payload into its last-seen value per field number.
func scan(payload []byte) (map[protowire.Number]rawField, error) {
	raw := make(map[protowire.Number]rawField)
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		payload = payload[n:]
		var rf rawField
		rf.typ = typ
		switch typ {
		case protowire.VarintType:
			rf.value, n = protowire.ConsumeVarint(payload)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(payload)
			rf.value = uint64(v)
		case protowire.Fixed64Type:
			rf.value, n = protowire.ConsumeFixed64(payload)
		case protowire.BytesType:
			rf.bytes, n = protowire.ConsumeBytes(payload)
		default:
			n = protowire.ConsumeFieldValue(num, typ, payload)
		}
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		payload = payload[n:]
		raw[num] = rf
	}
	return raw, nil
}

var errWireType = errors.New("wire type mismatch")

func mismatch(desc *odvd.Descriptor, f odvd.Field, got protowire.Type) error {
	return fmt.Errorf("%w: %s.%s: %s field carried wire type %d", ErrMalformedPayload, desc.Name, f.Name, f.Type, got)
}

func wireTypeOf(t odvd.FieldType) protowire.Type {
	switch t {
	case odvd.TypeFloat:
		return protowire.Fixed32Type
	case odvd.TypeDouble:
		return protowire.Fixed64Type
	case odvd.TypeString, odvd.TypeBytes, odvd.TypeMessage:
		return protowire.BytesType
	default:
		return protowire.VarintType
	}
}

func convert(f odvd.Field, rf rawField) (Value, error) {
	if rf.typ != wireTypeOf(f.Type) {
		return Value{}, errWireType
	}
	switch f.Type {
	case odvd.TypeBool:
		return Bool(rf.value != 0), nil
	case odvd.TypeChar:
		return Char(byte(rf.value)), nil
	case odvd.TypeInt8:
		return Int(int64(int8(protowire.DecodeZigZag(rf.value)))), nil
	case odvd.TypeInt16:
		return Int(int64(int16(protowire.DecodeZigZag(rf.value)))), nil
	case odvd.TypeInt32:
		return Int(int64(int32(protowire.DecodeZigZag(rf.value)))), nil
	case odvd.TypeInt64:
		return Int(protowire.DecodeZigZag(rf.value)), nil
	case odvd.TypeUint8:
		return Uint(uint64(uint8(rf.value))), nil
	case odvd.TypeUint16:
		return Uint(uint64(uint16(rf.value))), nil
	case odvd.TypeUint32:
		return Uint(uint64(uint32(rf.value))), nil
	case odvd.TypeUint64:
		return Uint(rf.value), nil
	case odvd.TypeFloat:
		return Float32(math.Float32frombits(uint32(rf.value))), nil
	case odvd.TypeDouble:
		return Float64(math.Float64frombits(rf.value)), nil
	case odvd.TypeString:
		return String(string(rf.bytes)), nil
	case odvd.TypeBytes:
		return Bytes(rf.bytes), nil
	}
	return Value{}, errWireType
}

// defaultValue returns the declared default of f, or the zero value of its
// type. Defaults are validated when the specification is parsed.
func defaultValue(f odvd.Field) Value {
	def := ""
	if f.HasDefault {
		def = f.Default
	}
	switch {
	case f.Type == odvd.TypeBool:
		b, _ := strconv.ParseBool(def)
		return Bool(b)
	case f.Type == odvd.TypeChar:
		if def == "" {
			return Char(0)
		}
		return Char(def[0])
	case f.Type.Signed():
		n, _ := strconv.ParseInt(def, 0, 64)
		return Int(n)
	case f.Type.Unsigned():
		n, _ := strconv.ParseUint(def, 0, 64)
		return Uint(n)
	case f.Type == odvd.TypeFloat:
		x, _ := strconv.ParseFloat(def, 32)
		return Float32(float32(x))
	case f.Type == odvd.TypeDouble:
		x, _ := strconv.ParseFloat(def, 64)
		return Float64(x)
	case f.Type == odvd.TypeString:
		return String(def)
	case f.Type == odvd.TypeBytes:
		return Bytes([]byte(def))
	}
	return Value{}
}
