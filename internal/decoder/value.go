package decoder

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindUint
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindBytes
	KindChar
	// KindEnum holds an enumeration ordinal. ODVD schemas declare no enum
	// type, so the decoder never produces it; it exists for callers that
	// build values from other message sources.
	KindEnum
)

// DefaultFloatPrecision is the number of significant digits used for
// floating point rendering when none is configured.
const DefaultFloatPrecision = 10

// Value is a decoded field value. The zero Value is invalid and renders as
// an empty string.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
	b    []byte
}

func Int(v int64) Value       { return Value{kind: KindInt, i: v} }
func Uint(v uint64) Value     { return Value{kind: KindUint, u: v} }
func Float32(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func String(v string) Value   { return Value{kind: KindString, s: v} }
func Char(v byte) Value       { return Value{kind: KindChar, u: uint64(v)} }

// Enum wraps an enumeration ordinal. It renders like a signed integer.
func Enum(v int32) Value { return Value{kind: KindEnum, i: int64(v)} }

func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, u: 1}
	}
	return Value{kind: KindBool}
}

func Bytes(v []byte) Value {
	return Value{kind: KindBytes, b: append([]byte(nil), v...)}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Int64 returns the value of an integer or enum variant.
func (v Value) Int64() int64 {
	if v.kind == KindUint || v.kind == KindChar {
		return int64(v.u)
	}
	return v.i
}

// Uint64 returns the value of an unsigned variant.
func (v Value) Uint64() uint64 {
	if v.kind == KindInt || v.kind == KindEnum {
		return uint64(v.i)
	}
	return v.u
}

// Float64 returns the value of a floating point variant.
func (v Value) Float64() float64 { return v.f }

// Bool returns the value of a bool variant.
func (v Value) Bool() bool { return v.kind == KindBool && v.u != 0 }

// Str returns the value of a string variant.
func (v Value) Str() string { return v.s }

// Raw returns the value of a bytes variant.
func (v Value) Raw() []byte { return v.b }

// String renders the value with DefaultFloatPrecision.
func (v Value) String() string {
	return v.Format(DefaultFloatPrecision)
}

// Format renders the value as cue text. Floating point values use the
// shortest of fixed or exponent notation with precision significant digits.
func (v Value) Format(precision int) string {
	if precision <= 0 {
		precision = DefaultFloatPrecision
	}
	switch v.kind {
	case KindInt, KindEnum:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat32:
		return strconv.FormatFloat(v.f, 'g', precision, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', precision, 64)
	case KindBool:
		return strconv.FormatBool(v.u != 0)
	case KindString:
		return v.s
	case KindBytes:
		return hex.EncodeToString(v.b)
	case KindChar:
		c := byte(v.u)
		if c >= 0x20 && c < 0x7f {
			return string(rune(c))
		}
		return fmt.Sprintf("\\x%02x", c)
	default:
		return ""
	}
}
