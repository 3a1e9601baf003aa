package decoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueFormat(t *testing.T) {
	tests := []struct {
		name      string
		value     Value
		precision int
		want      string
	}{
		{"int", Int(-42), 0, "-42"},
		{"uint", Uint(42), 0, "42"},
		{"enum", Enum(3), 0, "3"},
		{"float32 exact", Float32(0.5), 0, "0.5"},
		{"float32 widened", Float32(0.1), 10, "0.1000000015"},
		{"float32 short precision", Float32(0.1), 3, "0.1"},
		{"float64 pi", Float64(math.Pi), 10, "3.141592654"},
		{"float64 large", Float64(1234567), 10, "1234567"},
		{"float64 exponent", Float64(1e-7), 10, "1e-07"},
		{"bool true", Bool(true), 0, "true"},
		{"bool false", Bool(false), 0, "false"},
		{"string", String("hello world"), 0, "hello world"},
		{"bytes", Bytes([]byte{0x01, 0xab}), 0, "01ab"},
		{"char printable", Char('x'), 0, "x"},
		{"char control", Char(0x07), 0, `\x07`},
		{"invalid", Value{}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Format(tt.precision))
		})
	}
}

func TestValueAccessors(t *testing.T) {
	assert.Equal(t, int64(-3), Int(-3).Int64())
	assert.Equal(t, uint64(9), Uint(9).Uint64())
	assert.Equal(t, int64('a'), Char('a').Int64())
	assert.True(t, Bool(true).Bool())
	assert.False(t, String("true").Bool())
	assert.Equal(t, "s", String("s").Str())
	assert.Equal(t, 2.5, Float64(2.5).Float64())
	assert.Equal(t, KindEnum, Enum(-1).Kind())
	assert.Equal(t, int64(-1), Enum(-1).Int64())
	assert.Equal(t, "-1", Enum(-1).String())

	src := []byte{1, 2}
	v := Bytes(src)
	src[0] = 9
	assert.Equal(t, []byte{1, 2}, v.Raw(), "Bytes copies its input")
}
