package setting

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ///////////////////////////////////////////////
// Infer
// ///////////////////////////////////////////////

func TestInfer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Value
	}{
		{"int", "42", Int(42)},
		{"negative int", "-7", Int(-7)},
		{"one is int not bool", "1", Int(1)},
		{"float", "3.5", Float(3.5)},
		{"float exponent", "1e-07", Float(1e-07)},
		{"leading dot float", ".25", Float(0.25)},
		{"true", "True", Bool(true)},
		{"false", "False", Bool(false)},
		{"lowercase true is string", "true", String("true")},
		{"truee is string", "Truee", String("Truee")},
		{"hex is string", "0x10", String("0x10")},
		{"underscore is string", "1_000", String("1_000")},
		{"empty is string", "", String("")},
		{"path is string", "/sdcard/dolphin", String("/sdcard/dolphin")},
		{"nan", "NaN", Float(math.NaN())},
		{"infinity", "Infinity", Float(math.Inf(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.text)
			assert.Equal(t, tt.want.Kind(), got.Kind())
			assert.True(t, tt.want.Equal(got), "Infer(%q) = %#v, want %#v", tt.text, got, tt.want)
		})
	}
}

// ///////////////////////////////////////////////
// Text
// ///////////////////////////////////////////////

func TestValueText(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Bool(true), "True"},
		{Bool(false), "False"},
		{Int(-12), "-12"},
		{Float(1), "1.0"},
		{Float(0.5), "0.5"},
		{Float(1e21), "1e+21"},
		{Float(math.Inf(-1)), "-Infinity"},
		{String("Video_Hardware"), "Video_Hardware"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.Text())
	}
}

func TestTextInfersBackToSameKind(t *testing.T) {
	values := []Value{
		Bool(true), Bool(false),
		Int(0), Int(math.MaxInt64), Int(math.MinInt64),
		Float(0), Float(1), Float(-2.5), Float(1e300), Float(1.0 / 3.0),
		String("hello world"), String("a = b"),
	}
	for _, v := range values {
		got := Infer(v.Text())
		assert.True(t, v.Equal(got), "round trip of %#v produced %#v", v, got)
	}
}

// ///////////////////////////////////////////////
// Coercion
// ///////////////////////////////////////////////

func TestCoercion(t *testing.T) {
	i, err := Float(2.9).AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(2), i)

	f, err := Int(3).AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	f, err = String("1.5").AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	b, err := String("True").AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	assert.Equal(t, "42", Int(42).AsString())
	assert.Equal(t, "False", Bool(false).AsString())
}

func TestCoercionMismatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"string as int", func() error { _, err := String("abc").AsInt(); return err }},
		{"string float as int", func() error { _, err := String("1.5").AsInt(); return err }},
		{"string as float", func() error { _, err := String("fast").AsFloat(); return err }},
		{"string as bool", func() error { _, err := String("yes").AsBool(); return err }},
		{"int as bool", func() error { _, err := Int(1).AsBool(); return err }},
		{"bool as int", func() error { _, err := Bool(true).AsInt(); return err }},
		{"nan as int", func() error { _, err := Float(math.NaN()).AsInt(); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTypeMismatch))
		})
	}
}

func TestConvert(t *testing.T) {
	v, err := String("7").Convert(KindInt)
	require.NoError(t, err)
	assert.True(t, Int(7).Equal(v))

	v, err = Bool(true).Convert(KindString)
	require.NoError(t, err)
	assert.True(t, String("True").Equal(v))

	_, err = String("seven").Convert(KindInt)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
