// Package setting defines the typed value model shared by every settings file.
//
// A [Value] is a tagged union over the four kinds a settings file can hold:
// booleans, 64-bit integers, double-precision floats, and strings. Values are
// produced either by callers or by [Infer] when a file is parsed, and every
// value can render itself as canonical text via [Value.Text].
package setting

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrTypeMismatch is returned when a value cannot be read as the requested kind,
// for example a String holding "abc" read as an Int.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrKindChanged is returned by [Setting.Set] when the new value has a different
// kind than the one the setting was constructed with.
var ErrKindChanged = errors.New("setting kind cannot change")

// ///////////////////////////////////////////////
// Kind
// ///////////////////////////////////////////////

// Kind identifies which variant a [Value] holds.
type Kind uint8

const (
	// KindString is the catch-all kind; it is also the zero Kind.
	KindString Kind = iota
	// KindBool holds True/False.
	KindBool
	// KindInt holds a signed 64-bit integer.
	KindInt
	// KindFloat holds a double-precision float.
	KindFloat
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// ///////////////////////////////////////////////
// Value
// ///////////////////////////////////////////////

// Value is an immutable tagged union of bool, int64, float64 and string.
// The zero Value is the empty String.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Bool returns a KindBool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a KindInt value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a KindFloat value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a KindString value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Text renders v in the canonical on-disk form. Booleans render as
// "True"/"False". Floats always carry a decimal point or exponent so that the
// text infers back to a Float.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// GoString makes values readable in test failure output.
func (v Value) GoString() string {
	return fmt.Sprintf("%s(%s)", v.kind, v.Text())
}

// Equal reports whether v and o hold the same kind and value. NaN floats are
// equal to each other so that a parsed NaN round-trips.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(o.f) {
			return true
		}
		return v.f == o.f
	case KindString:
		return v.s == o.s
	default:
		return false
	}
}

// ///////////////////////////////////////////////
// Coercion
// ///////////////////////////////////////////////

// AsBool reads v as a boolean. Strings must be exactly "True" or "False";
// numeric kinds are a mismatch.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindString:
		if b, ok := parseBool(v.s); ok {
			return b, nil
		}
		return false, mismatch(v, KindBool)
	case KindInt, KindFloat:
		return false, mismatch(v, KindBool)
	default:
		return false, mismatch(v, KindBool)
	}
}

// AsInt reads v as an int64. Floats truncate toward zero; strings must parse
// as a base-10 integer.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return 0, mismatch(v, KindInt)
		}
		return int64(v.f), nil
	case KindString:
		if i, ok := parseInt(v.s); ok {
			return i, nil
		}
		return 0, mismatch(v, KindInt)
	case KindBool:
		return 0, mismatch(v, KindInt)
	default:
		return 0, mismatch(v, KindInt)
	}
}

// AsFloat reads v as a float64. Ints widen; strings must parse as a number.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	case KindString:
		if i, ok := parseInt(v.s); ok {
			return float64(i), nil
		}
		if f, ok := parseFloat(v.s); ok {
			return f, nil
		}
		return 0, mismatch(v, KindFloat)
	case KindBool:
		return 0, mismatch(v, KindFloat)
	default:
		return 0, mismatch(v, KindFloat)
	}
}

// AsString returns the canonical text of v. It never fails.
func (v Value) AsString() string {
	return v.Text()
}

// Convert returns v re-expressed as kind k, or ErrTypeMismatch.
func (v Value) Convert(k Kind) (Value, error) {
	switch k {
	case KindBool:
		b, err := v.AsBool()
		return Bool(b), err
	case KindInt:
		i, err := v.AsInt()
		return Int(i), err
	case KindFloat:
		f, err := v.AsFloat()
		return Float(f), err
	case KindString:
		return String(v.AsString()), nil
	default:
		return Value{}, mismatch(v, k)
	}
}

func mismatch(v Value, want Kind) error {
	return fmt.Errorf("%w: %s %q is not a valid %s", ErrTypeMismatch, v.kind, v.Text(), want)
}

// ///////////////////////////////////////////////
// Inference
// ///////////////////////////////////////////////

// Infer converts raw file text into a Value, trying int64, then float64, then
// the exact booleans "True"/"False", and falling back to String. The first
// successful parse wins, so "1" is an Int and never a Bool.
func Infer(text string) Value {
	if i, ok := parseInt(text); ok {
		return Int(i)
	}
	if f, ok := parseFloat(text); ok {
		return Float(f)
	}
	if b, ok := parseBool(text); ok {
		return Bool(b)
	}
	return String(text)
}

// floatRe is the accepted decimal float grammar. strconv.ParseFloat alone is
// too permissive (hex floats, "inf", underscores).
var floatRe = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

func parseInt(s string) (int64, bool) {
	i, err := strconv.ParseInt(s, 10, 64)
	return i, err == nil
}

func parseFloat(s string) (float64, bool) {
	switch s {
	case "NaN":
		return math.NaN(), true
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	if !floatRe.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True":
		return true, true
	case "False":
		return false, true
	default:
		return false, false
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
