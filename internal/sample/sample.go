// Package sample converts audio samples between the integer and float
// representations an input device can deliver.
package sample

import (
	"fmt"
	"math"
)

// Sample is a single audio sample value.
type Sample interface {
	int8 | int16 | int32 | float32
}

// Kind identifies a sample representation at runtime.
type Kind int

const (
	Int8 Kind = iota + 1
	Int16
	Int32
	Float32
)

func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Bits returns the storage width of the representation.
func (k Kind) Bits() int {
	switch k {
	case Int8:
		return 8
	case Int16:
		return 16
	case Int32, Float32:
		return 32
	default:
		return 0
	}
}

// IsFloat reports whether k is an IEEE-754 representation.
func (k Kind) IsFloat() bool {
	return k == Float32
}

// ParseKind maps names like "int16" or "f32" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int8", "i8":
		return Int8, nil
	case "int16", "i16":
		return Int16, nil
	case "int32", "i32":
		return Int32, nil
	case "float32", "f32":
		return Float32, nil
	}
	return 0, fmt.Errorf("unknown sample format %q", s)
}

// KindOf returns the Kind of T.
func KindOf[T Sample]() Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	default:
		return Float32
	}
}

// Convert maps v to the To representation. Integer widths are rescaled by
// shifting, integer to float divides by 2^(bits-1), and float to integer is
// scaled, rounded and saturated at the integer limits. Convert never panics;
// NaN converts to zero for integer targets. When From and To are the same
// type, v is returned unchanged.
func Convert[To, From Sample](v From) To {
	switch s := any(v).(type) {
	case int8:
		return fromInt[To](int32(s), 8)
	case int16:
		return fromInt[To](int32(s), 16)
	case int32:
		return fromInt[To](s, 32)
	case float32:
		return fromFloat[To](s)
	}
	var zero To
	return zero
}

func fromInt[To Sample](v int32, bits uint) To {
	var out To
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(rescale(v, bits, 8))
	case *int16:
		*p = int16(rescale(v, bits, 16))
	case *int32:
		*p = rescale(v, bits, 32)
	case *float32:
		*p = float32(float64(v) / fullScale(bits))
	}
	return out
}

func fromFloat[To Sample](v float32) To {
	var out To
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(quantize(v, 8))
	case *int16:
		*p = int16(quantize(v, 16))
	case *int32:
		*p = int32(quantize(v, 32))
	case *float32:
		*p = v
	}
	return out
}

// rescale moves v from a from-bit integer to a to-bit integer with an
// arithmetic shift, so the sign is kept and full scale maps to full scale.
func rescale(v int32, from, to uint) int32 {
	if from > to {
		return v >> (from - to)
	}
	return v << (to - from)
}

func quantize(v float32, bits uint) int64 {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	scale := fullScale(bits)
	x := math.Round(f * scale)
	if x < -scale {
		return int64(-scale)
	}
	if x > scale-1 {
		return int64(scale - 1)
	}
	return int64(x)
}

func fullScale(bits uint) float64 {
	return float64(int64(1) << (bits - 1))
}
