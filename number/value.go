// Package number models the typed values read out of binary buffers:
// a tagged Value covering integer, float and character widths, pure
// Reader descriptors that produce Values from a cursor, and Formatter
// configurations that render them.
//
// Readers and formatters are plain value types with exported fields,
// so the same reader stamp can be applied in many places and survive
// serialisation unchanged.
package number

import (
	"math"
	"math/big"
)

// Kind tags the variant a Value holds.
type Kind uint8

const (
	// KindUnsigned covers U8 through U128.
	KindUnsigned Kind = iota
	// KindSigned covers I8 through I128.
	KindSigned
	// KindFloat covers F32 and F64.
	KindFloat
	// KindCharacter is a single code point.
	KindCharacter
)

// Value is a number or character read from a buffer, tagged with its
// variant and original width.
//
// Storage is two 64-bit words: Bits holds the low 64 bits (unsigned
// value, two's-complement signed value, IEEE float bits, or code
// point) and Hi the upper 64 bits of 128-bit values.
type Value struct {
	Kind  Kind   `json:"kind"`
	Width uint8  `json:"width"` // size in bytes of the source read
	Bits  uint64 `json:"bits"`
	Hi    uint64 `json:"hi,omitempty"`
}

// U8 creates an unsigned 8-bit value.
func U8(v uint8) Value { return Value{Kind: KindUnsigned, Width: 1, Bits: uint64(v)} }

// U16 creates an unsigned 16-bit value.
func U16(v uint16) Value { return Value{Kind: KindUnsigned, Width: 2, Bits: uint64(v)} }

// U32 creates an unsigned 32-bit value.
func U32(v uint32) Value { return Value{Kind: KindUnsigned, Width: 4, Bits: uint64(v)} }

// U64 creates an unsigned 64-bit value.
func U64(v uint64) Value { return Value{Kind: KindUnsigned, Width: 8, Bits: v} }

// U128 creates an unsigned 128-bit value from two 64-bit halves.
func U128(hi, lo uint64) Value { return Value{Kind: KindUnsigned, Width: 16, Bits: lo, Hi: hi} }

// I8 creates a signed 8-bit value.
func I8(v int8) Value { return Value{Kind: KindSigned, Width: 1, Bits: uint64(int64(v))} }

// I16 creates a signed 16-bit value.
func I16(v int16) Value { return Value{Kind: KindSigned, Width: 2, Bits: uint64(int64(v))} }

// I32 creates a signed 32-bit value.
func I32(v int32) Value { return Value{Kind: KindSigned, Width: 4, Bits: uint64(int64(v))} }

// I64 creates a signed 64-bit value.
func I64(v int64) Value { return Value{Kind: KindSigned, Width: 8, Bits: uint64(v)} }

// I128 creates a signed 128-bit value from two 64-bit halves.
func I128(hi, lo uint64) Value { return Value{Kind: KindSigned, Width: 16, Bits: lo, Hi: hi} }

// F32 creates a single-precision float value.
func F32(v float32) Value {
	return Value{Kind: KindFloat, Width: 4, Bits: uint64(math.Float32bits(v))}
}

// F64 creates a double-precision float value.
func F64(v float64) Value {
	return Value{Kind: KindFloat, Width: 8, Bits: math.Float64bits(v)}
}

// Char creates a character value from a code point and the number of
// bytes it occupied in the source.
func Char(r rune, width uint8) Value {
	return Value{Kind: KindCharacter, Width: width, Bits: uint64(uint32(r))}
}

// Uint returns the value as uint64. The second return is false for
// floats, for negative signed values, and for 128-bit values that do
// not fit.
func (v Value) Uint() (uint64, bool) {
	switch v.Kind {
	case KindUnsigned, KindCharacter:
		if v.Hi != 0 {
			return 0, false
		}
		return v.Bits, true
	case KindSigned:
		if v.Hi != 0 || int64(v.Bits) < 0 {
			return 0, false
		}
		return v.Bits, true
	default:
		return 0, false
	}
}

// Int returns the value as int64. The second return is false for
// floats and values outside the int64 range.
func (v Value) Int() (int64, bool) {
	switch v.Kind {
	case KindUnsigned, KindCharacter:
		if v.Hi != 0 || v.Bits > uint64(1)<<63-1 {
			return 0, false
		}
		return int64(v.Bits), true
	case KindSigned:
		// A negative 128-bit value has all-ones Hi when it fits in 64
		// bits; a positive one has zero Hi.
		if v.Width == 16 {
			if v.Hi == 0 && int64(v.Bits) >= 0 {
				return int64(v.Bits), true
			}
			if v.Hi == ^uint64(0) && int64(v.Bits) < 0 {
				return int64(v.Bits), true
			}
			return 0, false
		}
		return int64(v.Bits), true
	default:
		return 0, false
	}
}

// Float returns the value as float64. The second return is false for
// non-float kinds.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}

	if v.Width == 4 {
		return float64(math.Float32frombits(uint32(v.Bits))), true
	}

	return math.Float64frombits(v.Bits), true
}

// Rune returns the value as a code point. The second return is false
// for non-character kinds.
func (v Value) Rune() (rune, bool) {
	if v.Kind != KindCharacter {
		return 0, false
	}

	return rune(uint32(v.Bits)), true
}

// bigInt returns the full-width integer value for display purposes.
// Floats and characters return nil.
func (v Value) bigInt() *big.Int {
	switch v.Kind {
	case KindUnsigned, KindCharacter:
		n := new(big.Int).SetUint64(v.Hi)
		n.Lsh(n, 64)
		return n.Or(n, new(big.Int).SetUint64(v.Bits))
	case KindSigned:
		if v.Width < 16 {
			return big.NewInt(int64(v.Bits))
		}
		// Reassemble the 128-bit two's-complement value.
		n := new(big.Int).SetUint64(v.Hi)
		n.Lsh(n, 64)
		n.Or(n, new(big.Int).SetUint64(v.Bits))
		if v.Hi>>63 == 1 {
			wrap := new(big.Int).Lsh(big.NewInt(1), 128)
			n.Sub(n, wrap)
		}
		return n
	default:
		return nil
	}
}

// unsignedBits returns the raw bit pattern widened to the value's full
// width, for hex/octal/binary rendering.
func (v Value) unsignedBits() *big.Int {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(v.Bits))

	if v.Kind == KindSigned && v.Width < 16 {
		// Truncate sign extension to the declared width.
		mask := new(big.Int).Lsh(big.NewInt(1), uint(v.Width)*8)
		mask.Sub(mask, big.NewInt(1))
		n.And(n, mask)
	}

	return n
}
