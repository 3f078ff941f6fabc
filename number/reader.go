package number

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/binscope/binscope/cursor"
	"github.com/binscope/binscope/errs"
)

// Endianness aliases the cursor's byte-order selector so reader
// literals stay self-contained.
type Endianness = cursor.ByteOrder

const (
	// LittleEndian reads least-significant byte first.
	LittleEndian = cursor.LittleEndian
	// BigEndian reads most-significant byte first.
	BigEndian = cursor.BigEndian
)

// ReaderKind tags the variant a Reader decodes.
type ReaderKind uint8

const (
	// ReadUnsigned decodes an unsigned integer of Width bytes.
	ReadUnsigned ReaderKind = iota
	// ReadSigned decodes a two's-complement integer of Width bytes.
	ReadSigned
	// ReadFloat decodes an IEEE 754 float of Width (4 or 8) bytes.
	ReadFloat
	// ReadCharacter decodes one code point in Encoding.
	ReadCharacter
)

// CharEncoding selects how a character reader decodes code points.
type CharEncoding uint8

const (
	// EncodingASCII is one byte per character; bytes above 0x7F fail.
	EncodingASCII CharEncoding = iota
	// EncodingUTF8 is 1-4 bytes per character.
	EncodingUTF8
	// EncodingUTF16LE is 2 or 4 bytes per character, little-endian.
	EncodingUTF16LE
	// EncodingUTF16BE is 2 or 4 bytes per character, big-endian.
	EncodingUTF16BE
	// EncodingLatin1 is one byte per character, ISO 8859-1.
	EncodingLatin1
)

// Reader is a pure descriptor of a primitive read: variant, width,
// byte order and (for characters) encoding. It is a value type; the
// same reader is stamped onto many offsets.
type Reader struct {
	Kind     ReaderKind   `json:"kind"`
	Width    uint8        `json:"width,omitempty"`
	Endian   Endianness   `json:"endian,omitempty"`
	Encoding CharEncoding `json:"encoding,omitempty"`
}

// Common reader stamps.
var (
	ReaderU8    = Reader{Kind: ReadUnsigned, Width: 1}
	ReaderU16LE = Reader{Kind: ReadUnsigned, Width: 2, Endian: LittleEndian}
	ReaderU16BE = Reader{Kind: ReadUnsigned, Width: 2, Endian: BigEndian}
	ReaderU32LE = Reader{Kind: ReadUnsigned, Width: 4, Endian: LittleEndian}
	ReaderU32BE = Reader{Kind: ReadUnsigned, Width: 4, Endian: BigEndian}
	ReaderU64LE = Reader{Kind: ReadUnsigned, Width: 8, Endian: LittleEndian}
	ReaderU64BE = Reader{Kind: ReadUnsigned, Width: 8, Endian: BigEndian}
	ReaderI8    = Reader{Kind: ReadSigned, Width: 1}
	ReaderI16LE = Reader{Kind: ReadSigned, Width: 2, Endian: LittleEndian}
	ReaderI16BE = Reader{Kind: ReadSigned, Width: 2, Endian: BigEndian}
	ReaderI32LE = Reader{Kind: ReadSigned, Width: 4, Endian: LittleEndian}
	ReaderI32BE = Reader{Kind: ReadSigned, Width: 4, Endian: BigEndian}
	ReaderI64LE = Reader{Kind: ReadSigned, Width: 8, Endian: LittleEndian}
	ReaderI64BE = Reader{Kind: ReadSigned, Width: 8, Endian: BigEndian}
	ReaderF32LE = Reader{Kind: ReadFloat, Width: 4, Endian: LittleEndian}
	ReaderF32BE = Reader{Kind: ReadFloat, Width: 4, Endian: BigEndian}
	ReaderF64LE = Reader{Kind: ReadFloat, Width: 8, Endian: LittleEndian}
	ReaderF64BE = Reader{Kind: ReadFloat, Width: 8, Endian: BigEndian}
	ReaderASCII = Reader{Kind: ReadCharacter, Encoding: EncodingASCII}
	ReaderUTF8  = Reader{Kind: ReadCharacter, Encoding: EncodingUTF8}
)

// IsStatic returns true if the reader's size does not depend on the
// data being read.
func (r Reader) IsStatic() bool {
	if r.Kind != ReadCharacter {
		return true
	}

	switch r.Encoding {
	case EncodingASCII, EncodingLatin1:
		return true
	default:
		return false
	}
}

// Size returns the number of bytes a read consumes, for static
// readers. Data-dependent character readers return false.
func (r Reader) Size() (uint64, bool) {
	if !r.IsStatic() {
		return 0, false
	}

	if r.Kind == ReadCharacter {
		return 1, true
	}

	return uint64(r.Width), true
}

// Read decodes one value at the context's position and returns it
// together with the number of bytes consumed.
func (r Reader) Read(ctx cursor.Context) (Value, uint64, error) {
	switch r.Kind {
	case ReadUnsigned:
		return r.readUnsigned(ctx)
	case ReadSigned:
		return r.readSigned(ctx)
	case ReadFloat:
		return r.readFloat(ctx)
	case ReadCharacter:
		return r.readCharacter(ctx)
	default:
		return Value{}, 0, fmt.Errorf("unknown reader kind %d: %w", r.Kind, errs.ErrDecodeFailure)
	}
}

func (r Reader) readUnsigned(ctx cursor.Context) (Value, uint64, error) {
	switch r.Width {
	case 1:
		v, err := ctx.ReadU8()
		return U8(v), 1, err
	case 2:
		v, err := ctx.ReadU16(r.Endian)
		return U16(v), 2, err
	case 4:
		v, err := ctx.ReadU32(r.Endian)
		return U32(v), 4, err
	case 8:
		v, err := ctx.ReadU64(r.Endian)
		return U64(v), 8, err
	case 16:
		hi, lo, err := ctx.ReadU128(r.Endian)
		return U128(hi, lo), 16, err
	default:
		return Value{}, 0, fmt.Errorf("unsupported integer width %d: %w", r.Width, errs.ErrDecodeFailure)
	}
}

func (r Reader) readSigned(ctx cursor.Context) (Value, uint64, error) {
	switch r.Width {
	case 1:
		v, err := ctx.ReadI8()
		return I8(v), 1, err
	case 2:
		v, err := ctx.ReadI16(r.Endian)
		return I16(v), 2, err
	case 4:
		v, err := ctx.ReadI32(r.Endian)
		return I32(v), 4, err
	case 8:
		v, err := ctx.ReadI64(r.Endian)
		return I64(v), 8, err
	case 16:
		hi, lo, err := ctx.ReadU128(r.Endian)
		return I128(hi, lo), 16, err
	default:
		return Value{}, 0, fmt.Errorf("unsupported integer width %d: %w", r.Width, errs.ErrDecodeFailure)
	}
}

func (r Reader) readFloat(ctx cursor.Context) (Value, uint64, error) {
	switch r.Width {
	case 4:
		v, err := ctx.ReadF32(r.Endian)
		return F32(v), 4, err
	case 8:
		v, err := ctx.ReadF64(r.Endian)
		return F64(v), 8, err
	default:
		return Value{}, 0, fmt.Errorf("unsupported float width %d: %w", r.Width, errs.ErrDecodeFailure)
	}
}

func (r Reader) readCharacter(ctx cursor.Context) (Value, uint64, error) {
	switch r.Encoding {
	case EncodingASCII:
		b, err := ctx.ReadU8()
		if err != nil {
			return Value{}, 0, err
		}
		if b > 0x7F {
			return Value{}, 0, fmt.Errorf("byte 0x%02x is not ASCII: %w", b, errs.ErrDecodeFailure)
		}
		return Char(rune(b), 1), 1, nil

	case EncodingLatin1:
		b, err := ctx.ReadU8()
		if err != nil {
			return Value{}, 0, err
		}
		return Char(charmap.ISO8859_1.DecodeByte(b), 1), 1, nil

	case EncodingUTF8:
		// A code point is at most 4 bytes; take what's available.
		avail := ctx.Remaining()
		if avail == 0 {
			return Value{}, 0, fmt.Errorf("no bytes left for UTF-8 character: %w", errs.ErrReadOutOfBounds)
		}
		if avail > 4 {
			avail = 4
		}
		b, err := ctx.Bytes(avail)
		if err != nil {
			return Value{}, 0, err
		}
		cp, size := utf8.DecodeRune(b)
		if cp == utf8.RuneError && size <= 1 {
			return Value{}, 0, fmt.Errorf("invalid UTF-8 sequence: %w", errs.ErrDecodeFailure)
		}
		return Char(cp, uint8(size)), uint64(size), nil

	case EncodingUTF16LE, EncodingUTF16BE:
		order := cursor.LittleEndian
		if r.Encoding == EncodingUTF16BE {
			order = cursor.BigEndian
		}
		u1, err := ctx.ReadU16(order)
		if err != nil {
			return Value{}, 0, err
		}
		if !utf16.IsSurrogate(rune(u1)) {
			return Char(rune(u1), 2), 2, nil
		}
		u2, err := ctx.At(ctx.Position() + 2).ReadU16(order)
		if err != nil {
			return Value{}, 0, err
		}
		cp := utf16.DecodeRune(rune(u1), rune(u2))
		if cp == utf8.RuneError {
			return Value{}, 0, fmt.Errorf("invalid UTF-16 surrogate pair: %w", errs.ErrDecodeFailure)
		}
		return Char(cp, 4), 4, nil

	default:
		return Value{}, 0, fmt.Errorf("unknown character encoding %d: %w", r.Encoding, errs.ErrDecodeFailure)
	}
}
