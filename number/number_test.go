package number

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binscope/binscope/cursor"
	"github.com/binscope/binscope/errs"
)

func TestReader_Integers(t *testing.T) {
	data := []byte{0x00, 0x00, 0x7F, 0xFF, 0x80, 0x00, 0xFF, 0xFF}
	ctx := cursor.NewContext(data)

	tests := []struct {
		name   string
		reader Reader
		pos    uint64
		want   string
	}{
		{"i16be zero", ReaderI16BE, 0, "0"},
		{"i16be max", ReaderI16BE, 2, "32767"},
		{"i16be min", ReaderI16BE, 4, "-32768"},
		{"i16be minus one", ReaderI16BE, 6, "-1"},
		{"u16be max", ReaderU16BE, 6, "65535"},
		{"u8", ReaderU8, 4, "128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, size, err := tt.reader.Read(ctx.At(tt.pos))
			require.NoError(t, err)
			require.Equal(t, uint64(tt.reader.Width), size)
			require.Equal(t, tt.want, FormatDecimal.Format(v))
		})
	}
}

func TestReader_Characters(t *testing.T) {
	t.Run("ascii", func(t *testing.T) {
		v, size, err := ReaderASCII.Read(cursor.NewContext([]byte{'h'}))
		require.NoError(t, err)
		require.Equal(t, uint64(1), size)
		r, ok := v.Rune()
		require.True(t, ok)
		require.Equal(t, 'h', r)

		_, _, err = ReaderASCII.Read(cursor.NewContext([]byte{0xC3}))
		require.ErrorIs(t, err, errs.ErrDecodeFailure)
	})

	t.Run("utf8 multibyte", func(t *testing.T) {
		v, size, err := ReaderUTF8.Read(cursor.NewContext([]byte("é")))
		require.NoError(t, err)
		require.Equal(t, uint64(2), size)
		r, _ := v.Rune()
		require.Equal(t, 'é', r)
	})

	t.Run("utf16le surrogate pair", func(t *testing.T) {
		// U+1F600 in UTF-16LE.
		reader := Reader{Kind: ReadCharacter, Encoding: EncodingUTF16LE}
		v, size, err := reader.Read(cursor.NewContext([]byte{0x3D, 0xD8, 0x00, 0xDE}))
		require.NoError(t, err)
		require.Equal(t, uint64(4), size)
		r, _ := v.Rune()
		require.Equal(t, rune(0x1F600), r)
	})

	t.Run("latin1", func(t *testing.T) {
		reader := Reader{Kind: ReadCharacter, Encoding: EncodingLatin1}
		v, size, err := reader.Read(cursor.NewContext([]byte{0xE9}))
		require.NoError(t, err)
		require.Equal(t, uint64(1), size)
		r, _ := v.Rune()
		require.Equal(t, 'é', r)
	})
}

func TestFormatter_Hex(t *testing.T) {
	tests := []struct {
		name      string
		formatter Formatter
		value     Value
		want      string
	}{
		{"padded u16 zero", FormatHex, U16(0), "0x0000"},
		{"padded u16", FormatHex, U16(0x7FFF), "0x7fff"},
		{"padded u16 high", FormatHex, U16(0x8000), "0x8000"},
		{"padded u16 max", FormatHex, U16(0xFFFF), "0xffff"},
		{"uppercase", FormatHexUpper, U16(0xBEEF), "0xBEEF"},
		{"no prefix", Formatter{Style: StyleHex, Padded: true}, U8(0x0F), "0f"},
		{"unpadded", Formatter{Style: StyleHex, Prefix: true}, U32(0x12), "0x12"},
		{"signed keeps bit pattern", FormatHex, I16(-1), "0xffff"},
		{"u64", FormatHex, U64(0xDEADBEEF), "0x00000000deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.formatter.Format(tt.value))
		})
	}
}

func TestFormatter_OtherStyles(t *testing.T) {
	require.Equal(t, "0b00001010", FormatBinary.Format(U8(10)))
	require.Equal(t, "0o17", FormatOctal.Format(U8(15)))
	require.Equal(t, "true", FormatBoolean.Format(U8(1)))
	require.Equal(t, "false", FormatBoolean.Format(U32(0)))
	require.Equal(t, "1e+06", Formatter{Style: StyleScientific, Decimals: 0}.Format(U32(1000000)))
	require.Equal(t, "1.5", FormatDecimal.Format(F32(1.5)))
	require.Equal(t, "'h'", FormatDecimal.Format(Char('h', 1)))
}

func TestValue_128Bit(t *testing.T) {
	// 2^64 displays correctly in decimal and hex.
	v := U128(1, 0)
	require.Equal(t, "18446744073709551616", FormatDecimal.Format(v))
	require.Equal(t, "0x00000000000000010000000000000000", FormatHex.Format(v))

	// -1 as a 128-bit signed value.
	neg := I128(^uint64(0), ^uint64(0))
	require.Equal(t, "-1", FormatDecimal.Format(neg))

	_, ok := v.Uint()
	require.False(t, ok)

	i, ok := neg.Int()
	require.True(t, ok)
	require.Equal(t, int64(-1), i)
}

func TestValue_Accessors(t *testing.T) {
	u, ok := U32(42).Uint()
	require.True(t, ok)
	require.Equal(t, uint64(42), u)

	i, ok := I16(-5).Int()
	require.True(t, ok)
	require.Equal(t, int64(-5), i)

	_, ok = I16(-5).Uint()
	require.False(t, ok)

	f, ok := F64(2.25).Float()
	require.True(t, ok)
	require.Equal(t, 2.25, f)

	_, ok = U8(1).Float()
	require.False(t, ok)
}
