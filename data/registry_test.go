package data

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binscope/binscope/cursor"
	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/errs"
	"github.com/binscope/binscope/number"
)

func TestRegistry_ConstantsRoundTrip(t *testing.T) {
	r := NewRegistry()

	pairs := []ConstantPair{
		{Name: "MAX_PATH", Value: 260},
		{Name: "PAGE_SIZE", Value: 4096},
		{Name: "SECTOR_SIZE", Value: 4096},
	}
	require.NoError(t, r.LoadConstants("", "win", pairs))
	require.ErrorIs(t, r.LoadConstants("", "win", pairs), errs.ErrNameExists)

	c, err := r.GetConstants("", "win")
	require.NoError(t, err)
	require.Equal(t, []uint64{260}, c.ValuesOf("MAX_PATH"))
	require.ElementsMatch(t, []string{"PAGE_SIZE", "SECTOR_SIZE"}, c.NamesOf(4096))

	// The default namespace is used when omitted.
	_, err = r.GetConstants(DefaultNamespace, "win")
	require.NoError(t, err)
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadConstants("terraria", "offsets", []ConstantPair{
		{Name: "SpawnX", Value: 0x99C},
	}))
	require.NoError(t, r.LoadEnum("terraria", "version", map[uint64]string{
		230: "V1_4",
		248: "V1_4_1",
	}))

	names, err := r.Lookup("terraria", "offsets", 0x99C)
	require.NoError(t, err)
	require.Equal(t, []string{"SpawnX"}, names)

	names, err = r.Lookup("terraria", "version", 230)
	require.NoError(t, err)
	require.Equal(t, []string{"V1_4"}, names)

	_, err = r.Lookup("terraria", "version", 1)
	require.ErrorIs(t, err, errs.ErrLookupMissing)

	_, err = r.Lookup("terraria", "nothing", 1)
	require.ErrorIs(t, err, errs.ErrNameMissing)
}

func TestRegistry_ListAndNamespaces(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadEnum("a", "colors", map[uint64]string{0: "red"}))
	require.NoError(t, r.LoadBitmask("a", "flags", map[uint8]string{0: "X"}))
	require.NoError(t, r.LoadConstants("b", "consts", nil))
	require.NoError(t, r.LoadType("a", "header", datatype.NewNumber(number.ReaderU8, number.FormatHex)))

	require.Equal(t, []string{"colors", "flags", "header"}, r.List("a"))
	require.Equal(t, []string{"consts"}, r.List("b"))
	require.Empty(t, r.List("missing"))
	require.Equal(t, []string{"a", "b"}, r.Namespaces())
}

func TestParseConstants(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		pairs, err := ParseConstants(FormatCSV, []byte("MAX,0x10\nMIN,2\nMAX,16\n"))
		require.NoError(t, err)
		require.Equal(t, []ConstantPair{
			{Name: "MAX", Value: 16},
			{Name: "MIN", Value: 2},
			{Name: "MAX", Value: 16},
		}, pairs)
	})

	t.Run("csv bad value", func(t *testing.T) {
		_, err := ParseConstants(FormatCSV, []byte("MAX,banana\n"))
		require.ErrorIs(t, err, errs.ErrDecodeFailure)
	})

	t.Run("json", func(t *testing.T) {
		pairs, err := ParseConstants(FormatJSON, []byte(`{"A": 1, "B": "0x10"}`))
		require.NoError(t, err)
		require.Len(t, pairs, 2)
	})

	t.Run("yaml", func(t *testing.T) {
		pairs, err := ParseConstants(FormatYAML, []byte("A: 1\nB: 0x10\n"))
		require.NoError(t, err)
		require.Len(t, pairs, 2)
	})

	t.Run("toml", func(t *testing.T) {
		pairs, err := ParseConstants(FormatTOML, []byte("A = 1\nB = 16\n"))
		require.NoError(t, err)
		require.Len(t, pairs, 2)
	})
}

func TestParseEnum(t *testing.T) {
	t.Run("csv ordered list auto-assigns", func(t *testing.T) {
		values, err := ParseEnum(FormatCSV, []byte("Zero\nOne\nTwo\n"))
		require.NoError(t, err)
		require.Equal(t, map[uint64]string{0: "Zero", 1: "One", 2: "Two"}, values)
	})

	t.Run("csv explicit values continue numbering", func(t *testing.T) {
		values, err := ParseEnum(FormatCSV, []byte("Zero\nTen,10\nEleven\n"))
		require.NoError(t, err)
		require.Equal(t, map[uint64]string{0: "Zero", 10: "Ten", 11: "Eleven"}, values)
	})

	t.Run("json value to name", func(t *testing.T) {
		values, err := ParseEnum(FormatJSON, []byte(`{"0": "Red", "0x10": "Green"}`))
		require.NoError(t, err)
		require.Equal(t, map[uint64]string{0: "Red", 16: "Green"}, values)
	})
}

func TestParseBitmask(t *testing.T) {
	bits, err := ParseBitmask(FormatCSV, []byte("READ,0\nWRITE,1\nEXEC,2\n"))
	require.NoError(t, err)
	require.Equal(t, map[uint8]string{0: "READ", 1: "WRITE", 2: "EXEC"}, bits)

	_, err = ParseBitmask(FormatCSV, []byte("BAD,99\n"))
	require.ErrorIs(t, err, errs.ErrDecodeFailure)

	bits, err = ParseBitmask(FormatYAML, []byte("READ: 0\nWRITE: 1\n"))
	require.NoError(t, err)
	require.Len(t, bits, 2)
}

func TestParseType(t *testing.T) {
	document := []byte(`{
		"kind": "struct",
		"body": {
			"fields": [
				{"name": "magic", "type": {"kind": "number", "body": {"reader": {"kind": 0, "width": 4, "endian": 1}, "format": {"style": 1, "prefix": true, "padded": true}}}},
				{"name": "name", "type": {"kind": "lpstring", "body": {"length_reader": {"kind": 0, "width": 1}, "char_reader": {"kind": 3}}}}
			]
		}
	}`)

	typ, err := ParseType(FormatJSON, document)
	require.NoError(t, err)

	data := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x02, 'h', 'i'}
	display, err := typ.Display(datatype.DynamicOffset(cursor.NewContext(data)))
	require.NoError(t, err)
	require.Equal(t, `{ magic: 0xcafebabe, name: "hi" }`, display)

	t.Run("yaml routes through the same envelope", func(t *testing.T) {
		yamlDoc := []byte("kind: number\nbody:\n  reader: {kind: 0, width: 1}\n  format: {style: 0}\n")
		typ, err := ParseType(FormatYAML, yamlDoc)
		require.NoError(t, err)

		display, err := typ.Display(datatype.DynamicOffset(cursor.NewContext([]byte{0x2A})))
		require.NoError(t, err)
		require.Equal(t, "42", display)
	})

	t.Run("csv is rejected", func(t *testing.T) {
		_, err := ParseType(FormatCSV, []byte("anything"))
		require.ErrorIs(t, err, errs.ErrDecodeFailure)
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadConstants("ns", "c", []ConstantPair{{Name: "A", Value: 1}}))
	require.NoError(t, r.LoadEnum("ns", "e", map[uint64]string{7: "Seven"}))
	require.NoError(t, r.LoadBitmask("ns", "b", map[uint8]string{3: "BIT3"}))
	require.NoError(t, r.LoadType("ns", "t", datatype.NewNumber(number.ReaderU8, number.FormatHex)))

	restored := FromSnapshot(r.Snapshot())

	names, err := restored.Lookup("ns", "e", 7)
	require.NoError(t, err)
	require.Equal(t, []string{"Seven"}, names)

	bits, err := restored.GetBitmask("ns", "b")
	require.NoError(t, err)
	require.Equal(t, map[uint8]string{3: "BIT3"}, bits)

	_, err = restored.GetType("ns", "t")
	require.NoError(t, err)

	require.Equal(t, r.List("ns"), restored.List("ns"))
}
