package project

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/errs"
	"github.com/binscope/binscope/number"
	"github.com/binscope/binscope/transform"
)

func u16be() *datatype.Number {
	return datatype.NewNumber(number.ReaderU16BE, number.FormatHex)
}

func newTestProject(t *testing.T, data []byte) *Project {
	t.Helper()

	p := NewProject("test", "1.0")
	require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: data}))
	require.NoError(t, p.Apply(&AddLayer{Buffer: "main", Layer: "base"}))

	return p
}

func TestProject_CreateEntryUndoRedo(t *testing.T) {
	p := newTestProject(t, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	require.NoError(t, p.Apply(&CreateEntry{
		Buffer: "main",
		Layer:  "base",
		Type:   datatype.Ref(u16be()),
		Offset: 0,
	}))

	entries, err := p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "0xdead", entries[0].Display)
	require.Equal(t, bumpy.NewRange(0, 2), entries[0].Range)

	// Undo removes the entry.
	require.NoError(t, p.Undo())
	entries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Empty(t, entries)

	// Redo restores a byte-equal display.
	require.NoError(t, p.Redo())
	entries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "0xdead", entries[0].Display)

	// An unrelated apply clears the redo stack.
	require.NoError(t, p.Undo())
	require.NoError(t, p.Apply(&CreateEntry{
		Buffer: "main",
		Layer:  "base",
		Type:   datatype.Ref(u16be()),
		Offset: 2,
	}))
	require.ErrorIs(t, p.Redo(), errs.ErrNothingToRedo)
}

func TestProject_UndoIsLIFOAndExhausts(t *testing.T) {
	p := newTestProject(t, []byte{0x01, 0x02})

	require.NoError(t, p.Undo()) // AddLayer
	require.NoError(t, p.Undo()) // CreateBufferFromBytes
	require.ErrorIs(t, p.Undo(), errs.ErrNothingToUndo)

	require.False(t, p.BufferExists("main"))

	require.NoError(t, p.Redo())
	require.NoError(t, p.Redo())
	require.True(t, p.BufferExists("main"))

	layers, err := p.GetLayers("main")
	require.NoError(t, err)
	require.Len(t, layers, 1)
}

func TestProject_FailedActionLeavesLogUntouched(t *testing.T) {
	p := newTestProject(t, []byte{0x01, 0x02, 0x03})
	before := p.Revision()

	err := p.Apply(&CreateEntry{
		Buffer: "main",
		Layer:  "missing",
		Type:   datatype.Ref(u16be()),
		Offset: 0,
	})
	require.ErrorIs(t, err, errs.ErrNameMissing)
	require.Equal(t, before, p.Revision())

	// Overlapping entries also fail atomically.
	require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: 0}))
	err = p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: 1})
	require.ErrorIs(t, err, errs.ErrOverlap)
}

func TestProject_EntryGroupRemovesAtomically(t *testing.T) {
	p := newTestProject(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	require.NoError(t, p.Apply(&AddLayer{Buffer: "main", Layer: "alt"}))

	require.NoError(t, p.Apply(&CreateEntryGroup{
		Buffer: "main",
		Specs: []EntrySpec{
			{Layer: "base", Type: datatype.Ref(u16be()), Offset: 0},
			{Layer: "alt", Type: datatype.Ref(u16be()), Offset: 2},
		},
	}))

	// Deleting by either member removes both.
	require.NoError(t, p.Apply(&DeleteEntry{Buffer: "main", Layer: "alt", Address: 3}))

	baseEntries, err := p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Empty(t, baseEntries)

	altEntries, err := p.GetEntries("main", "alt")
	require.NoError(t, err)
	require.Empty(t, altEntries)

	// Undo restores the whole group; redo removes it again.
	require.NoError(t, p.Undo())
	baseEntries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, baseEntries, 1)

	require.NoError(t, p.Redo())
	baseEntries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Empty(t, baseEntries)
}

func TestProject_UnlinkIsolatesEntry(t *testing.T) {
	p := newTestProject(t, []byte{0x01, 0x02, 0x03, 0x04})

	require.NoError(t, p.Apply(&CreateEntryGroup{
		Buffer: "main",
		Specs: []EntrySpec{
			{Layer: "base", Type: datatype.Ref(u16be()), Offset: 0},
			{Layer: "base", Type: datatype.Ref(u16be()), Offset: 2},
		},
	}))

	require.NoError(t, p.Apply(&UnlinkEntry{Buffer: "main", Layer: "base", Address: 0}))
	require.NoError(t, p.Apply(&DeleteEntry{Buffer: "main", Layer: "base", Address: 0}))

	entries, err := p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, bumpy.NewRange(2, 4), entries[0].Range)

	// Undoing the delete and the unlink restores group removal.
	require.NoError(t, p.Undo())
	require.NoError(t, p.Undo())
	require.NoError(t, p.Apply(&DeleteEntry{Buffer: "main", Layer: "base", Address: 0}))

	entries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProject_TransformRules(t *testing.T) {
	hexRecord, err := transform.Encode(transform.Hex{})
	require.NoError(t, err)

	t.Run("transform refused with annotations", func(t *testing.T) {
		p := newTestProject(t, []byte("48656c6c"))
		require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: 0}))

		err := p.Apply(&TransformBuffer{Buffer: "main", Record: hexRecord})
		require.ErrorIs(t, err, errs.ErrHasAnnotations)
	})

	t.Run("transform refused while any layer exists", func(t *testing.T) {
		// Even an empty layer blocks the transform: the new bytes
		// would invalidate the layer's address space.
		p := NewProject("t", "1")
		require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: []byte("48656c6c")}))
		require.NoError(t, p.Apply(&AddLayer{Buffer: "main", Layer: "empty"}))

		err := p.Apply(&TransformBuffer{Buffer: "main", Record: hexRecord})
		require.ErrorIs(t, err, errs.ErrHasAnnotations)

		// Removing the layer unblocks it.
		require.NoError(t, p.Apply(&RemoveLayer{Buffer: "main", Layer: "empty"}))
		require.NoError(t, p.Apply(&TransformBuffer{Buffer: "main", Record: hexRecord}))

		// The reverse direction has the same rule.
		require.NoError(t, p.Apply(&AddLayer{Buffer: "main", Layer: "post"}))
		err = p.Apply(&UntransformBuffer{Buffer: "main"})
		require.ErrorIs(t, err, errs.ErrHasAnnotations)
	})

	t.Run("two-way transform undoes", func(t *testing.T) {
		p := NewProject("t", "1")
		require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: []byte("48656c6C")}))
		require.NoError(t, p.Apply(&TransformBuffer{Buffer: "main", Record: hexRecord}))

		b, err := p.GetBuffer("main")
		require.NoError(t, err)
		require.Equal(t, []byte("Hell"), b.Bytes)
		require.True(t, b.Editable)
		require.Len(t, b.Transforms, 1)

		require.NoError(t, p.Undo())
		b, err = p.GetBuffer("main")
		require.NoError(t, err)
		// Untransform is case-normalising: same length, lower case.
		require.Equal(t, []byte("48656c6c"), b.Bytes)
		require.Empty(t, b.Transforms)
	})

	t.Run("one-way transform truncates undo", func(t *testing.T) {
		raw := []byte("sixteen broad and compressible bytes, repeated repeated repeated")
		compressed, err := transform.CompressBlock(raw)
		require.NoError(t, err)

		lz4Record, err := transform.Encode(transform.LZ4{})
		require.NoError(t, err)

		p := NewProject("t", "1")
		require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: compressed}))
		require.NoError(t, p.Apply(&TransformBuffer{Buffer: "main", Record: lz4Record}))

		b, err := p.GetBuffer("main")
		require.NoError(t, err)
		require.Equal(t, raw, b.Bytes)
		require.False(t, b.Editable)

		require.ErrorIs(t, p.Undo(), errs.ErrUndoTruncated)
		require.Equal(t, 0, p.Revision())
	})

	t.Run("untransform action round-trips", func(t *testing.T) {
		p := NewProject("t", "1")
		require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: []byte("6869")}))
		require.NoError(t, p.Apply(&TransformBuffer{Buffer: "main", Record: hexRecord}))
		require.NoError(t, p.Apply(&UntransformBuffer{Buffer: "main"}))

		b, err := p.GetBuffer("main")
		require.NoError(t, err)
		require.Equal(t, []byte("6869"), b.Bytes)
		require.Empty(t, b.Transforms)

		require.NoError(t, p.Undo())
		b, _ = p.GetBuffer("main")
		require.Equal(t, []byte("hi"), b.Bytes)
		require.Len(t, b.Transforms, 1)
	})
}

func TestProject_EditBytesReResolves(t *testing.T) {
	p := newTestProject(t, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: 0}))

	edit := &EditBytes{Buffer: "main", Offset: 0, NewBytes: []byte{0xCA, 0xFE}}
	require.NoError(t, p.Apply(edit))

	// Same size, no collision: the entry is re-created with a fresh
	// display and no notices.
	require.Empty(t, edit.Notices)
	entries, err := p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "0xcafe", entries[0].Display)

	// Undo restores the bytes and the original display.
	require.NoError(t, p.Undo())
	b, err := p.GetBuffer("main")
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, b.Bytes)

	entries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "0xdead", entries[0].Display)
}

func TestProject_EditBytesSizeChangeLeavesUndefined(t *testing.T) {
	// An LPString entry whose length prefix grows no longer fits its
	// old range: the region is left undefined and a notice surfaces.
	p := newTestProject(t, []byte{0x02, 'h', 'i', 'x', 'y'})
	lps := datatype.NewLPString(number.ReaderU8, number.ReaderASCII)
	require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(lps), Offset: 0}))

	edit := &EditBytes{Buffer: "main", Offset: 0, NewBytes: []byte{0x04}}
	require.NoError(t, p.Apply(edit))

	require.Len(t, edit.Notices, 1)
	entries, err := p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Empty(t, entries)

	// Undo restores both bytes and entry.
	require.NoError(t, p.Undo())
	entries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, `"hi"`, entries[0].Display)
}

func TestProject_EditRefusedWhenNotEditable(t *testing.T) {
	raw := bytes.Repeat([]byte("abcd"), 32)
	compressed, err := transform.CompressBlock(raw)
	require.NoError(t, err)

	lz4Record, err := transform.Encode(transform.LZ4{})
	require.NoError(t, err)

	p := NewProject("t", "1")
	require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: compressed}))
	require.NoError(t, p.Apply(&TransformBuffer{Buffer: "main", Record: lz4Record}))

	err = p.Apply(&EditBytes{Buffer: "main", Offset: 0, NewBytes: []byte{0x00}})
	require.ErrorIs(t, err, errs.ErrBufferNotEditable)
}

func TestProject_ExtractAndExport(t *testing.T) {
	p := NewProject("t", "1")
	require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: []byte("AAAABBBBCCCC")}))
	require.NoError(t, p.Apply(&ExtractBuffer{Source: "main", Start: 4, End: 8, NewName: "middle"}))

	child, err := p.GetBuffer("middle")
	require.NoError(t, err)
	require.Equal(t, []byte("BBBB"), child.Bytes)
	require.Equal(t, "main", child.ParentName)
	require.Equal(t, uint64(4), child.ParentOffset)

	// Edit the child; export of the parent merges it back.
	require.NoError(t, p.Apply(&EditBytes{Buffer: "middle", Offset: 0, NewBytes: []byte("XX")}))

	exported, err := p.Export("main")
	require.NoError(t, err)
	require.Equal(t, []byte("AAAAXXBBCCCC"), exported)

	// The parent buffer itself is unchanged.
	parent, err := p.GetBuffer("main")
	require.NoError(t, err)
	require.Equal(t, []byte("AAAABBBBCCCC"), parent.Bytes)

	// Removal is refused while children exist.
	err = p.Apply(&RemoveBuffer{Name: "main"})
	require.ErrorIs(t, err, errs.ErrNotEmpty)
}

func TestProject_Split(t *testing.T) {
	p := NewProject("t", "1")
	require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: []byte("AABBBCC")}))
	require.NoError(t, p.Apply(&SplitBuffer{
		Source:   "main",
		Cuts:     []uint64{2, 5},
		NewNames: []string{"a", "b", "c"},
	}))

	for name, want := range map[string][]byte{"a": []byte("AA"), "b": []byte("BBB"), "c": []byte("CC")} {
		b, err := p.GetBuffer(name)
		require.NoError(t, err)
		require.Equal(t, want, b.Bytes)
	}

	require.NoError(t, p.Undo())
	require.False(t, p.BufferExists("a"))
	require.True(t, p.BufferExists("main"))
}

func TestProject_CloneDoesNotTransferAnnotations(t *testing.T) {
	p := newTestProject(t, []byte{0x01, 0x02})
	require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: 0}))
	require.NoError(t, p.Apply(&CloneBuffer{Source: "main", NewName: "copy"}))

	clone, err := p.GetBuffer("copy")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, clone.Bytes)
	require.Empty(t, clone.Layers())
	require.Equal(t, 0, clone.EntryCount())
}

func TestProject_CommentUndo(t *testing.T) {
	p := newTestProject(t, []byte{0x01, 0x02})
	require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: 0}))

	require.NoError(t, p.Apply(&SetComment{Buffer: "main", Layer: "base", Address: 1, Comment: "checksum"}))

	entries, _ := p.GetEntries("main", "base")
	require.Equal(t, "checksum", entries[0].Comment)

	require.NoError(t, p.Undo())
	entries, _ = p.GetEntries("main", "base")
	require.Equal(t, "", entries[0].Comment)
}

func TestProject_Xrefs(t *testing.T) {
	p := NewProject("t", "1")
	require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "code", Data: make([]byte, 16)}))
	require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "strings", Data: make([]byte, 16)}))

	require.NoError(t, p.Apply(&AddXref{FromBuffer: "code", FromAddress: 4, ToBuffer: "strings", ToAddress: 8}))

	target, err := p.GetBuffer("strings")
	require.NoError(t, err)
	require.Equal(t, []Xref{{FromBuffer: "code", FromAddress: 4}}, target.XrefsTo(8))

	require.NoError(t, p.Undo())
	require.Empty(t, target.XrefsTo(8))

	require.NoError(t, p.Redo())
	require.Len(t, target.XrefsTo(8), 1)

	require.NoError(t, p.Apply(&RemoveXref{FromBuffer: "code", FromAddress: 4, ToBuffer: "strings", ToAddress: 8}))
	require.Empty(t, target.XrefsTo(8))
}

func TestProject_UndefineRange(t *testing.T) {
	p := newTestProject(t, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	for offset := uint64(0); offset < 8; offset += 2 {
		require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: offset}))
	}

	require.NoError(t, p.Apply(&UndefineRange{Buffer: "main", Layer: "base", Start: 3, End: 6}))

	entries, err := p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, bumpy.NewRange(0, 2), entries[0].Range)
	require.Equal(t, bumpy.NewRange(6, 8), entries[1].Range)

	require.NoError(t, p.Undo())
	entries, err = p.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 4)
}

func TestProject_LoadDatumUndo(t *testing.T) {
	p := NewProject("t", "1")

	require.NoError(t, p.Apply(&LoadDatum{
		DatumKind: DatumEnum,
		Namespace: "colors",
		Name:      "primary",
		Enum:      map[uint64]string{0: "Red", 1: "Green", 2: "Blue"},
	}))

	names, err := p.Registry().Lookup("colors", "primary", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Green"}, names)

	require.NoError(t, p.Undo())
	_, err = p.Registry().Lookup("colors", "primary", 1)
	require.ErrorIs(t, err, errs.ErrNameMissing)
}

func TestProject_UpdatesSince(t *testing.T) {
	p := NewProject("t", "1")
	require.NoError(t, p.Apply(&CreateBufferFromBytes{Name: "main", Data: []byte{1, 2}}))

	rev := p.Revision()
	require.NoError(t, p.Apply(&AddLayer{Buffer: "main", Layer: "base"}))
	require.NoError(t, p.Apply(&RebaseBuffer{Name: "main", NewBase: 0x400000}))

	updates, err := p.UpdatesSince(rev)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	require.Equal(t, "layer_create", updates[0].Kind())
	require.Equal(t, "buffer_rebase", updates[1].Kind())

	// A revision ahead of the log means the observer must resync.
	require.NoError(t, p.Undo())
	require.NoError(t, p.Undo())
	_, err = p.UpdatesSince(rev + 2)
	require.ErrorIs(t, err, errs.ErrOutOfBounds)
}

func TestProject_SaveLoadRoundTrip(t *testing.T) {
	p := newTestProject(t, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, p.Apply(&AddLayer{Buffer: "main", Layer: "alt"}))
	require.NoError(t, p.Apply(&CreateEntryGroup{
		Buffer: "main",
		Specs: []EntrySpec{
			{Layer: "base", Type: datatype.Ref(u16be()), Offset: 0},
			{Layer: "alt", Type: datatype.Ref(u16be()), Offset: 2},
		},
	}))
	require.NoError(t, p.Apply(&SetComment{Buffer: "main", Layer: "base", Address: 0, Comment: "magic"}))
	require.NoError(t, p.Apply(&LoadDatum{
		DatumKind: DatumEnum,
		Name:      "colors",
		Enum:      map[uint64]string{0: "Red"},
	}))

	var saved bytes.Buffer
	require.NoError(t, p.Save(&saved))

	loaded, err := Load(&saved)
	require.NoError(t, err)
	require.Equal(t, "test", loaded.Name)
	require.Equal(t, p.Revision(), loaded.Revision())

	b, err := loaded.GetBuffer("main")
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, b.Bytes)

	entries, err := loaded.GetEntries("main", "base")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "0xdead", entries[0].Display)
	require.Equal(t, "magic", entries[0].Comment)

	// Group bindings survive: deleting one member still removes both.
	require.NoError(t, loaded.Apply(&DeleteEntry{Buffer: "main", Layer: "alt", Address: 2}))
	entries, err = loaded.GetEntries("main", "base")
	require.NoError(t, err)
	require.Empty(t, entries)

	names, err := loaded.Registry().Lookup("", "colors", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"Red"}, names)
}

func TestProject_SaveLoadRejectsCorruptBytes(t *testing.T) {
	p := newTestProject(t, []byte{1, 2, 3, 4})

	snapshot, err := p.Snapshot()
	require.NoError(t, err)

	snapshot.Buffers[0].Bytes[0] ^= 0xFF
	_, err = FromSnapshot(snapshot)
	require.ErrorIs(t, err, errs.ErrDecodeFailure)
}

func TestProject_GetEverything(t *testing.T) {
	p := newTestProject(t, []byte{0x01, 0x02, 0x03, 0x04})
	require.NoError(t, p.Apply(&CreateEntry{Buffer: "main", Layer: "base", Type: datatype.Ref(u16be()), Offset: 2}))

	everything := p.GetEverything()
	require.Equal(t, "test", everything.Name)
	require.Equal(t, p.Revision(), everything.Revision)

	view, ok := everything.Buffers["main"]
	require.True(t, ok)
	require.Equal(t, uint64(4), view.Length)
	require.Len(t, view.Layers["base"], 1)
	require.Equal(t, "0x0304", view.Layers["base"][0].Display)
}

func TestProject_DetectSuggestsButNeverApplies(t *testing.T) {
	p := newTestProject(t, []byte("48656c6c"))

	b, err := p.GetBuffer("main")
	require.NoError(t, err)

	detected := transform.Detect(b.Bytes)
	require.NotEmpty(t, detected)
	require.Equal(t, "hex", detected[0].Name())

	// Detection alone changes nothing.
	require.Equal(t, []byte("48656c6c"), b.Bytes)
	require.Empty(t, b.Transforms)
}
