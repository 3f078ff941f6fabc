package binscope_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binscope/binscope"
	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/project"
)

// End-to-end: load a blob, annotate it, undo, and read it back the
// way a hosting workbench would.
func TestAnnotateWorkflow(t *testing.T) {
	blob := []byte{
		0xCA, 0xFE, 0xBA, 0xBE, // magic
		'h', 'e', 'l', 'l', 'o', 0x00, // greeting
	}

	p := project.NewProject("demo", "1.0")
	require.NoError(t, p.Apply(&project.CreateBufferFromBytes{Name: "rom", Data: blob}))
	require.NoError(t, p.Apply(&project.AddLayer{Buffer: "rom", Layer: "analysis"}))

	require.NoError(t, p.Apply(&project.CreateEntry{
		Buffer: "rom",
		Layer:  "analysis",
		Type:   datatype.Ref(binscope.U32LE()),
		Offset: 0,
	}))
	require.NoError(t, p.Apply(&project.CreateEntry{
		Buffer: "rom",
		Layer:  "analysis",
		Type:   datatype.Ref(binscope.ASCIIString()),
		Offset: 4,
	}))

	entries, err := p.GetEntries("rom", "analysis")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "0xbebafeca", entries[0].Display)
	require.Equal(t, `"hello"`, entries[1].Display)

	require.NoError(t, p.Undo())
	entries, err = p.GetEntries("rom", "analysis")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
