package bumpy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binscope/binscope/errs"
)

func TestMultiVector_CreateAndDestroy(t *testing.T) {
	m := NewMultiVector[string]()

	require.NoError(t, m.CreateVector("A", 100))
	require.ErrorIs(t, m.CreateVector("A", 200), errs.ErrNameExists)

	capacity, err := m.DestroyVector("A")
	require.NoError(t, err)
	require.Equal(t, uint64(100), capacity)

	_, err = m.DestroyVector("A")
	require.ErrorIs(t, err, errs.ErrNameMissing)
}

func TestMultiVector_DestroyNonEmptyFails(t *testing.T) {
	m := NewMultiVector[string]()
	require.NoError(t, m.CreateVector("A", 100))

	_, err := m.InsertEntry("A", NewRange(0, 10), "x")
	require.NoError(t, err)

	_, err = m.DestroyVector("A")
	require.ErrorIs(t, err, errs.ErrNotEmpty)
}

// The S4 scenario: grouped entries across two vectors vanish as one
// unit, unlink isolates, and an emptied vector can be destroyed.
func TestMultiVector_Groups(t *testing.T) {
	m := NewMultiVector[string]()
	require.NoError(t, m.CreateVector("A", 100))
	require.NoError(t, m.CreateVector("B", 200))

	_, err := m.InsertEntries([]Placed[string]{
		{Vector: "A", Range: NewRange(0, 10), Value: "g1a"},
		{Vector: "A", Range: NewRange(10, 20), Value: "g1b"},
	})
	require.NoError(t, err)

	_, err = m.InsertEntries([]Placed[string]{
		{Vector: "A", Range: NewRange(20, 30), Value: "g2a"},
		{Vector: "B", Range: NewRange(0, 10), Value: "g2b"},
		{Vector: "B", Range: NewRange(10, 20), Value: "g2c"},
	})
	require.NoError(t, err)

	require.Equal(t, 5, m.Len())

	// Removing by any member address removes the whole group.
	removed, err := m.RemoveEntries("A", 15)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	require.Equal(t, 3, m.Len())

	// Unlink then remove takes exactly one entry.
	_, err = m.UnlinkEntry("A", 20)
	require.NoError(t, err)

	removed, err = m.RemoveEntries("A", 20)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	require.Equal(t, 2, m.Len())

	// The rest of the old group is still bound together.
	removed, err = m.RemoveEntries("B", 5)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	require.Equal(t, 0, m.Len())

	capacity, err := m.DestroyVector("A")
	require.NoError(t, err)
	require.Equal(t, uint64(100), capacity)
}

func TestMultiVector_BatchIsAtomic(t *testing.T) {
	m := NewMultiVector[string]()
	require.NoError(t, m.CreateVector("A", 100))

	_, err := m.InsertEntry("A", NewRange(50, 60), "existing")
	require.NoError(t, err)

	// Second entry of the batch collides; nothing is inserted.
	_, err = m.InsertEntries([]Placed[string]{
		{Vector: "A", Range: NewRange(0, 10), Value: "ok"},
		{Vector: "A", Range: NewRange(55, 65), Value: "collides"},
	})
	require.ErrorIs(t, err, errs.ErrOverlap)
	require.Equal(t, 1, m.Len())

	// A batch colliding with itself also fails whole.
	_, err = m.InsertEntries([]Placed[string]{
		{Vector: "A", Range: NewRange(0, 10), Value: "first"},
		{Vector: "A", Range: NewRange(5, 15), Value: "second"},
	})
	require.ErrorIs(t, err, errs.ErrOverlap)
	require.Equal(t, 1, m.Len())

	// Unknown vector fails whole.
	_, err = m.InsertEntries([]Placed[string]{
		{Vector: "A", Range: NewRange(0, 10), Value: "ok"},
		{Vector: "missing", Range: NewRange(0, 10), Value: "nope"},
	})
	require.ErrorIs(t, err, errs.ErrNameMissing)
	require.Equal(t, 1, m.Len())
}

func TestMultiVector_InsertEntriesAsReplaysGroupID(t *testing.T) {
	m := NewMultiVector[string]()
	require.NoError(t, m.CreateVector("A", 100))

	group, err := m.InsertEntry("A", NewRange(0, 10), "x")
	require.NoError(t, err)

	removed, err := m.RemoveEntries("A", 0)
	require.NoError(t, err)

	// Replaying with the captured ID restores the same binding.
	require.NoError(t, m.InsertEntriesAs(group, removed))

	entry, err := m.Get("A", 5)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, group, entry.Value.Group)

	// A fresh insert does not collide with the replayed ID.
	other, err := m.InsertEntry("A", NewRange(20, 30), "y")
	require.NoError(t, err)
	require.NotEqual(t, group, other)
}

func TestMultiVector_Relink(t *testing.T) {
	m := NewMultiVector[string]()
	require.NoError(t, m.CreateVector("A", 100))

	group, err := m.InsertEntries([]Placed[string]{
		{Vector: "A", Range: NewRange(0, 10), Value: "a"},
		{Vector: "A", Range: NewRange(10, 20), Value: "b"},
	})
	require.NoError(t, err)

	newGroup, err := m.UnlinkEntry("A", 0)
	require.NoError(t, err)
	require.NotEqual(t, group, newGroup)

	// Relinking restores group removal semantics.
	require.NoError(t, m.RelinkEntry("A", 0, group))

	removed, err := m.RemoveEntries("A", 15)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	require.Equal(t, 0, m.Len())
}
