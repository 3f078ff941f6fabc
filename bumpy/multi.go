package bumpy

import (
	"fmt"
	"sort"

	"github.com/binscope/binscope/errs"
)

// GroupID identifies a set of entries that are removed atomically.
// IDs are allocated monotonically within one MultiVector.
type GroupID uint64

// Linked wraps a payload with the group it belongs to.
type Linked[T any] struct {
	Group GroupID `json:"group"`
	Value T       `json:"value"`
}

// Placed names an entry by the vector it lives in. It is the unit
// returned from group removals, where entries span several vectors.
type Placed[T any] struct {
	Vector string `json:"vector"`
	Range  Range  `json:"range"`
	Value  T      `json:"value"`
}

// member locates one entry of a group by vector name and start address.
type member struct {
	vector string
	start  uint64
}

// MultiVector composes named Vectors whose entries are bound into
// groups. Every entry belongs to exactly one group, possibly a
// singleton; removing any member of a group removes the whole group.
//
// A struct laid out across two sibling buffers must vanish as one
// unit; enforcing the group discipline here keeps the annotation layer
// above simple.
type MultiVector[T any] struct {
	vectors   map[string]*Vector[Linked[T]]
	groups    map[GroupID][]member
	nextGroup GroupID
}

// NewMultiVector creates an empty MultiVector with no vectors.
func NewMultiVector[T any]() *MultiVector[T] {
	return &MultiVector[T]{
		vectors: make(map[string]*Vector[Linked[T]]),
		groups:  make(map[GroupID][]member),
	}
}

// CreateVector adds a new empty vector under the given name.
// Returns errs.ErrNameExists if the name is taken.
func (m *MultiVector[T]) CreateVector(name string, capacity uint64) error {
	if _, exists := m.vectors[name]; exists {
		return fmt.Errorf("vector %q: %w", name, errs.ErrNameExists)
	}

	m.vectors[name] = NewVector[Linked[T]](capacity)

	return nil
}

// DestroyVector removes an empty vector and returns its capacity.
// Returns errs.ErrNameMissing if the vector doesn't exist, or
// errs.ErrNotEmpty if it still holds entries.
func (m *MultiVector[T]) DestroyVector(name string) (uint64, error) {
	v, exists := m.vectors[name]
	if !exists {
		return 0, fmt.Errorf("vector %q: %w", name, errs.ErrNameMissing)
	}

	if !v.IsEmpty() {
		return 0, fmt.Errorf("vector %q has %d entries: %w", name, v.Len(), errs.ErrNotEmpty)
	}

	delete(m.vectors, name)

	return v.Capacity(), nil
}

// VectorExists returns true if a vector with the given name exists.
func (m *MultiVector[T]) VectorExists(name string) bool {
	_, exists := m.vectors[name]
	return exists
}

// VectorNames returns the vector names in sorted order.
func (m *MultiVector[T]) VectorNames() []string {
	names := make([]string, 0, len(m.vectors))
	for name := range m.vectors {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// InsertEntries inserts a batch of entries across vectors as one
// group, all-or-nothing. A fresh GroupID binds every entry and is
// returned on success.
//
// Each entry is validated against its target vector and against the
// entries inserted earlier in the same batch; the first failure aborts
// the whole batch with no change.
func (m *MultiVector[T]) InsertEntries(batch []Placed[T]) (GroupID, error) {
	group := m.nextGroup

	if err := m.InsertEntriesAs(group, batch); err != nil {
		return 0, err
	}

	return group, nil
}

// InsertEntriesAs inserts a batch under a caller-chosen GroupID.
//
// This exists so an inverse action can re-apply an insertion with the
// exact group it originally observed. The ID must not be in use.
func (m *MultiVector[T]) InsertEntriesAs(group GroupID, batch []Placed[T]) error {
	if len(batch) == 0 {
		return fmt.Errorf("batch is empty: %w", errs.ErrEmptyRange)
	}

	if _, taken := m.groups[group]; taken {
		return fmt.Errorf("group %d: %w", group, errs.ErrNameExists)
	}

	// Validate the whole batch up front so a failure changes nothing.
	for i, p := range batch {
		v, exists := m.vectors[p.Vector]
		if !exists {
			return fmt.Errorf("vector %q: %w", p.Vector, errs.ErrNameMissing)
		}

		if p.Range.IsEmpty() {
			return fmt.Errorf("entry %d in batch: %w", i, errs.ErrEmptyRange)
		}

		if p.Range.End > v.Capacity() {
			return fmt.Errorf("entry %d ends at 0x%x but vector %q capacity is 0x%x: %w", i, p.Range.End, p.Vector, v.Capacity(), errs.ErrOutOfBounds)
		}

		if len(v.Window(p.Range.Start, p.Range.End)) > 0 {
			return fmt.Errorf("entry %d at %s in vector %q: %w", i, p.Range, p.Vector, errs.ErrOverlap)
		}

		// Check against earlier entries in the same batch.
		for j := 0; j < i; j++ {
			if batch[j].Vector == p.Vector && batch[j].Range.Intersects(p.Range) {
				return fmt.Errorf("entries %d and %d in batch both cover %s in vector %q: %w", j, i, p.Range, p.Vector, errs.ErrOverlap)
			}
		}
	}

	members := make([]member, 0, len(batch))
	for _, p := range batch {
		entry := Entry[Linked[T]]{
			Range: p.Range,
			Value: Linked[T]{Group: group, Value: p.Value},
		}

		// Cannot fail: the batch was validated above.
		if err := m.vectors[p.Vector].Insert(entry); err != nil {
			return fmt.Errorf("batch validated but insert failed: %w", err)
		}

		members = append(members, member{vector: p.Vector, start: p.Range.Start})
	}

	m.groups[group] = members
	if group >= m.nextGroup {
		m.nextGroup = group + 1
	}

	return nil
}

// InsertEntry inserts a single entry as its own singleton group.
func (m *MultiVector[T]) InsertEntry(vector string, r Range, value T) (GroupID, error) {
	return m.InsertEntries([]Placed[T]{{Vector: vector, Range: r, Value: value}})
}

// Get returns the entry covering addr in the named vector, or nil if
// the address is undefined. Returns errs.ErrNameMissing for an unknown
// vector.
func (m *MultiVector[T]) Get(vector string, addr uint64) (*Entry[Linked[T]], error) {
	v, exists := m.vectors[vector]
	if !exists {
		return nil, fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	return v.Get(addr), nil
}

// RemoveEntries removes the entry covering addr in the named vector
// together with every other entry bound to the same group, across all
// vectors. Returns the removed entries; a singleton group removes
// exactly one. Returns nil with no error if the address is undefined.
func (m *MultiVector[T]) RemoveEntries(vector string, addr uint64) ([]Placed[T], error) {
	v, exists := m.vectors[vector]
	if !exists {
		return nil, fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	target := v.Get(addr)
	if target == nil {
		return nil, nil
	}

	group := target.Value.Group
	members := m.groups[group]

	removed := make([]Placed[T], 0, len(members))
	for _, mem := range members {
		entry, ok := m.vectors[mem.vector].Remove(mem.start)
		if !ok {
			return nil, fmt.Errorf("group %d member at 0x%x in vector %q has no entry: %w", group, mem.start, mem.vector, errs.ErrNameMissing)
		}

		removed = append(removed, Placed[T]{
			Vector: mem.vector,
			Range:  entry.Range,
			Value:  entry.Value.Value,
		})
	}

	delete(m.groups, group)

	return removed, nil
}

// UnlinkEntry detaches the entry covering addr from its group into a
// fresh singleton group, so a later removal takes only this entry.
// Returns the new GroupID.
func (m *MultiVector[T]) UnlinkEntry(vector string, addr uint64) (GroupID, error) {
	v, exists := m.vectors[vector]
	if !exists {
		return 0, fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	entry := v.Get(addr)
	if entry == nil {
		return 0, fmt.Errorf("no entry at 0x%x in vector %q: %w", addr, vector, errs.ErrNameMissing)
	}

	oldGroup := entry.Value.Group
	newGroup := m.nextGroup
	m.nextGroup++

	remaining := make([]member, 0, len(m.groups[oldGroup]))
	for _, mem := range m.groups[oldGroup] {
		if mem.vector == vector && mem.start == entry.Range.Start {
			continue
		}
		remaining = append(remaining, mem)
	}

	if len(remaining) == 0 {
		delete(m.groups, oldGroup)
	} else {
		m.groups[oldGroup] = remaining
	}

	m.groups[newGroup] = []member{{vector: vector, start: entry.Range.Start}}
	entry.Value.Group = newGroup

	return newGroup, nil
}

// RelinkEntry moves the entry covering addr out of its current group
// and into the target group. Used to reverse an unlink.
func (m *MultiVector[T]) RelinkEntry(vector string, addr uint64, group GroupID) error {
	v, exists := m.vectors[vector]
	if !exists {
		return fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	entry := v.Get(addr)
	if entry == nil {
		return fmt.Errorf("no entry at 0x%x in vector %q: %w", addr, vector, errs.ErrNameMissing)
	}

	oldGroup := entry.Value.Group
	if oldGroup == group {
		return nil
	}

	remaining := make([]member, 0, len(m.groups[oldGroup]))
	for _, mem := range m.groups[oldGroup] {
		if mem.vector == vector && mem.start == entry.Range.Start {
			continue
		}
		remaining = append(remaining, mem)
	}

	if len(remaining) == 0 {
		delete(m.groups, oldGroup)
	} else {
		m.groups[oldGroup] = remaining
	}

	m.groups[group] = append(m.groups[group], member{vector: vector, start: entry.Range.Start})
	entry.Value.Group = group
	if group >= m.nextGroup {
		m.nextGroup = group + 1
	}

	return nil
}

// GroupMembers returns the entries bound to the group of the entry
// covering addr, without removing anything.
func (m *MultiVector[T]) GroupMembers(vector string, addr uint64) ([]Placed[T], error) {
	v, exists := m.vectors[vector]
	if !exists {
		return nil, fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	target := v.Get(addr)
	if target == nil {
		return nil, nil
	}

	members := m.groups[target.Value.Group]
	result := make([]Placed[T], 0, len(members))
	for _, mem := range members {
		entry := m.vectors[mem.vector].Get(mem.start)
		if entry == nil {
			return nil, fmt.Errorf("group %d member at 0x%x in vector %q has no entry: %w", target.Value.Group, mem.start, mem.vector, errs.ErrNameMissing)
		}
		result = append(result, Placed[T]{Vector: mem.vector, Range: entry.Range, Value: entry.Value.Value})
	}

	return result, nil
}

// Entries returns the entries of one vector in ascending start order.
func (m *MultiVector[T]) Entries(vector string) ([]Entry[Linked[T]], error) {
	v, exists := m.vectors[vector]
	if !exists {
		return nil, fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	return v.Entries(), nil
}

// LenVector returns the entry count of one vector.
func (m *MultiVector[T]) LenVector(vector string) (int, error) {
	v, exists := m.vectors[vector]
	if !exists {
		return 0, fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	return v.Len(), nil
}

// CapacityVector returns the capacity of one vector.
func (m *MultiVector[T]) CapacityVector(vector string) (uint64, error) {
	v, exists := m.vectors[vector]
	if !exists {
		return 0, fmt.Errorf("vector %q: %w", vector, errs.ErrNameMissing)
	}

	return v.Capacity(), nil
}

// Len returns the total entry count across all vectors.
func (m *MultiVector[T]) Len() int {
	total := 0
	for _, v := range m.vectors {
		total += v.Len()
	}

	return total
}

// VectorCount returns the number of vectors.
func (m *MultiVector[T]) VectorCount() int {
	return len(m.vectors)
}
