package project

import (
	"fmt"
	"sort"

	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/cursor"
	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/errs"
	"github.com/binscope/binscope/internal/hash"
	"github.com/binscope/binscope/transform"
)

// Layer is a named annotation overlay on a buffer. Entries live in the
// buffer's MultiVector under the layer's name; the Layer itself holds
// presentation state.
type Layer struct {
	Name string `cbor:"name" json:"name"`

	// ShowUndefined asks viewers to render un-annotated bytes in this
	// layer as implicit gap entries.
	ShowUndefined bool `cbor:"show_undefined,omitempty" json:"show_undefined,omitempty"`
}

// Xref records that some address in another buffer points at an
// address in this buffer. Stored on the target so "what points here"
// is one lookup; the source side is found by scanning its entries'
// references.
type Xref struct {
	FromBuffer  string `cbor:"from_buffer" json:"from_buffer"`
	FromAddress uint64 `cbor:"from_address" json:"from_address"`
}

// Buffer is a byte-owning unit with annotation layers. A buffer is
// created from raw bytes or derived from another buffer; derivation
// records the parent/child link by name so an export can reassemble
// children into the parent.
type Buffer struct {
	Name        string
	BaseAddress uint64
	Bytes       []byte

	// Editable is false once a one-way transformation has been
	// applied; byte edits are refused from then on.
	Editable bool

	// Transforms records applied transformations in application order.
	Transforms []transform.Record

	// ParentName and ParentOffset locate this buffer inside the buffer
	// it was extracted from. Empty ParentName means no parent.
	ParentName   string
	ParentOffset uint64

	// Children are the names of buffers extracted from this one.
	Children map[string]struct{}

	// Refs maps a semantic name ("header", "strings") to a buffer
	// name.
	Refs map[string]string

	// Xrefs maps a target address in this buffer to its incoming
	// references.
	Xrefs map[uint64][]Xref

	layers    *bumpy.MultiVector[Entry]
	layerMeta map[string]Layer
}

// NewBuffer creates an editable buffer owning a copy of the given
// bytes.
func NewBuffer(name string, data []byte, baseAddress uint64) *Buffer {
	owned := make([]byte, len(data))
	copy(owned, data)

	return &Buffer{
		Name:        name,
		BaseAddress: baseAddress,
		Bytes:       owned,
		Editable:    true,
		Children:    make(map[string]struct{}),
		Refs:        make(map[string]string),
		Xrefs:       make(map[uint64][]Xref),
		layers:      bumpy.NewMultiVector[Entry](),
		layerMeta:   make(map[string]Layer),
	}
}

// Clone copies the buffer's bytes into a new buffer. Annotations,
// transformation history and parent links do not transfer.
func (b *Buffer) Clone(newName string) *Buffer {
	return NewBuffer(newName, b.Bytes, b.BaseAddress)
}

// Checksum returns the xxHash64 of the buffer's current bytes.
func (b *Buffer) Checksum() uint64 {
	return hash.Checksum(b.Bytes)
}

// Length returns the byte length.
func (b *Buffer) Length() uint64 {
	return uint64(len(b.Bytes))
}

// Context returns a read cursor over the buffer's bytes.
func (b *Buffer) Context() cursor.Context {
	return cursor.NewContext(b.Bytes)
}

// AddLayer creates an empty annotation layer.
func (b *Buffer) AddLayer(name string) error {
	if err := b.layers.CreateVector(name, b.Length()); err != nil {
		return err
	}

	b.layerMeta[name] = Layer{Name: name}

	return nil
}

// RemoveLayer deletes a layer, destroying its entries. The destroyed
// entries are returned grouped by their group ID so an undo can
// restore them.
func (b *Buffer) RemoveLayer(name string) (map[bumpy.GroupID][]bumpy.Placed[Entry], error) {
	if !b.layers.VectorExists(name) {
		return nil, fmt.Errorf("layer %q: %w", name, errs.ErrNameMissing)
	}

	destroyed := make(map[bumpy.GroupID][]bumpy.Placed[Entry])
	for {
		entries, err := b.layers.Entries(name)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			break
		}

		group, removed, err := b.removeGroupAt(name, entries[0].Range.Start)
		if err != nil {
			return nil, err
		}
		destroyed[group] = removed
	}

	if _, err := b.layers.DestroyVector(name); err != nil {
		return nil, err
	}
	delete(b.layerMeta, name)

	return destroyed, nil
}

// HasLayers returns true if any layer exists, empty or not.
func (b *Buffer) HasLayers() bool {
	return b.layers.VectorCount() > 0
}

// LayerExists returns true if the named layer exists.
func (b *Buffer) LayerExists(name string) bool {
	return b.layers.VectorExists(name)
}

// Layers returns the layers in name order.
func (b *Buffer) Layers() []Layer {
	names := b.layers.VectorNames()
	layers := make([]Layer, 0, len(names))
	for _, name := range names {
		layers = append(layers, b.layerMeta[name])
	}

	return layers
}

// SetShowUndefined flips a layer's gap-rendering flag.
func (b *Buffer) SetShowUndefined(layer string, show bool) error {
	meta, ok := b.layerMeta[layer]
	if !ok {
		return fmt.Errorf("layer %q: %w", layer, errs.ErrNameMissing)
	}

	meta.ShowUndefined = show
	b.layerMeta[layer] = meta

	return nil
}

// EntryCount returns the total entries across all layers.
func (b *Buffer) EntryCount() int {
	return b.layers.Len()
}

// Entries returns a layer's entries in address order.
func (b *Buffer) Entries(layer string) ([]bumpy.Entry[bumpy.Linked[Entry]], error) {
	return b.layers.Entries(layer)
}

// GetEntry returns the entry covering addr in a layer, or nil.
func (b *Buffer) GetEntry(layer string, addr uint64) (*bumpy.Entry[bumpy.Linked[Entry]], error) {
	return b.layers.Get(layer, addr)
}

// Gaps returns the undefined ranges of a layer within the window.
func (b *Buffer) Gaps(layer string, start, end uint64) ([]bumpy.Range, error) {
	entries, err := b.layers.Entries(layer)
	if err != nil {
		return nil, err
	}

	v := bumpy.NewVector[struct{}](b.Length())
	for _, e := range entries {
		if err := v.Insert(bumpy.Entry[struct{}]{Range: e.Range}); err != nil {
			return nil, err
		}
	}

	return v.Gaps(start, end), nil
}

// EntrySpec names one entry of a group insertion: a layer, a type and
// the offset to resolve it at.
type EntrySpec struct {
	Layer  string           `cbor:"layer" json:"layer"`
	Type   datatype.TypeRef `cbor:"type" json:"type"`
	Offset uint64           `cbor:"offset" json:"offset"`
}

// resolveSpec resolves a spec's type against the buffer's bytes and
// builds the entry it would insert.
func (b *Buffer) resolveSpec(spec EntrySpec) (bumpy.Placed[Entry], error) {
	if spec.Type.IsNil() {
		return bumpy.Placed[Entry]{}, fmt.Errorf("entry spec has no type: %w", errs.ErrNameMissing)
	}

	offset := datatype.DynamicOffset(b.Context().At(spec.Offset))
	resolved, err := datatype.Resolve(spec.Type.T, offset)
	if err != nil {
		return bumpy.Placed[Entry]{}, err
	}

	kind := CreatorSimpleType
	if len(resolved.Children) > 0 {
		kind = CreatorComplexType
	}

	references := make([]Reference, 0, len(resolved.Related))
	for _, rel := range resolved.Related {
		references = append(references, Reference{Buffer: rel.Buffer, Address: rel.Address})
	}

	return bumpy.Placed[Entry]{
		Vector: spec.Layer,
		Range:  resolved.AlignedRange,
		Value: Entry{
			Range:      resolved.AlignedRange,
			Display:    resolved.Display,
			Creator:    Creator{Kind: kind},
			References: references,
			Recreator:  spec.Type,
		},
	}, nil
}

// CreateEntry resolves a type at an offset and inserts the resulting
// entry into a layer as a singleton group.
func (b *Buffer) CreateEntry(layer string, t datatype.Type, offset uint64) (bumpy.GroupID, error) {
	return b.CreateEntryGroup([]EntrySpec{{Layer: layer, Type: datatype.Ref(t), Offset: offset}})
}

// CreateEntryGroup resolves several specs and inserts all resulting
// entries as one group, all-or-nothing.
func (b *Buffer) CreateEntryGroup(specs []EntrySpec) (bumpy.GroupID, error) {
	batch := make([]bumpy.Placed[Entry], 0, len(specs))
	for _, spec := range specs {
		placed, err := b.resolveSpec(spec)
		if err != nil {
			return 0, err
		}
		batch = append(batch, placed)
	}

	if len(batch) > 1 {
		for i := range batch {
			batch[i].Value.Creator.Kind = CreatorCombinator
		}
	}

	group, err := b.layers.InsertEntries(batch)
	if err != nil {
		return 0, err
	}

	if len(batch) > 1 {
		b.stampGroup(group)
	}

	return group, nil
}

// CreateUserEntry inserts a hand-written annotation with no backing
// type.
func (b *Buffer) CreateUserEntry(layer string, r bumpy.Range, display string) (bumpy.GroupID, error) {
	return b.layers.InsertEntry(layer, r, Entry{
		Range:   r,
		Display: display,
		Creator: Creator{Kind: CreatorUser},
	})
}

// restoreGroup reinserts previously removed entries under their
// original group ID.
func (b *Buffer) restoreGroup(group bumpy.GroupID, entries []bumpy.Placed[Entry]) error {
	return b.layers.InsertEntriesAs(group, entries)
}

// stampGroup writes the group ID into each member's Creator so the
// provenance survives in snapshots.
func (b *Buffer) stampGroup(group bumpy.GroupID) {
	for _, layer := range b.layers.VectorNames() {
		entries, err := b.layers.Entries(layer)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.Value.Group != group {
				continue
			}
			if entry, err := b.layers.Get(layer, e.Range.Start); err == nil && entry != nil {
				if entry.Value.Value.Creator.Kind == CreatorCombinator {
					entry.Value.Value.Creator.Group = group
				}
			}
		}
	}
}

// dropGroup removes a whole group wherever its members live.
func (b *Buffer) dropGroup(group bumpy.GroupID) error {
	for _, layer := range b.layers.VectorNames() {
		entries, err := b.layers.Entries(layer)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Value.Group == group {
				_, err := b.layers.RemoveEntries(layer, e.Range.Start)
				return err
			}
		}
	}

	return nil
}

// relinkEntry moves the entry covering addr from one group to another,
// reversing an unlink.
func (b *Buffer) relinkEntry(layer string, addr uint64, from, to bumpy.GroupID) error {
	entry, err := b.layers.Get(layer, addr)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no entry at 0x%x in layer %q: %w", addr, layer, errs.ErrNameMissing)
	}
	if entry.Value.Group != from {
		return fmt.Errorf("entry at 0x%x is in group %d, not %d: %w", addr, entry.Value.Group, from, errs.ErrNameMissing)
	}

	return b.layers.RelinkEntry(layer, addr, to)
}

// removeGroupAt removes the group of the entry covering addr and
// returns its ID and members.
func (b *Buffer) removeGroupAt(layer string, addr uint64) (bumpy.GroupID, []bumpy.Placed[Entry], error) {
	entry, err := b.layers.Get(layer, addr)
	if err != nil {
		return 0, nil, err
	}
	if entry == nil {
		return 0, nil, fmt.Errorf("no entry at 0x%x in layer %q: %w", addr, layer, errs.ErrNameMissing)
	}

	group := entry.Value.Group
	removed, err := b.layers.RemoveEntries(layer, addr)
	if err != nil {
		return 0, nil, err
	}

	return group, removed, nil
}

// RemoveEntry removes the entry covering addr and every entry in its
// group, returning the group and its members.
func (b *Buffer) RemoveEntry(layer string, addr uint64) (bumpy.GroupID, []bumpy.Placed[Entry], error) {
	return b.removeGroupAt(layer, addr)
}

// UnlinkEntry detaches the entry covering addr into its own singleton
// group. Returns the old and new group IDs.
func (b *Buffer) UnlinkEntry(layer string, addr uint64) (oldGroup, newGroup bumpy.GroupID, err error) {
	entry, err := b.layers.Get(layer, addr)
	if err != nil {
		return 0, 0, err
	}
	if entry == nil {
		return 0, 0, fmt.Errorf("no entry at 0x%x in layer %q: %w", addr, layer, errs.ErrNameMissing)
	}

	oldGroup = entry.Value.Group
	newGroup, err = b.layers.UnlinkEntry(layer, addr)

	return oldGroup, newGroup, err
}

// UndefineRange removes every entry in the layer intersecting the
// window, including group siblings outside it. Returns the destroyed
// groups.
func (b *Buffer) UndefineRange(layer string, r bumpy.Range) (map[bumpy.GroupID][]bumpy.Placed[Entry], error) {
	if !b.layers.VectorExists(layer) {
		return nil, fmt.Errorf("layer %q: %w", layer, errs.ErrNameMissing)
	}

	destroyed := make(map[bumpy.GroupID][]bumpy.Placed[Entry])
	for {
		entries, err := b.layers.Entries(layer)
		if err != nil {
			return nil, err
		}

		var next *bumpy.Entry[bumpy.Linked[Entry]]
		for i := range entries {
			if entries[i].Range.Intersects(r) {
				next = &entries[i]
				break
			}
		}
		if next == nil {
			return destroyed, nil
		}

		group, removed, err := b.removeGroupAt(layer, next.Range.Start)
		if err != nil {
			return nil, err
		}
		destroyed[group] = removed
	}
}

// SetComment sets the comment on the entry covering addr and returns
// the previous comment.
func (b *Buffer) SetComment(layer string, addr uint64, comment string) (string, error) {
	entry, err := b.layers.Get(layer, addr)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", fmt.Errorf("no entry at 0x%x in layer %q: %w", addr, layer, errs.ErrNameMissing)
	}

	old := entry.Value.Value.Comment
	entry.Value.Value.Comment = comment

	return old, nil
}

// AddXref records that from points at toAddress in this buffer.
func (b *Buffer) AddXref(from Reference, toAddress uint64) {
	b.Xrefs[toAddress] = append(b.Xrefs[toAddress], Xref{
		FromBuffer:  from.Buffer,
		FromAddress: from.Address,
	})
}

// RemoveXref removes a previously recorded xref. Returns
// errs.ErrNameMissing if it was not recorded.
func (b *Buffer) RemoveXref(from Reference, toAddress uint64) error {
	refs := b.Xrefs[toAddress]
	for i, x := range refs {
		if x.FromBuffer == from.Buffer && x.FromAddress == from.Address {
			b.Xrefs[toAddress] = append(refs[:i], refs[i+1:]...)
			if len(b.Xrefs[toAddress]) == 0 {
				delete(b.Xrefs, toAddress)
			}
			return nil
		}
	}

	return fmt.Errorf("xref %s:0x%x -> 0x%x: %w", from.Buffer, from.Address, toAddress, errs.ErrNameMissing)
}

// XrefsTo returns the incoming references for an address, sorted for
// stable display.
func (b *Buffer) XrefsTo(addr uint64) []Xref {
	refs := append([]Xref(nil), b.Xrefs[addr]...)
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].FromBuffer != refs[j].FromBuffer {
			return refs[i].FromBuffer < refs[j].FromBuffer
		}
		return refs[i].FromAddress < refs[j].FromAddress
	})

	return refs
}

// ApplyTransform decodes the buffer's bytes through a transformation
// and appends it to the history. Refused while the buffer has any
// layers, even empty ones: a transform changes both content and
// length, invalidating every layer's address space. A one-way
// transform permanently clears Editable.
func (b *Buffer) ApplyTransform(t transform.Transform) error {
	if b.HasLayers() {
		return fmt.Errorf("buffer %q: %w", b.Name, errs.ErrHasAnnotations)
	}

	transformed, err := t.Transform(b.Bytes)
	if err != nil {
		return err
	}

	record, err := transform.Encode(t)
	if err != nil {
		return err
	}

	b.Bytes = transformed
	b.Transforms = append(b.Transforms, record)
	if !t.IsTwoWay() {
		b.Editable = false
	}

	return nil
}

// UnapplyTransform reverses the most recent transformation. Requires
// it to be two-way and the buffer to have no layers.
func (b *Buffer) UnapplyTransform() (transform.Record, error) {
	if len(b.Transforms) == 0 {
		return transform.Record{}, fmt.Errorf("buffer %q has no transformations: %w", b.Name, errs.ErrNothingToUndo)
	}

	if b.HasLayers() {
		return transform.Record{}, fmt.Errorf("buffer %q: %w", b.Name, errs.ErrHasAnnotations)
	}

	record := b.Transforms[len(b.Transforms)-1]
	t, err := transform.Decode(record)
	if err != nil {
		return transform.Record{}, err
	}

	restored, err := t.Untransform(b.Bytes)
	if err != nil {
		return transform.Record{}, err
	}

	b.Bytes = restored
	b.Transforms = b.Transforms[:len(b.Transforms)-1]

	return record, nil
}

// EditBytes overwrites the range starting at offset with newBytes,
// which must fit inside the buffer. Entries under the edit are
// re-resolved per their recreator: an entry whose new aligned range
// matches its old range is re-created with a fresh display; anything
// else is left undefined and reported in the notices.
func (b *Buffer) EditBytes(offset uint64, newBytes []byte) ([]Notice, *EditUndo, error) {
	if !b.Editable {
		return nil, nil, fmt.Errorf("buffer %q: %w", b.Name, errs.ErrBufferNotEditable)
	}

	end := offset + uint64(len(newBytes))
	if end > b.Length() || end < offset {
		return nil, nil, fmt.Errorf("edit %s exceeds buffer %q length 0x%x: %w", bumpy.Range{Start: offset, End: end}, b.Name, b.Length(), errs.ErrOutOfBounds)
	}

	undo := &EditUndo{
		OldBytes: append([]byte(nil), b.Bytes[offset:end]...),
		Removed:  make(map[string]map[bumpy.GroupID][]bumpy.Placed[Entry]),
	}

	edited := bumpy.Range{Start: offset, End: end}
	copy(b.Bytes[offset:end], newBytes)

	// Destroy across every layer first: a group can span layers, and
	// re-creating it early would let a later layer's sweep capture the
	// re-created entries instead of the originals.
	type destroyedGroup struct {
		layer   string
		group   bumpy.GroupID
		members []bumpy.Placed[Entry]
	}

	all := make([]destroyedGroup, 0)
	for _, layer := range b.layers.VectorNames() {
		destroyed, err := b.UndefineRange(layer, edited)
		if err != nil {
			return nil, nil, err
		}
		if len(destroyed) > 0 {
			undo.Removed[layer] = destroyed
		}
		for group, members := range destroyed {
			all = append(all, destroyedGroup{layer: layer, group: group, members: members})
		}
	}

	notices := make([]Notice, 0)
	for _, d := range all {
		notice := b.reresolveGroup(d.layer, d.group, d.members, &undo.Recreated)
		notices = append(notices, notice...)
	}

	return notices, undo, nil
}

// reresolveGroup attempts to re-create a destroyed group from its
// members' recreators. All members must re-resolve to their exact old
// ranges; otherwise the whole group stays undefined.
func (b *Buffer) reresolveGroup(layer string, group bumpy.GroupID, members []bumpy.Placed[Entry], recreated *[]RecreatedGroup) []Notice {
	specs := make([]EntrySpec, 0, len(members))
	for _, m := range members {
		if m.Value.Recreator.IsNil() {
			return []Notice{{
				Buffer:  b.Name,
				Layer:   m.Vector,
				Range:   m.Range,
				Message: "entry has no recreator; range left undefined",
			}}
		}
		specs = append(specs, EntrySpec{Layer: m.Vector, Type: m.Value.Recreator, Offset: m.Range.Start})
	}

	batch := make([]bumpy.Placed[Entry], 0, len(specs))
	for i, spec := range specs {
		placed, err := b.resolveSpec(spec)
		if err != nil || placed.Range != members[i].Range {
			return []Notice{{
				Buffer:  b.Name,
				Layer:   spec.Layer,
				Range:   members[i].Range,
				Message: "type no longer resolves to the same range; left undefined",
			}}
		}
		placed.Value.Creator = members[i].Value.Creator
		placed.Value.Comment = members[i].Value.Comment
		batch = append(batch, placed)
	}

	if err := b.layers.InsertEntriesAs(group, batch); err != nil {
		return []Notice{{
			Buffer:  b.Name,
			Layer:   layer,
			Range:   members[0].Range,
			Message: "re-created entry collides; range left undefined",
		}}
	}

	*recreated = append(*recreated, RecreatedGroup{Group: group})

	return nil
}

// EditUndo captures what a byte edit destroyed so the edit action can
// be reversed exactly.
type EditUndo struct {
	OldBytes []byte `cbor:"old_bytes"`

	// Removed is layer → group → members destroyed by the edit.
	Removed map[string]map[bumpy.GroupID][]bumpy.Placed[Entry] `cbor:"removed,omitempty"`

	// Recreated lists groups the edit re-inserted after re-resolution.
	Recreated []RecreatedGroup `cbor:"recreated,omitempty"`
}

// RecreatedGroup names a group that was re-created by re-resolution.
type RecreatedGroup struct {
	Group bumpy.GroupID `cbor:"group"`
}
