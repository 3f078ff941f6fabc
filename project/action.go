package project

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/data"
	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/errs"
	"github.com/binscope/binscope/transform"
)

// Action is one mutation of a project, paired with its inverse: apply
// captures whatever pre-image undo needs. The variant set is closed;
// all implementations live in this package.
type Action interface {
	// Kind returns the stable name the action serialises under.
	Kind() string

	apply(p *Project) error
	undo(p *Project) error
}

// ActionRecord is the serialised form of an Action.
type ActionRecord struct {
	Kind string          `cbor:"kind"`
	Body cbor.RawMessage `cbor:"body"`
}

var actionFactories = map[string]func() Action{
	"buffer_create_from_bytes": func() Action { return &CreateBufferFromBytes{} },
	"buffer_create_empty":      func() Action { return &CreateBufferEmpty{} },
	"buffer_clone":             func() Action { return &CloneBuffer{} },
	"buffer_extract":           func() Action { return &ExtractBuffer{} },
	"buffer_split":             func() Action { return &SplitBuffer{} },
	"buffer_remove":            func() Action { return &RemoveBuffer{} },
	"buffer_rebase":            func() Action { return &RebaseBuffer{} },
	"buffer_transform":         func() Action { return &TransformBuffer{} },
	"buffer_untransform":       func() Action { return &UntransformBuffer{} },
	"buffer_edit_bytes":        func() Action { return &EditBytes{} },
	"layer_create":             func() Action { return &AddLayer{} },
	"layer_remove":             func() Action { return &RemoveLayer{} },
	"entry_create":             func() Action { return &CreateEntry{} },
	"entry_create_group":       func() Action { return &CreateEntryGroup{} },
	"entry_delete":             func() Action { return &DeleteEntry{} },
	"entry_unlink":             func() Action { return &UnlinkEntry{} },
	"entry_undefine_range":     func() Action { return &UndefineRange{} },
	"entry_set_comment":        func() Action { return &SetComment{} },
	"xref_add":                 func() Action { return &AddXref{} },
	"xref_remove":              func() Action { return &RemoveXref{} },
	"buffer_set_ref":           func() Action { return &SetBufferRef{} },
	"datum_load":               func() Action { return &LoadDatum{} },
}

// EncodeAction converts an action to its serialised record.
func EncodeAction(a Action) (ActionRecord, error) {
	body, err := cbor.Marshal(a)
	if err != nil {
		return ActionRecord{}, fmt.Errorf("encoding action %s: %w", a.Kind(), err)
	}

	return ActionRecord{Kind: a.Kind(), Body: body}, nil
}

// DecodeAction reconstructs an action from its record.
func DecodeAction(r ActionRecord) (Action, error) {
	factory, ok := actionFactories[r.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown action kind %q: %w", r.Kind, errs.ErrDecodeFailure)
	}

	a := factory()
	if err := cbor.Unmarshal(r.Body, a); err != nil {
		return nil, fmt.Errorf("decoding action %s: %w", r.Kind, err)
	}

	return a, nil
}

// CreateBufferFromBytes creates a buffer owning a copy of Data.
type CreateBufferFromBytes struct {
	Name        string `cbor:"name"`
	Data        []byte `cbor:"data"`
	BaseAddress uint64 `cbor:"base_address"`
}

func (a *CreateBufferFromBytes) Kind() string { return "buffer_create_from_bytes" }

func (a *CreateBufferFromBytes) apply(p *Project) error {
	return p.insertBuffer(NewBuffer(a.Name, a.Data, a.BaseAddress))
}

func (a *CreateBufferFromBytes) undo(p *Project) error {
	_, err := p.removeBuffer(a.Name)
	return err
}

// CreateBufferEmpty creates a zero-filled buffer.
type CreateBufferEmpty struct {
	Name        string `cbor:"name"`
	Size        uint64 `cbor:"size"`
	BaseAddress uint64 `cbor:"base_address"`
}

func (a *CreateBufferEmpty) Kind() string { return "buffer_create_empty" }

func (a *CreateBufferEmpty) apply(p *Project) error {
	return p.insertBuffer(NewBuffer(a.Name, make([]byte, a.Size), a.BaseAddress))
}

func (a *CreateBufferEmpty) undo(p *Project) error {
	_, err := p.removeBuffer(a.Name)
	return err
}

// CloneBuffer copies a buffer's bytes into a new buffer; annotations
// do not transfer.
type CloneBuffer struct {
	Source  string `cbor:"source"`
	NewName string `cbor:"new_name"`
}

func (a *CloneBuffer) Kind() string { return "buffer_clone" }

func (a *CloneBuffer) apply(p *Project) error {
	source, err := p.buffer(a.Source)
	if err != nil {
		return err
	}

	return p.insertBuffer(source.Clone(a.NewName))
}

func (a *CloneBuffer) undo(p *Project) error {
	_, err := p.removeBuffer(a.NewName)
	return err
}

// ExtractBuffer carves a range out of a buffer into a new child
// buffer, recording the parent/child link for export.
type ExtractBuffer struct {
	Source  string `cbor:"source"`
	Start   uint64 `cbor:"start"`
	End     uint64 `cbor:"end"`
	NewName string `cbor:"new_name"`
}

func (a *ExtractBuffer) Kind() string { return "buffer_extract" }

func (a *ExtractBuffer) apply(p *Project) error {
	source, err := p.buffer(a.Source)
	if err != nil {
		return err
	}

	r := bumpy.Range{Start: a.Start, End: a.End}
	if r.IsEmpty() {
		return fmt.Errorf("extract %s: %w", r, errs.ErrEmptyRange)
	}
	if a.End > source.Length() {
		return fmt.Errorf("extract %s from buffer of length 0x%x: %w", r, source.Length(), errs.ErrOutOfBounds)
	}

	child := NewBuffer(a.NewName, source.Bytes[a.Start:a.End], source.BaseAddress+a.Start)
	child.ParentName = a.Source
	child.ParentOffset = a.Start

	if err := p.insertBuffer(child); err != nil {
		return err
	}
	source.Children[a.NewName] = struct{}{}

	return nil
}

func (a *ExtractBuffer) undo(p *Project) error {
	if _, err := p.removeBuffer(a.NewName); err != nil {
		return err
	}

	if source, err := p.buffer(a.Source); err == nil {
		delete(source.Children, a.NewName)
	}

	return nil
}

// SplitBuffer carves a buffer into consecutive child buffers at the
// given cut offsets. Cuts must be ascending and interior; names cover
// the len(cuts)+1 pieces.
type SplitBuffer struct {
	Source   string   `cbor:"source"`
	Cuts     []uint64 `cbor:"cuts"`
	NewNames []string `cbor:"new_names"`
}

func (a *SplitBuffer) Kind() string { return "buffer_split" }

func (a *SplitBuffer) apply(p *Project) error {
	source, err := p.buffer(a.Source)
	if err != nil {
		return err
	}

	if len(a.NewNames) != len(a.Cuts)+1 {
		return fmt.Errorf("split needs %d names for %d cuts, got %d: %w", len(a.Cuts)+1, len(a.Cuts), len(a.NewNames), errs.ErrOutOfBounds)
	}

	bounds := make([]uint64, 0, len(a.Cuts)+2)
	bounds = append(bounds, 0)
	prev := uint64(0)
	for _, cut := range a.Cuts {
		if cut <= prev || cut >= source.Length() {
			return fmt.Errorf("cut 0x%x is not interior and ascending: %w", cut, errs.ErrOutOfBounds)
		}
		bounds = append(bounds, cut)
		prev = cut
	}
	bounds = append(bounds, source.Length())

	// Validate all names before creating anything.
	seen := make(map[string]struct{}, len(a.NewNames))
	for _, name := range a.NewNames {
		if _, dup := seen[name]; dup || p.BufferExists(name) {
			return fmt.Errorf("buffer %q: %w", name, errs.ErrNameExists)
		}
		seen[name] = struct{}{}
	}

	for i, name := range a.NewNames {
		child := NewBuffer(name, source.Bytes[bounds[i]:bounds[i+1]], source.BaseAddress+bounds[i])
		child.ParentName = a.Source
		child.ParentOffset = bounds[i]
		if err := p.insertBuffer(child); err != nil {
			return err
		}
		source.Children[name] = struct{}{}
	}

	return nil
}

func (a *SplitBuffer) undo(p *Project) error {
	source, err := p.buffer(a.Source)
	if err != nil {
		return err
	}

	for _, name := range a.NewNames {
		if _, err := p.removeBuffer(name); err != nil {
			return err
		}
		delete(source.Children, name)
	}

	return nil
}

// RemoveBuffer deletes a buffer, capturing a full snapshot for undo.
// Refused while the buffer has children.
type RemoveBuffer struct {
	Name string `cbor:"name"`

	Snapshot *BufferSnapshot `cbor:"snapshot,omitempty"`
}

func (a *RemoveBuffer) Kind() string { return "buffer_remove" }

func (a *RemoveBuffer) apply(p *Project) error {
	b, err := p.buffer(a.Name)
	if err != nil {
		return err
	}

	if len(b.Children) > 0 {
		return fmt.Errorf("buffer %q has children: %w", a.Name, errs.ErrNotEmpty)
	}

	snapshot, err := snapshotBuffer(b)
	if err != nil {
		return err
	}
	a.Snapshot = &snapshot

	_, err = p.removeBuffer(a.Name)

	return err
}

func (a *RemoveBuffer) undo(p *Project) error {
	if a.Snapshot == nil {
		return fmt.Errorf("remove of %q captured no snapshot: %w", a.Name, errs.ErrNothingToUndo)
	}

	restored, err := restoreBuffer(*a.Snapshot)
	if err != nil {
		return err
	}

	return p.insertBuffer(restored)
}

// RebaseBuffer changes a buffer's base address.
type RebaseBuffer struct {
	Name    string `cbor:"name"`
	NewBase uint64 `cbor:"new_base"`

	OldBase uint64 `cbor:"old_base,omitempty"`
}

func (a *RebaseBuffer) Kind() string { return "buffer_rebase" }

func (a *RebaseBuffer) apply(p *Project) error {
	b, err := p.buffer(a.Name)
	if err != nil {
		return err
	}

	a.OldBase = b.BaseAddress
	b.BaseAddress = a.NewBase

	return nil
}

func (a *RebaseBuffer) undo(p *Project) error {
	b, err := p.buffer(a.Name)
	if err != nil {
		return err
	}

	b.BaseAddress = a.OldBase

	return nil
}

// TransformBuffer applies a transformation to a buffer's bytes. A
// one-way transformation truncates the project's undo history
// immediately after logging.
type TransformBuffer struct {
	Buffer string           `cbor:"buffer"`
	Record transform.Record `cbor:"record"`
}

func (a *TransformBuffer) Kind() string { return "buffer_transform" }

// oneWay reports whether the recorded transform cannot be reversed.
func (a *TransformBuffer) oneWay() bool {
	t, err := transform.Decode(a.Record)

	return err != nil || !t.IsTwoWay()
}

func (a *TransformBuffer) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	t, err := transform.Decode(a.Record)
	if err != nil {
		return err
	}

	return b.ApplyTransform(t)
}

func (a *TransformBuffer) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	_, err = b.UnapplyTransform()

	return err
}

// UntransformBuffer reverses a buffer's most recent transformation.
type UntransformBuffer struct {
	Buffer string `cbor:"buffer"`

	Record transform.Record `cbor:"record,omitempty"`
}

func (a *UntransformBuffer) Kind() string { return "buffer_untransform" }

func (a *UntransformBuffer) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	record, err := b.UnapplyTransform()
	if err != nil {
		return err
	}
	a.Record = record

	return nil
}

func (a *UntransformBuffer) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	t, err := transform.Decode(a.Record)
	if err != nil {
		return err
	}

	return b.ApplyTransform(t)
}

// EditBytes overwrites part of a buffer and re-resolves affected
// entries. Notices describe entries that could not be re-created.
type EditBytes struct {
	Buffer   string `cbor:"buffer"`
	Offset   uint64 `cbor:"offset"`
	NewBytes []byte `cbor:"new_bytes"`

	Captured *EditUndo `cbor:"captured,omitempty"`
	Notices  []Notice  `cbor:"notices,omitempty"`
}

func (a *EditBytes) Kind() string { return "buffer_edit_bytes" }

func (a *EditBytes) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	notices, undo, err := b.EditBytes(a.Offset, a.NewBytes)
	if err != nil {
		return err
	}

	a.Captured = undo
	a.Notices = notices

	return nil
}

func (a *EditBytes) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	if a.Captured == nil {
		return fmt.Errorf("edit of %q captured no pre-image: %w", a.Buffer, errs.ErrNothingToUndo)
	}

	// Drop the groups re-resolution created, restore the bytes, then
	// the original entries.
	for _, rec := range a.Captured.Recreated {
		if err := b.dropGroup(rec.Group); err != nil {
			return err
		}
	}

	copy(b.Bytes[a.Offset:a.Offset+uint64(len(a.Captured.OldBytes))], a.Captured.OldBytes)

	for _, groups := range a.Captured.Removed {
		for group, members := range groups {
			if err := b.restoreGroup(group, members); err != nil {
				return err
			}
		}
	}

	return nil
}

// AddLayer creates an annotation layer on a buffer.
type AddLayer struct {
	Buffer string `cbor:"buffer"`
	Layer  string `cbor:"layer"`
}

func (a *AddLayer) Kind() string { return "layer_create" }

func (a *AddLayer) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	return b.AddLayer(a.Layer)
}

func (a *AddLayer) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	_, err = b.RemoveLayer(a.Layer)

	return err
}

// RemoveLayer deletes a layer and its entries.
type RemoveLayer struct {
	Buffer string `cbor:"buffer"`
	Layer  string `cbor:"layer"`

	Destroyed map[bumpy.GroupID][]bumpy.Placed[Entry] `cbor:"destroyed,omitempty"`
}

func (a *RemoveLayer) Kind() string { return "layer_remove" }

func (a *RemoveLayer) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	destroyed, err := b.RemoveLayer(a.Layer)
	if err != nil {
		return err
	}
	a.Destroyed = destroyed

	return nil
}

func (a *RemoveLayer) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	if err := b.AddLayer(a.Layer); err != nil {
		return err
	}

	for group, members := range a.Destroyed {
		if err := b.restoreGroup(group, members); err != nil {
			return err
		}
	}

	return nil
}

// CreateEntry resolves a type at an offset and inserts the entry. The
// chosen group ID is captured so redo reproduces it exactly.
type CreateEntry struct {
	Buffer string           `cbor:"buffer"`
	Layer  string           `cbor:"layer"`
	Type   datatype.TypeRef `cbor:"type"`
	Offset uint64           `cbor:"offset"`

	Group   *bumpy.GroupID `cbor:"group,omitempty"`
	Created bumpy.Range    `cbor:"created,omitempty"`
}

func (a *CreateEntry) Kind() string { return "entry_create" }

func (a *CreateEntry) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	spec := EntrySpec{Layer: a.Layer, Type: a.Type, Offset: a.Offset}
	placed, err := b.resolveSpec(spec)
	if err != nil {
		return err
	}

	if a.Group != nil {
		// Redo path: reuse the group observed the first time.
		if err := b.restoreGroup(*a.Group, []bumpy.Placed[Entry]{placed}); err != nil {
			return err
		}
	} else {
		group, err := b.layers.InsertEntries([]bumpy.Placed[Entry]{placed})
		if err != nil {
			return err
		}
		a.Group = &group
	}

	a.Created = placed.Range

	return nil
}

func (a *CreateEntry) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	_, _, err = b.RemoveEntry(a.Layer, a.Created.Start)

	return err
}

// CreateEntryGroup inserts entries for several (layer, type, offset)
// specs as one atomic group.
type CreateEntryGroup struct {
	Buffer string      `cbor:"buffer"`
	Specs  []EntrySpec `cbor:"specs"`

	Group   *bumpy.GroupID `cbor:"group,omitempty"`
	Created []bumpy.Range  `cbor:"created,omitempty"`
}

func (a *CreateEntryGroup) Kind() string { return "entry_create_group" }

func (a *CreateEntryGroup) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	batch := make([]bumpy.Placed[Entry], 0, len(a.Specs))
	for _, spec := range a.Specs {
		placed, err := b.resolveSpec(spec)
		if err != nil {
			return err
		}
		if len(a.Specs) > 1 {
			placed.Value.Creator.Kind = CreatorCombinator
		}
		batch = append(batch, placed)
	}

	if a.Group != nil {
		if err := b.layers.InsertEntriesAs(*a.Group, batch); err != nil {
			return err
		}
	} else {
		group, err := b.layers.InsertEntries(batch)
		if err != nil {
			return err
		}
		a.Group = &group
	}

	if len(batch) > 1 {
		b.stampGroup(*a.Group)
	}

	a.Created = make([]bumpy.Range, 0, len(batch))
	for _, placed := range batch {
		a.Created = append(a.Created, placed.Range)
	}

	return nil
}

func (a *CreateEntryGroup) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	if len(a.Specs) == 0 {
		return nil
	}

	_, _, err = b.RemoveEntry(a.Specs[0].Layer, a.Created[0].Start)

	return err
}

// DeleteEntry removes the entry covering an address together with its
// whole group.
type DeleteEntry struct {
	Buffer  string `cbor:"buffer"`
	Layer   string `cbor:"layer"`
	Address uint64 `cbor:"address"`

	Group   bumpy.GroupID         `cbor:"group,omitempty"`
	Removed []bumpy.Placed[Entry] `cbor:"removed,omitempty"`
}

func (a *DeleteEntry) Kind() string { return "entry_delete" }

func (a *DeleteEntry) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	group, removed, err := b.RemoveEntry(a.Layer, a.Address)
	if err != nil {
		return err
	}

	a.Group = group
	a.Removed = removed

	return nil
}

func (a *DeleteEntry) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	return b.restoreGroup(a.Group, a.Removed)
}

// UnlinkEntry detaches an entry from its group into a fresh singleton
// group.
type UnlinkEntry struct {
	Buffer  string `cbor:"buffer"`
	Layer   string `cbor:"layer"`
	Address uint64 `cbor:"address"`

	OldGroup bumpy.GroupID `cbor:"old_group,omitempty"`
	NewGroup bumpy.GroupID `cbor:"new_group,omitempty"`
}

func (a *UnlinkEntry) Kind() string { return "entry_unlink" }

func (a *UnlinkEntry) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	oldGroup, newGroup, err := b.UnlinkEntry(a.Layer, a.Address)
	if err != nil {
		return err
	}

	a.OldGroup = oldGroup
	a.NewGroup = newGroup

	return nil
}

func (a *UnlinkEntry) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	return b.relinkEntry(a.Layer, a.Address, a.NewGroup, a.OldGroup)
}

// UndefineRange removes every entry in a layer intersecting a window.
type UndefineRange struct {
	Buffer string `cbor:"buffer"`
	Layer  string `cbor:"layer"`
	Start  uint64 `cbor:"start"`
	End    uint64 `cbor:"end"`

	Destroyed map[bumpy.GroupID][]bumpy.Placed[Entry] `cbor:"destroyed,omitempty"`
}

func (a *UndefineRange) Kind() string { return "entry_undefine_range" }

func (a *UndefineRange) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	destroyed, err := b.UndefineRange(a.Layer, bumpy.Range{Start: a.Start, End: a.End})
	if err != nil {
		return err
	}
	a.Destroyed = destroyed

	return nil
}

func (a *UndefineRange) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	for group, members := range a.Destroyed {
		if err := b.restoreGroup(group, members); err != nil {
			return err
		}
	}

	return nil
}

// SetComment sets a comment on the entry covering an address.
type SetComment struct {
	Buffer  string `cbor:"buffer"`
	Layer   string `cbor:"layer"`
	Address uint64 `cbor:"address"`
	Comment string `cbor:"comment"`

	Old string `cbor:"old,omitempty"`
}

func (a *SetComment) Kind() string { return "entry_set_comment" }

func (a *SetComment) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	old, err := b.SetComment(a.Layer, a.Address, a.Comment)
	if err != nil {
		return err
	}
	a.Old = old

	return nil
}

func (a *SetComment) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	_, err = b.SetComment(a.Layer, a.Address, a.Old)

	return err
}

// AddXref records that (FromBuffer, FromAddress) points at
// (ToBuffer, ToAddress). Stored on the target buffer.
type AddXref struct {
	FromBuffer  string `cbor:"from_buffer"`
	FromAddress uint64 `cbor:"from_address"`
	ToBuffer    string `cbor:"to_buffer"`
	ToAddress   uint64 `cbor:"to_address"`
}

func (a *AddXref) Kind() string { return "xref_add" }

func (a *AddXref) apply(p *Project) error {
	target, err := p.buffer(a.ToBuffer)
	if err != nil {
		return err
	}

	target.AddXref(Reference{Buffer: a.FromBuffer, Address: a.FromAddress}, a.ToAddress)

	return nil
}

func (a *AddXref) undo(p *Project) error {
	target, err := p.buffer(a.ToBuffer)
	if err != nil {
		return err
	}

	return target.RemoveXref(Reference{Buffer: a.FromBuffer, Address: a.FromAddress}, a.ToAddress)
}

// RemoveXref deletes a recorded xref.
type RemoveXref struct {
	FromBuffer  string `cbor:"from_buffer"`
	FromAddress uint64 `cbor:"from_address"`
	ToBuffer    string `cbor:"to_buffer"`
	ToAddress   uint64 `cbor:"to_address"`
}

func (a *RemoveXref) Kind() string { return "xref_remove" }

func (a *RemoveXref) apply(p *Project) error {
	target, err := p.buffer(a.ToBuffer)
	if err != nil {
		return err
	}

	return target.RemoveXref(Reference{Buffer: a.FromBuffer, Address: a.FromAddress}, a.ToAddress)
}

func (a *RemoveXref) undo(p *Project) error {
	target, err := p.buffer(a.ToBuffer)
	if err != nil {
		return err
	}

	target.AddXref(Reference{Buffer: a.FromBuffer, Address: a.FromAddress}, a.ToAddress)

	return nil
}

// SetBufferRef binds a semantic name on a buffer ("header",
// "strings") to another buffer's name. An empty Target deletes the
// binding.
type SetBufferRef struct {
	Buffer string `cbor:"buffer"`
	Ref    string `cbor:"ref"`
	Target string `cbor:"target"`

	Old string `cbor:"old,omitempty"`
}

func (a *SetBufferRef) Kind() string { return "buffer_set_ref" }

func (a *SetBufferRef) apply(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	if a.Target != "" && !p.BufferExists(a.Target) {
		return fmt.Errorf("ref target %q: %w", a.Target, errs.ErrNameMissing)
	}

	a.Old = b.Refs[a.Ref]
	if a.Target == "" {
		delete(b.Refs, a.Ref)
	} else {
		b.Refs[a.Ref] = a.Target
	}

	return nil
}

func (a *SetBufferRef) undo(p *Project) error {
	b, err := p.buffer(a.Buffer)
	if err != nil {
		return err
	}

	if a.Old == "" {
		delete(b.Refs, a.Ref)
	} else {
		b.Refs[a.Ref] = a.Old
	}

	return nil
}

// DatumKind tags what table a LoadDatum carries.
type DatumKind uint8

const (
	// DatumConstants loads a constants table.
	DatumConstants DatumKind = iota
	// DatumEnum loads an enum table.
	DatumEnum
	// DatumBitmask loads a bitmask table.
	DatumBitmask
	// DatumType loads a named type.
	DatumType
)

// LoadDatum ingests an already-parsed table into the data registry.
type LoadDatum struct {
	DatumKind DatumKind `cbor:"datum_kind"`
	Namespace string    `cbor:"namespace,omitempty"`
	Name      string    `cbor:"name"`

	Constants []data.ConstantPair `cbor:"constants,omitempty"`
	Enum      map[uint64]string   `cbor:"enum,omitempty"`
	Bitmask   map[uint8]string    `cbor:"bitmask,omitempty"`
	Type      datatype.TypeRef    `cbor:"type,omitempty"`
}

func (a *LoadDatum) Kind() string { return "datum_load" }

func (a *LoadDatum) apply(p *Project) error {
	switch a.DatumKind {
	case DatumConstants:
		return p.registry.LoadConstants(a.Namespace, a.Name, a.Constants)
	case DatumEnum:
		return p.registry.LoadEnum(a.Namespace, a.Name, a.Enum)
	case DatumBitmask:
		return p.registry.LoadBitmask(a.Namespace, a.Name, a.Bitmask)
	case DatumType:
		if a.Type.IsNil() {
			return fmt.Errorf("datum %s::%s carries no type: %w", a.Namespace, a.Name, errs.ErrDecodeFailure)
		}
		return p.registry.LoadType(a.Namespace, a.Name, a.Type.T)
	default:
		return fmt.Errorf("unknown datum kind %d: %w", a.DatumKind, errs.ErrDecodeFailure)
	}
}

func (a *LoadDatum) undo(p *Project) error {
	switch a.DatumKind {
	case DatumConstants:
		return p.registry.RemoveConstants(a.Namespace, a.Name)
	case DatumEnum:
		return p.registry.RemoveEnum(a.Namespace, a.Name)
	case DatumBitmask:
		return p.registry.RemoveBitmask(a.Namespace, a.Name)
	case DatumType:
		return p.registry.RemoveType(a.Namespace, a.Name)
	default:
		return fmt.Errorf("unknown datum kind %d: %w", a.DatumKind, errs.ErrDecodeFailure)
	}
}
