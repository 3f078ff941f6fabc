package project

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/data"
	"github.com/binscope/binscope/errs"
	"github.com/binscope/binscope/internal/hash"
	"github.com/binscope/binscope/transform"
)

// SchemaVersion is bumped whenever the persisted layout changes
// incompatibly. Compatibility is judged by this number, not by the
// concrete encoding.
const SchemaVersion = 1

// LayerSnapshot is one layer's persisted state. Entries carry their
// group IDs so cross-layer groups rebuild exactly.
type LayerSnapshot struct {
	Name          string               `cbor:"name"`
	ShowUndefined bool                 `cbor:"show_undefined,omitempty"`
	Entries       []LayerEntrySnapshot `cbor:"entries,omitempty"`
}

// LayerEntrySnapshot is one persisted entry.
type LayerEntrySnapshot struct {
	Range bumpy.Range   `cbor:"range"`
	Group bumpy.GroupID `cbor:"group"`
	Entry Entry         `cbor:"entry"`
}

// BufferSnapshot is one buffer's persisted state. Checksum guards the
// bytes against corruption between save and load.
type BufferSnapshot struct {
	Name         string              `cbor:"name"`
	BaseAddress  uint64              `cbor:"base_address"`
	Bytes        []byte              `cbor:"bytes"`
	Checksum     uint64              `cbor:"checksum"`
	Editable     bool                `cbor:"editable"`
	Transforms   []transform.Record  `cbor:"transforms,omitempty"`
	ParentName   string              `cbor:"parent_name,omitempty"`
	ParentOffset uint64              `cbor:"parent_offset,omitempty"`
	Children     []string            `cbor:"children,omitempty"`
	Refs         map[string]string   `cbor:"refs,omitempty"`
	Xrefs        map[uint64][]Xref   `cbor:"xrefs,omitempty"`
	Layers       []LayerSnapshot     `cbor:"layers,omitempty"`
}

// ProjectSnapshot is the persisted form of a whole project: a
// self-describing nested record of metadata, buffers, registry and
// action log.
type ProjectSnapshot struct {
	SchemaVersion int              `cbor:"schema_version"`
	Name          string           `cbor:"name"`
	Version       string           `cbor:"version"`
	Buffers       []BufferSnapshot `cbor:"buffers,omitempty"`
	Registry      data.Snapshot    `cbor:"registry"`
	ActionLog     []ActionRecord   `cbor:"action_log,omitempty"`
	Truncated     bool             `cbor:"truncated,omitempty"`
}

// snapshotBuffer captures a buffer's full state.
func snapshotBuffer(b *Buffer) (BufferSnapshot, error) {
	s := BufferSnapshot{
		Name:         b.Name,
		BaseAddress:  b.BaseAddress,
		Bytes:        append([]byte(nil), b.Bytes...),
		Checksum:     b.Checksum(),
		Editable:     b.Editable,
		Transforms:   append([]transform.Record(nil), b.Transforms...),
		ParentName:   b.ParentName,
		ParentOffset: b.ParentOffset,
		Refs:         make(map[string]string, len(b.Refs)),
		Xrefs:        make(map[uint64][]Xref, len(b.Xrefs)),
	}

	for name := range b.Children {
		s.Children = append(s.Children, name)
	}
	for k, v := range b.Refs {
		s.Refs[k] = v
	}
	for addr, refs := range b.Xrefs {
		s.Xrefs[addr] = append([]Xref(nil), refs...)
	}

	for _, layer := range b.Layers() {
		entries, err := b.Entries(layer.Name)
		if err != nil {
			return BufferSnapshot{}, err
		}

		snapshot := LayerSnapshot{Name: layer.Name, ShowUndefined: layer.ShowUndefined}
		for _, e := range entries {
			snapshot.Entries = append(snapshot.Entries, LayerEntrySnapshot{
				Range: e.Range,
				Group: e.Value.Group,
				Entry: e.Value.Value,
			})
		}
		s.Layers = append(s.Layers, snapshot)
	}

	return s, nil
}

// restoreBuffer rebuilds a buffer from its snapshot, verifying the
// byte checksum and regrouping entries.
func restoreBuffer(s BufferSnapshot) (*Buffer, error) {
	if hash.Checksum(s.Bytes) != s.Checksum {
		return nil, fmt.Errorf("buffer %q bytes do not match checksum: %w", s.Name, errs.ErrDecodeFailure)
	}

	b := NewBuffer(s.Name, s.Bytes, s.BaseAddress)
	b.Editable = s.Editable
	b.Transforms = append([]transform.Record(nil), s.Transforms...)
	b.ParentName = s.ParentName
	b.ParentOffset = s.ParentOffset

	for _, name := range s.Children {
		b.Children[name] = struct{}{}
	}
	for k, v := range s.Refs {
		b.Refs[k] = v
	}
	for addr, refs := range s.Xrefs {
		b.Xrefs[addr] = append([]Xref(nil), refs...)
	}

	groups := make(map[bumpy.GroupID][]bumpy.Placed[Entry])
	for _, layer := range s.Layers {
		if err := b.AddLayer(layer.Name); err != nil {
			return nil, err
		}
		if layer.ShowUndefined {
			if err := b.SetShowUndefined(layer.Name, true); err != nil {
				return nil, err
			}
		}

		for _, e := range layer.Entries {
			groups[e.Group] = append(groups[e.Group], bumpy.Placed[Entry]{
				Vector: layer.Name,
				Range:  e.Range,
				Value:  e.Entry,
			})
		}
	}

	for group, members := range groups {
		if err := b.restoreGroup(group, members); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Snapshot captures the project's full persisted state.
func (p *Project) Snapshot() (ProjectSnapshot, error) {
	s := ProjectSnapshot{
		SchemaVersion: SchemaVersion,
		Name:          p.Name,
		Version:       p.Version,
		Registry:      p.registry.Snapshot(),
		Truncated:     p.truncated,
	}

	for _, name := range p.BufferNames() {
		snapshot, err := snapshotBuffer(p.buffers[name])
		if err != nil {
			return ProjectSnapshot{}, err
		}
		s.Buffers = append(s.Buffers, snapshot)
	}

	for _, a := range p.log {
		record, err := EncodeAction(a)
		if err != nil {
			return ProjectSnapshot{}, err
		}
		s.ActionLog = append(s.ActionLog, record)
	}

	return s, nil
}

// FromSnapshot rebuilds a project from its persisted state.
func FromSnapshot(s ProjectSnapshot) (*Project, error) {
	if s.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("schema version %d, want %d: %w", s.SchemaVersion, SchemaVersion, errs.ErrDecodeFailure)
	}

	p := NewProject(s.Name, s.Version)
	p.registry = data.FromSnapshot(s.Registry)
	p.truncated = s.Truncated

	for _, snapshot := range s.Buffers {
		b, err := restoreBuffer(snapshot)
		if err != nil {
			return nil, err
		}
		if err := p.insertBuffer(b); err != nil {
			return nil, err
		}
	}

	for _, record := range s.ActionLog {
		a, err := DecodeAction(record)
		if err != nil {
			return nil, err
		}
		p.log = append(p.log, a)
	}

	return p, nil
}

// Save serialises the whole project to the writer as CBOR.
func (p *Project) Save(w io.Writer) error {
	s, err := p.Snapshot()
	if err != nil {
		return err
	}

	return cbor.NewEncoder(w).Encode(s)
}

// Load deserialises a project previously written by Save.
func Load(r io.Reader) (*Project, error) {
	var s ProjectSnapshot
	if err := cbor.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("project: %v: %w", err, errs.ErrDecodeFailure)
	}

	return FromSnapshot(s)
}
