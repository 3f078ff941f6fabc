package project

import (
	"fmt"
	"sort"

	"github.com/binscope/binscope/data"
	"github.com/binscope/binscope/errs"
)

// Project is the aggregate root: it owns the buffers and the data
// registry, and every mutation funnels through Apply so the action log
// stays the single source of truth.
//
// The core is single-threaded cooperative; concurrent editors must
// serialise their proposals through one Project.
type Project struct {
	Name    string
	Version string

	buffers  map[string]*Buffer
	registry *data.Registry

	log       []Action
	redoStack []Action
	truncated bool
}

// NewProject creates an empty project.
func NewProject(name, version string) *Project {
	return &Project{
		Name:     name,
		Version:  version,
		buffers:  make(map[string]*Buffer),
		registry: data.NewRegistry(),
	}
}

// Registry returns the project's data registry. Mutate it through
// LoadDatum actions so the changes are undoable.
func (p *Project) Registry() *data.Registry {
	return p.registry
}

// buffer returns a buffer by name.
func (p *Project) buffer(name string) (*Buffer, error) {
	b, exists := p.buffers[name]
	if !exists {
		return nil, fmt.Errorf("buffer %q: %w", name, errs.ErrNameMissing)
	}

	return b, nil
}

// GetBuffer returns a buffer by name.
func (p *Project) GetBuffer(name string) (*Buffer, error) {
	return p.buffer(name)
}

// BufferExists returns true if a buffer with the name exists.
func (p *Project) BufferExists(name string) bool {
	_, exists := p.buffers[name]
	return exists
}

// BufferNames returns the buffer names in sorted order.
func (p *Project) BufferNames() []string {
	names := make([]string, 0, len(p.buffers))
	for name := range p.buffers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// insertBuffer registers a buffer; the name must be free.
func (p *Project) insertBuffer(b *Buffer) error {
	if _, exists := p.buffers[b.Name]; exists {
		return fmt.Errorf("buffer %q: %w", b.Name, errs.ErrNameExists)
	}

	p.buffers[b.Name] = b

	return nil
}

// removeBuffer unregisters and returns a buffer.
func (p *Project) removeBuffer(name string) (*Buffer, error) {
	b, exists := p.buffers[name]
	if !exists {
		return nil, fmt.Errorf("buffer %q: %w", name, errs.ErrNameMissing)
	}

	delete(p.buffers, name)

	return b, nil
}

// Apply executes an action, appends it to the log and clears the redo
// stack. On error the project state and log are unchanged.
//
// Applying a one-way transformation truncates the undo history right
// after logging: there is no way back across it, and keeping older
// entries would let Undo silently skip the wall.
func (p *Project) Apply(a Action) error {
	if err := a.apply(p); err != nil {
		return err
	}

	p.log = append(p.log, a)
	p.redoStack = nil

	if t, ok := a.(*TransformBuffer); ok && t.oneWay() {
		p.ClearUndo()
	}

	return nil
}

// Undo reverses the most recent action and moves it to the redo stack.
func (p *Project) Undo() error {
	if len(p.log) == 0 {
		if p.truncated {
			return errs.ErrUndoTruncated
		}
		return errs.ErrNothingToUndo
	}

	a := p.log[len(p.log)-1]
	if err := a.undo(p); err != nil {
		return err
	}

	p.log = p.log[:len(p.log)-1]
	p.redoStack = append(p.redoStack, a)

	return nil
}

// Redo re-applies the most recently undone action.
func (p *Project) Redo() error {
	if len(p.redoStack) == 0 {
		return errs.ErrNothingToRedo
	}

	a := p.redoStack[len(p.redoStack)-1]
	if err := a.apply(p); err != nil {
		return err
	}

	p.redoStack = p.redoStack[:len(p.redoStack)-1]
	p.log = append(p.log, a)

	return nil
}

// ClearUndo truncates the action log; the current state becomes the
// floor undo cannot pass. Later Undo calls on the emptied log return
// errs.ErrUndoTruncated instead of errs.ErrNothingToUndo.
func (p *Project) ClearUndo() {
	p.log = nil
	p.redoStack = nil
	p.truncated = true
}

// Revision returns the current log position. An observer that saw
// revision r catches up with UpdatesSince(r).
func (p *Project) Revision() int {
	return len(p.log)
}

// UpdatesSince returns the actions applied after the given revision.
// A revision ahead of the log (the log shrank through undo or
// truncation) is out of bounds; the observer should resync from a
// full snapshot.
func (p *Project) UpdatesSince(revision int) ([]Action, error) {
	if revision < 0 || revision > len(p.log) {
		return nil, fmt.Errorf("revision %d with log length %d: %w", revision, len(p.log), errs.ErrOutOfBounds)
	}

	updates := make([]Action, len(p.log)-revision)
	copy(updates, p.log[revision:])

	return updates, nil
}

// GetActions returns the ordered action log.
func (p *Project) GetActions() []Action {
	actions := make([]Action, len(p.log))
	copy(actions, p.log)

	return actions
}

// GetLayers returns a buffer's layers.
func (p *Project) GetLayers(buffer string) ([]Layer, error) {
	b, err := p.buffer(buffer)
	if err != nil {
		return nil, err
	}

	return b.Layers(), nil
}

// GetEntries returns a layer's entries in address order.
func (p *Project) GetEntries(buffer, layer string) ([]Entry, error) {
	b, err := p.buffer(buffer)
	if err != nil {
		return nil, err
	}

	linked, err := b.Entries(layer)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(linked))
	for _, e := range linked {
		entries = append(entries, e.Value.Value)
	}

	return entries, nil
}

// Export returns a buffer's bytes with every editable child buffer
// merged back into its recorded position, recursively.
func (p *Project) Export(buffer string) ([]byte, error) {
	b, err := p.buffer(buffer)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(b.Bytes))
	copy(out, b.Bytes)

	childNames := make([]string, 0, len(b.Children))
	for name := range b.Children {
		childNames = append(childNames, name)
	}
	sort.Strings(childNames)

	for _, name := range childNames {
		child, err := p.buffer(name)
		if err != nil {
			return nil, err
		}
		if !child.Editable {
			continue
		}

		merged, err := p.Export(name)
		if err != nil {
			return nil, err
		}

		end := child.ParentOffset + uint64(len(merged))
		if end > uint64(len(out)) {
			return nil, fmt.Errorf("child %q (%d bytes at 0x%x) does not fit parent %q: %w", name, len(merged), child.ParentOffset, buffer, errs.ErrOutOfBounds)
		}

		copy(out[child.ParentOffset:end], merged)
	}

	return out, nil
}

// Everything is a full observable snapshot of a project, for hosts
// that prefer one query over incremental sync.
type Everything struct {
	Name     string
	Version  string
	Revision int
	Buffers  map[string]BufferView
}

// BufferView is the queryable state of one buffer.
type BufferView struct {
	Name        string
	BaseAddress uint64
	Length      uint64
	Editable    bool
	Transforms  []string
	Layers      map[string][]Entry
}

// GetEverything snapshots the project's observable state.
func (p *Project) GetEverything() Everything {
	everything := Everything{
		Name:     p.Name,
		Version:  p.Version,
		Revision: p.Revision(),
		Buffers:  make(map[string]BufferView),
	}

	for name, b := range p.buffers {
		view := BufferView{
			Name:        b.Name,
			BaseAddress: b.BaseAddress,
			Length:      b.Length(),
			Editable:    b.Editable,
			Layers:      make(map[string][]Entry),
		}

		for _, record := range b.Transforms {
			view.Transforms = append(view.Transforms, record.Kind)
		}

		for _, layer := range b.Layers() {
			entries, err := b.Entries(layer.Name)
			if err != nil {
				continue
			}
			views := make([]Entry, 0, len(entries))
			for _, e := range entries {
				views = append(views, e.Value.Value)
			}
			view.Layers[layer.Name] = views
		}

		everything.Buffers[name] = view
	}

	return everything
}
