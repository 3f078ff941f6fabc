// Package data provides the namespaced lookup tables that translate
// raw values into symbolic names: constants, enums, bitmasks and named
// types.
//
// The registry only ingests already-validated Go values; the parsers
// in this package turn CSV/JSON/YAML/TOML bytes into those values, and
// any file I/O belongs to the host.
package data

import (
	"fmt"
	"sort"

	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/errs"
)

// DefaultNamespace is searched when the caller passes an empty
// namespace.
const DefaultNamespace = "default"

// ConstantPair is one name/value binding. Constants are many-to-many:
// the same name may bind several values and the same value several
// names.
type ConstantPair struct {
	Name  string `cbor:"name" json:"name"`
	Value uint64 `cbor:"value" json:"value"`
}

// Constants is a bidirectional name↔value table.
type Constants struct {
	byName  map[string][]uint64
	byValue map[uint64][]string
	pairs   []ConstantPair
}

func newConstants(pairs []ConstantPair) *Constants {
	c := &Constants{
		byName:  make(map[string][]uint64),
		byValue: make(map[uint64][]string),
		pairs:   append([]ConstantPair(nil), pairs...),
	}

	for _, p := range pairs {
		c.byName[p.Name] = append(c.byName[p.Name], p.Value)
		c.byValue[p.Value] = append(c.byValue[p.Value], p.Name)
	}

	return c
}

// ValuesOf returns the values bound to a name.
func (c *Constants) ValuesOf(name string) []uint64 {
	return append([]uint64(nil), c.byName[name]...)
}

// NamesOf returns the names bound to a value.
func (c *Constants) NamesOf(value uint64) []string {
	return append([]string(nil), c.byValue[value]...)
}

// Enum is a value→name table with a reverse index. Names need not be
// unique; values are.
type Enum struct {
	byValue map[uint64]string
	byName  map[string][]uint64
}

func newEnum(values map[uint64]string) *Enum {
	e := &Enum{
		byValue: make(map[uint64]string, len(values)),
		byName:  make(map[string][]uint64),
	}

	for v, name := range values {
		e.byValue[v] = name
		e.byName[name] = append(e.byName[name], v)
	}

	return e
}

// NameOf returns the name for a value.
func (e *Enum) NameOf(value uint64) (string, bool) {
	name, ok := e.byValue[value]
	return name, ok
}

// ValuesOf returns every value carrying a name.
func (e *Enum) ValuesOf(name string) []uint64 {
	return append([]uint64(nil), e.byName[name]...)
}

// Values returns a copy of the underlying mapping, e.g. to materialise
// a datatype.Enum.
func (e *Enum) Values() map[uint64]string {
	out := make(map[uint64]string, len(e.byValue))
	for v, n := range e.byValue {
		out[v] = n
	}

	return out
}

// Registry holds the loaded datums, keyed by (namespace, name) per
// kind.
type Registry struct {
	constants map[string]map[string]*Constants
	enums     map[string]map[string]*Enum
	bitmasks  map[string]map[string]map[uint8]string
	types     map[string]map[string]datatype.TypeRef
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constants: make(map[string]map[string]*Constants),
		enums:     make(map[string]map[string]*Enum),
		bitmasks:  make(map[string]map[string]map[uint8]string),
		types:     make(map[string]map[string]datatype.TypeRef),
	}
}

func ns(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}

	return namespace
}

// LoadConstants ingests a constants table. Fails with
// errs.ErrNameExists if (namespace, name) is already loaded.
func (r *Registry) LoadConstants(namespace, name string, pairs []ConstantPair) error {
	namespace = ns(namespace)

	if _, exists := r.constants[namespace][name]; exists {
		return fmt.Errorf("constants %s::%s: %w", namespace, name, errs.ErrNameExists)
	}

	if r.constants[namespace] == nil {
		r.constants[namespace] = make(map[string]*Constants)
	}
	r.constants[namespace][name] = newConstants(pairs)

	return nil
}

// LoadEnum ingests an enum table.
func (r *Registry) LoadEnum(namespace, name string, values map[uint64]string) error {
	namespace = ns(namespace)

	if _, exists := r.enums[namespace][name]; exists {
		return fmt.Errorf("enum %s::%s: %w", namespace, name, errs.ErrNameExists)
	}

	if r.enums[namespace] == nil {
		r.enums[namespace] = make(map[string]*Enum)
	}
	r.enums[namespace][name] = newEnum(values)

	return nil
}

// LoadBitmask ingests a bit-index→name table.
func (r *Registry) LoadBitmask(namespace, name string, bits map[uint8]string) error {
	namespace = ns(namespace)

	if _, exists := r.bitmasks[namespace][name]; exists {
		return fmt.Errorf("bitmask %s::%s: %w", namespace, name, errs.ErrNameExists)
	}

	if r.bitmasks[namespace] == nil {
		r.bitmasks[namespace] = make(map[string]map[uint8]string)
	}
	copied := make(map[uint8]string, len(bits))
	for k, v := range bits {
		copied[k] = v
	}
	r.bitmasks[namespace][name] = copied

	return nil
}

// LoadType ingests a named type.
func (r *Registry) LoadType(namespace, name string, t datatype.Type) error {
	namespace = ns(namespace)

	if _, exists := r.types[namespace][name]; exists {
		return fmt.Errorf("type %s::%s: %w", namespace, name, errs.ErrNameExists)
	}

	if r.types[namespace] == nil {
		r.types[namespace] = make(map[string]datatype.TypeRef)
	}
	r.types[namespace][name] = datatype.Ref(t)

	return nil
}

// RemoveConstants removes a constants table, for undoing a load.
func (r *Registry) RemoveConstants(namespace, name string) error {
	namespace = ns(namespace)
	if _, exists := r.constants[namespace][name]; !exists {
		return fmt.Errorf("constants %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}
	delete(r.constants[namespace], name)

	return nil
}

// RemoveEnum removes an enum table.
func (r *Registry) RemoveEnum(namespace, name string) error {
	namespace = ns(namespace)
	if _, exists := r.enums[namespace][name]; !exists {
		return fmt.Errorf("enum %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}
	delete(r.enums[namespace], name)

	return nil
}

// RemoveBitmask removes a bitmask table.
func (r *Registry) RemoveBitmask(namespace, name string) error {
	namespace = ns(namespace)
	if _, exists := r.bitmasks[namespace][name]; !exists {
		return fmt.Errorf("bitmask %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}
	delete(r.bitmasks[namespace], name)

	return nil
}

// RemoveType removes a named type.
func (r *Registry) RemoveType(namespace, name string) error {
	namespace = ns(namespace)
	if _, exists := r.types[namespace][name]; !exists {
		return fmt.Errorf("type %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}
	delete(r.types[namespace], name)

	return nil
}

// GetConstants returns a constants table.
func (r *Registry) GetConstants(namespace, name string) (*Constants, error) {
	namespace = ns(namespace)

	c, exists := r.constants[namespace][name]
	if !exists {
		return nil, fmt.Errorf("constants %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}

	return c, nil
}

// GetEnum returns an enum table.
func (r *Registry) GetEnum(namespace, name string) (*Enum, error) {
	namespace = ns(namespace)

	e, exists := r.enums[namespace][name]
	if !exists {
		return nil, fmt.Errorf("enum %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}

	return e, nil
}

// GetBitmask returns a copy of a bitmask table.
func (r *Registry) GetBitmask(namespace, name string) (map[uint8]string, error) {
	namespace = ns(namespace)

	bits, exists := r.bitmasks[namespace][name]
	if !exists {
		return nil, fmt.Errorf("bitmask %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}

	out := make(map[uint8]string, len(bits))
	for k, v := range bits {
		out[k] = v
	}

	return out, nil
}

// GetType returns a named type.
func (r *Registry) GetType(namespace, name string) (datatype.Type, error) {
	namespace = ns(namespace)

	ref, exists := r.types[namespace][name]
	if !exists {
		return nil, fmt.Errorf("type %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}

	return ref.T, nil
}

// Lookup returns the names a value carries in the datum called name:
// constants and enums are searched, constants first. Fails with
// errs.ErrNameMissing if no datum has that name, or
// errs.ErrLookupMissing if the value has no names.
func (r *Registry) Lookup(namespace, name string, value uint64) ([]string, error) {
	namespace = ns(namespace)

	found := false
	names := make([]string, 0)

	if c, exists := r.constants[namespace][name]; exists {
		found = true
		names = append(names, c.NamesOf(value)...)
	}

	if e, exists := r.enums[namespace][name]; exists {
		found = true
		if n, ok := e.NameOf(value); ok {
			names = append(names, n)
		}
	}

	if !found {
		return nil, fmt.Errorf("datum %s::%s: %w", namespace, name, errs.ErrNameMissing)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("value 0x%x in %s::%s: %w", value, namespace, name, errs.ErrLookupMissing)
	}

	return names, nil
}

// List returns the sorted names of every datum in the namespace,
// across all four kinds.
func (r *Registry) List(namespace string) []string {
	namespace = ns(namespace)

	seen := make(map[string]struct{})
	for name := range r.constants[namespace] {
		seen[name] = struct{}{}
	}
	for name := range r.enums[namespace] {
		seen[name] = struct{}{}
	}
	for name := range r.bitmasks[namespace] {
		seen[name] = struct{}{}
	}
	for name := range r.types[namespace] {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Namespaces returns the sorted names of every namespace with at least
// one datum.
func (r *Registry) Namespaces() []string {
	seen := make(map[string]struct{})
	for namespace := range r.constants {
		seen[namespace] = struct{}{}
	}
	for namespace := range r.enums {
		seen[namespace] = struct{}{}
	}
	for namespace := range r.bitmasks {
		seen[namespace] = struct{}{}
	}
	for namespace := range r.types {
		seen[namespace] = struct{}{}
	}

	namespaces := make([]string, 0, len(seen))
	for namespace := range seen {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)

	return namespaces
}

// Snapshot is the serialisable form of a Registry.
type Snapshot struct {
	Constants map[string]map[string][]ConstantPair        `cbor:"constants,omitempty"`
	Enums     map[string]map[string]map[uint64]string     `cbor:"enums,omitempty"`
	Bitmasks  map[string]map[string]map[uint8]string      `cbor:"bitmasks,omitempty"`
	Types     map[string]map[string]datatype.TypeRef      `cbor:"types,omitempty"`
}

// Snapshot captures the registry's contents.
func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		Constants: make(map[string]map[string][]ConstantPair),
		Enums:     make(map[string]map[string]map[uint64]string),
		Bitmasks:  make(map[string]map[string]map[uint8]string),
		Types:     make(map[string]map[string]datatype.TypeRef),
	}

	for namespace, tables := range r.constants {
		s.Constants[namespace] = make(map[string][]ConstantPair)
		for name, c := range tables {
			s.Constants[namespace][name] = append([]ConstantPair(nil), c.pairs...)
		}
	}
	for namespace, tables := range r.enums {
		s.Enums[namespace] = make(map[string]map[uint64]string)
		for name, e := range tables {
			s.Enums[namespace][name] = e.Values()
		}
	}
	for namespace, tables := range r.bitmasks {
		s.Bitmasks[namespace] = make(map[string]map[uint8]string)
		for name, bits := range tables {
			copied := make(map[uint8]string, len(bits))
			for k, v := range bits {
				copied[k] = v
			}
			s.Bitmasks[namespace][name] = copied
		}
	}
	for namespace, tables := range r.types {
		s.Types[namespace] = make(map[string]datatype.TypeRef)
		for name, ref := range tables {
			s.Types[namespace][name] = ref
		}
	}

	return s
}

// FromSnapshot rebuilds a registry from a snapshot.
func FromSnapshot(s Snapshot) *Registry {
	r := NewRegistry()

	for namespace, tables := range s.Constants {
		for name, pairs := range tables {
			_ = r.LoadConstants(namespace, name, pairs)
		}
	}
	for namespace, tables := range s.Enums {
		for name, values := range tables {
			_ = r.LoadEnum(namespace, name, values)
		}
	}
	for namespace, tables := range s.Bitmasks {
		for name, bits := range tables {
			_ = r.LoadBitmask(namespace, name, bits)
		}
	}
	for namespace, tables := range s.Types {
		for name, ref := range tables {
			_ = r.LoadType(namespace, name, ref.T)
		}
	}

	return r
}
