// Package datatype declares how bytes are interpreted as typed
// values: simple numerics and characters, pointers, and composite
// arrays, structs, enums, bitmasks and strings.
//
// A Type is declarative; applying it at an Offset yields sizes, a
// display string and child fields, and Resolve snapshots all of that
// into a Resolved value with no ties back to the buffer. Types are
// immutable once constructed and the set of variants is closed.
package datatype

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/number"
)

// Child is one sub-field of a composite type. Name may be empty (array
// elements).
type Child struct {
	Name string
	Type Type
}

// Type is the common operation bundle every variant implements.
//
// BaseSize excludes alignment padding; the aligned size and ranges are
// derived through AlignedSize, RangeOf and Resolve, which also enforce
// strict alignment.
type Type interface {
	// IsStatic returns true if size and children can be computed
	// without data, from a static offset.
	IsStatic() bool

	// Alignment returns the padding configuration of this type.
	Alignment() Alignment

	// BaseSize returns the size in bytes excluding padding.
	BaseSize(o Offset) (uint64, error)

	// Children returns the sub-fields making up this type, in layout
	// order. Simple types return nothing.
	Children(o Offset) ([]Child, error)

	// Display renders the value at the offset.
	Display(o Offset) (string, error)
}

// relater is implemented by types that point at other values.
type relater interface {
	related(o Offset) ([]Related, error)
}

// valuer is implemented by types backed by a single primitive read.
type valuer interface {
	value(o Offset) (*number.Value, error)
}

// span is a child with its computed aligned range.
type span struct {
	r     bumpy.Range
	name  string
	child Type
}

// spanner overrides the consecutive-layout child placement. Union
// places every variant at the same start.
type spanner interface {
	childSpans(o Offset) ([]span, error)
}

// ActualRange returns the range the value occupies with no padding
// applied.
func ActualRange(t Type, o Offset) (bumpy.Range, error) {
	return RangeOf(t, o, Alignment{})
}

// RangeOf returns the range the value occupies at o, padded per the
// given alignment. Strict alignment fails with errs.ErrMisaligned if
// the offset is not on the required boundary.
func RangeOf(t Type, o Offset, a Alignment) (bumpy.Range, error) {
	start := o.Position()

	size, err := t.BaseSize(o)
	if err != nil {
		return bumpy.Range{}, err
	}

	return a.Align(bumpy.Range{Start: start, End: start + size})
}

// AlignedSize returns the size including trailing padding per the
// type's own alignment.
func AlignedSize(t Type, o Offset) (uint64, error) {
	r, err := RangeOf(t, o, t.Alignment())
	if err != nil {
		return 0, err
	}

	return r.Len(), nil
}

// childSpans places a type's children. The default placement is
// consecutive: each child starts where the previous child's aligned
// range ended.
func childSpans(t Type, o Offset) ([]span, error) {
	if s, ok := t.(spanner); ok {
		return s.childSpans(o)
	}

	children, err := t.Children(o)
	if err != nil {
		return nil, err
	}

	spans := make([]span, 0, len(children))
	childOffset := o
	for _, c := range children {
		r, err := RangeOf(c.Type, childOffset, c.Type.Alignment())
		if err != nil {
			return nil, childErr(c.Name, err)
		}

		spans = append(spans, span{r: r, name: c.Name, child: c.Type})
		childOffset = o.At(r.End)
	}

	return spans, nil
}

// compositeBaseSize computes a composite's size from its children:
// the end of the last child minus the start of the first. Composites
// whose children are consecutive and cover the full type use this as
// their BaseSize.
func compositeBaseSize(t Type, o Offset) (uint64, error) {
	spans, err := childSpans(t, o)
	if err != nil {
		return 0, err
	}

	if len(spans) == 0 {
		return 0, nil
	}

	return spans[len(spans)-1].r.End - spans[0].r.Start, nil
}

// childErr prefixes an error with the failing child's name so nested
// failures carry their path.
func childErr(name string, err error) error {
	if name == "" {
		return err
	}

	return fmt.Errorf("%s: %w", name, err)
}

// Resolve applies a type at an offset and snapshots the result.
func Resolve(t Type, o Offset) (Resolved, error) {
	return resolveNamed(t, o, "")
}

func resolveNamed(t Type, o Offset, fieldName string) (Resolved, error) {
	actual, err := ActualRange(t, o)
	if err != nil {
		return Resolved{}, childErr(fieldName, err)
	}

	aligned, err := RangeOf(t, o, t.Alignment())
	if err != nil {
		return Resolved{}, childErr(fieldName, err)
	}

	display, err := t.Display(o)
	if err != nil {
		return Resolved{}, childErr(fieldName, err)
	}

	spans, err := childSpans(t, o)
	if err != nil {
		return Resolved{}, childErr(fieldName, err)
	}

	children := make([]Resolved, 0, len(spans))
	for _, s := range spans {
		child, err := resolveNamed(s.child, o.At(s.r.Start), s.name)
		if err != nil {
			return Resolved{}, childErr(fieldName, err)
		}
		children = append(children, child)
	}

	resolved := Resolved{
		ActualRange:  actual,
		AlignedRange: aligned,
		FieldName:    fieldName,
		Display:      display,
		Children:     children,
	}

	if r, ok := t.(relater); ok {
		related, err := r.related(o)
		if err != nil {
			return Resolved{}, childErr(fieldName, err)
		}
		resolved.Related = related
	}

	if v, ok := t.(valuer); ok {
		value, err := v.value(o)
		if err == nil {
			resolved.Value = value
		}
	}

	return resolved, nil
}

// typeFactories maps envelope kinds to zero values for decoding.
var typeFactories = map[string]func() Type{
	"number":    func() Type { return &Number{} },
	"character": func() Type { return &Character{} },
	"pointer":   func() Type { return &Pointer{} },
	"array":     func() Type { return &Array{} },
	"struct":    func() Type { return &Struct{} },
	"enum":      func() Type { return &Enum{} },
	"bitmask":   func() Type { return &Bitmask{} },
	"lpstring":  func() Type { return &LPString{} },
	"ntstring":  func() Type { return &NTString{} },
	"union":     func() Type { return &Union{} },
}

// KindOf returns the envelope kind of a concrete type.
func KindOf(t Type) (string, error) {
	switch t.(type) {
	case *Number:
		return "number", nil
	case *Character:
		return "character", nil
	case *Pointer:
		return "pointer", nil
	case *Array:
		return "array", nil
	case *Struct:
		return "struct", nil
	case *Enum:
		return "enum", nil
	case *Bitmask:
		return "bitmask", nil
	case *LPString:
		return "lpstring", nil
	case *NTString:
		return "ntstring", nil
	case *Union:
		return "union", nil
	default:
		return "", fmt.Errorf("unknown type %T", t)
	}
}

// TypeRef wraps a Type for serialisation as a tagged envelope
// {kind, body}. Composite types store their element and field types
// as TypeRefs so a whole tree round-trips.
type TypeRef struct {
	T Type
}

// Ref wraps a type.
func Ref(t Type) TypeRef {
	return TypeRef{T: t}
}

// IsNil returns true if the reference holds no type.
func (r TypeRef) IsNil() bool {
	return r.T == nil
}

type typeEnvelope struct {
	Kind string          `cbor:"kind" json:"kind"`
	Body cbor.RawMessage `cbor:"body" json:"-"`
}

type typeEnvelopeJSON struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// MarshalCBOR encodes the referenced type as a tagged envelope.
func (r TypeRef) MarshalCBOR() ([]byte, error) {
	if r.T == nil {
		return cbor.Marshal(nil)
	}

	kind, err := KindOf(r.T)
	if err != nil {
		return nil, err
	}

	body, err := cbor.Marshal(r.T)
	if err != nil {
		return nil, err
	}

	return cbor.Marshal(typeEnvelope{Kind: kind, Body: body})
}

// UnmarshalCBOR decodes a tagged envelope into the concrete type.
func (r *TypeRef) UnmarshalCBOR(data []byte) error {
	var probe any
	if err := cbor.Unmarshal(data, &probe); err == nil && probe == nil {
		r.T = nil
		return nil
	}

	var env typeEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return err
	}

	factory, ok := typeFactories[env.Kind]
	if !ok {
		return fmt.Errorf("unknown type kind %q", env.Kind)
	}

	t := factory()
	if err := cbor.Unmarshal(env.Body, t); err != nil {
		return fmt.Errorf("decoding %s: %w", env.Kind, err)
	}

	r.T = t

	return nil
}

// MarshalJSON mirrors the CBOR envelope for JSON consumers.
func (r TypeRef) MarshalJSON() ([]byte, error) {
	if r.T == nil {
		return []byte("null"), nil
	}

	kind, err := KindOf(r.T)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(r.T)
	if err != nil {
		return nil, err
	}

	return json.Marshal(typeEnvelopeJSON{Kind: kind, Body: body})
}

// UnmarshalJSON decodes a JSON envelope into the concrete type.
func (r *TypeRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.T = nil
		return nil
	}

	var env typeEnvelopeJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	factory, ok := typeFactories[env.Kind]
	if !ok {
		return fmt.Errorf("unknown type kind %q", env.Kind)
	}

	t := factory()
	if err := json.Unmarshal(env.Body, t); err != nil {
		return fmt.Errorf("decoding %s: %w", env.Kind, err)
	}

	r.T = t

	return nil
}
