package datatype

import (
	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/number"
)

// Related names a value a resolved type points at: an address in a
// buffer, and the type to apply there. Buffers are named, never
// referenced directly, so a Related survives serialisation.
type Related struct {
	Address uint64  `cbor:"address" json:"address"`
	Buffer  string  `cbor:"buffer,omitempty" json:"buffer,omitempty"`
	Type    TypeRef `cbor:"type" json:"type"`
}

// Resolved is the snapshot of a type applied at a concrete offset:
// every range, display string and child is computed and fixed. It
// holds no references back into the buffer, so it is cheap to keep,
// safe to serialise, and usable to refresh an entry after byte edits.
type Resolved struct {
	// ActualRange covers the bytes the value itself occupies.
	ActualRange bumpy.Range `cbor:"actual_range" json:"actual_range"`

	// AlignedRange additionally covers trailing alignment padding.
	AlignedRange bumpy.Range `cbor:"aligned_range" json:"aligned_range"`

	// FieldName is set when this value is a named field of a parent.
	FieldName string `cbor:"field_name,omitempty" json:"field_name,omitempty"`

	// Display is the rendered value.
	Display string `cbor:"display" json:"display"`

	// Children are the resolved sub-fields, in layout order.
	Children []Resolved `cbor:"children,omitempty" json:"children,omitempty"`

	// Related lists addresses this value points at.
	Related []Related `cbor:"related,omitempty" json:"related,omitempty"`

	// Value is the raw number behind simple types, when there is one.
	Value *number.Value `cbor:"value,omitempty" json:"value,omitempty"`
}

// ActualSize returns the size of the value excluding padding.
func (r Resolved) ActualSize() uint64 {
	return r.ActualRange.Len()
}

// AlignedSize returns the size of the value including padding.
func (r Resolved) AlignedSize() uint64 {
	return r.AlignedRange.Len()
}

// String returns the display string.
func (r Resolved) String() string {
	return r.Display
}
