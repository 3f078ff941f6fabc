package datatype

import (
	"strings"
)

// Array is count consecutive elements. Elements may themselves be
// variable-length; each one starts where the previous element's
// aligned range ended.
type Array struct {
	Count   uint64    `cbor:"count" json:"count"`
	Element TypeRef   `cbor:"element" json:"element"`
	Align   Alignment `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Array)(nil)

// NewArray creates an unaligned array.
func NewArray(count uint64, element Type) *Array {
	return &Array{Count: count, Element: Ref(element)}
}

// NewArrayAligned creates an array with the given alignment.
func NewArrayAligned(align Alignment, count uint64, element Type) *Array {
	return &Array{Count: count, Element: Ref(element), Align: align}
}

func (a *Array) IsStatic() bool {
	return a.Element.T.IsStatic()
}

func (a *Array) Alignment() Alignment {
	return a.Align
}

func (a *Array) BaseSize(o Offset) (uint64, error) {
	return compositeBaseSize(a, o)
}

func (a *Array) Children(Offset) ([]Child, error) {
	children := make([]Child, a.Count)
	for i := range children {
		children[i] = Child{Type: a.Element.T}
	}

	return children, nil
}

func (a *Array) Display(o Offset) (string, error) {
	spans, err := childSpans(a, o)
	if err != nil {
		return "", err
	}

	displays := make([]string, 0, len(spans))
	for _, s := range spans {
		d, err := s.child.Display(o.At(s.r.Start))
		if err != nil {
			return "", err
		}
		displays = append(displays, d)
	}

	return "[ " + strings.Join(displays, ", ") + " ]", nil
}
