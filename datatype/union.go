package datatype

import (
	"strings"
)

// Union overlays several interpretations at the same offset; its size
// is the largest variant's aligned size.
//
// Unions complicate range accounting (children overlap instead of
// tiling the parent) and most annotation work is better served by two
// entries in separate layers. Kept for parallel-interpretation cases
// that genuinely need one entry; prefer layers otherwise.
type Union struct {
	Variants []Field   `cbor:"variants" json:"variants"`
	Align    Alignment `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Union)(nil)

// NewUnion creates a union from named variants.
func NewUnion(variants ...Field) *Union {
	return &Union{Variants: variants}
}

func (u *Union) IsStatic() bool {
	for _, v := range u.Variants {
		if !v.Type.T.IsStatic() {
			return false
		}
	}

	return true
}

func (u *Union) Alignment() Alignment {
	return u.Align
}

func (u *Union) BaseSize(o Offset) (uint64, error) {
	max := uint64(0)
	for _, v := range u.Variants {
		size, err := AlignedSize(v.Type.T, o)
		if err != nil {
			return 0, childErr(v.Name, err)
		}
		if size > max {
			max = size
		}
	}

	return max, nil
}

func (u *Union) Children(Offset) ([]Child, error) {
	children := make([]Child, 0, len(u.Variants))
	for _, v := range u.Variants {
		children = append(children, Child{Name: v.Name, Type: v.Type.T})
	}

	return children, nil
}

// childSpans places every variant at the union's own start.
func (u *Union) childSpans(o Offset) ([]span, error) {
	spans := make([]span, 0, len(u.Variants))
	for _, v := range u.Variants {
		r, err := RangeOf(v.Type.T, o, v.Type.T.Alignment())
		if err != nil {
			return nil, childErr(v.Name, err)
		}
		spans = append(spans, span{r: r, name: v.Name, child: v.Type.T})
	}

	return spans, nil
}

func (u *Union) Display(o Offset) (string, error) {
	parts := make([]string, 0, len(u.Variants))
	for _, v := range u.Variants {
		d, err := v.Type.T.Display(o)
		if err != nil {
			return "", childErr(v.Name, err)
		}
		parts = append(parts, v.Name+": "+d)
	}

	return "union { " + strings.Join(parts, " | ") + " }", nil
}
