package datatype

import (
	"fmt"

	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/errs"
)

// AlignmentKind tags an Alignment variant.
type AlignmentKind uint8

const (
	// AlignNone applies no padding.
	AlignNone AlignmentKind = iota
	// AlignLoose pads the end of an element until its length is a
	// multiple of the alignment value, relative to the element start.
	AlignLoose
	// AlignStrict pads like AlignLoose but additionally requires the
	// element to start on a multiple of the alignment value.
	AlignStrict
)

// Alignment configures element padding. The zero value aligns nothing.
type Alignment struct {
	Kind     AlignmentKind `cbor:"kind" json:"kind"`
	Multiple uint64        `cbor:"multiple,omitempty" json:"multiple,omitempty"`
}

// Loose returns a loose alignment to multiples of m.
func Loose(m uint64) Alignment {
	return Alignment{Kind: AlignLoose, Multiple: m}
}

// Strict returns a strict alignment to multiples of m.
func Strict(m uint64) Alignment {
	return Alignment{Kind: AlignStrict, Multiple: m}
}

// roundUp rounds number up to the next multiple of multiple. A zero
// multiple rounds nothing.
func roundUp(number, multiple uint64) uint64 {
	if multiple == 0 {
		return number
	}

	remainder := number % multiple
	if remainder == 0 {
		return number
	}

	return number - remainder + multiple
}

// Align pads the range per the alignment's rules. Strict alignment
// fails with errs.ErrMisaligned when the start is not a multiple of
// the alignment value.
func (a Alignment) Align(r bumpy.Range) (bumpy.Range, error) {
	if r.End < r.Start {
		return bumpy.Range{}, fmt.Errorf("range %s ends before it starts: %w", r, errs.ErrEmptyRange)
	}

	switch a.Kind {
	case AlignLoose:
		size := roundUp(r.End-r.Start, a.Multiple)
		return bumpy.Range{Start: r.Start, End: r.Start + size}, nil

	case AlignStrict:
		if a.Multiple != 0 && r.Start%a.Multiple != 0 {
			return bumpy.Range{}, fmt.Errorf("0x%x is not a multiple of %d: %w", r.Start, a.Multiple, errs.ErrMisaligned)
		}
		size := roundUp(r.End-r.Start, a.Multiple)
		return bumpy.Range{Start: r.Start, End: r.Start + size}, nil

	default:
		return r, nil
	}
}
