package datatype

import (
	"fmt"

	"github.com/binscope/binscope/number"
)

// Pointer reads an address of the configured width; the value it
// points at is the target type applied at that address, in the named
// target buffer (or the same buffer when TargetBuffer is empty).
//
// The pointee is reported through Resolved.Related rather than as a
// child: chasing it requires the target buffer's bytes, which only the
// project layer has.
type Pointer struct {
	Reader       number.Reader    `cbor:"reader" json:"reader"`
	Target       TypeRef          `cbor:"target" json:"target"`
	TargetBuffer string           `cbor:"target_buffer,omitempty" json:"target_buffer,omitempty"`
	Format       number.Formatter `cbor:"format" json:"format"`
	Align        Alignment        `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Pointer)(nil)

// NewPointer creates a pointer with a hex-rendered address.
func NewPointer(reader number.Reader, target Type) *Pointer {
	return &Pointer{Reader: reader, Target: Ref(target), Format: number.FormatHex}
}

// NewPointerAligned creates an aligned pointer.
func NewPointerAligned(align Alignment, reader number.Reader, target Type) *Pointer {
	p := NewPointer(reader, target)
	p.Align = align

	return p
}

func (p *Pointer) IsStatic() bool {
	return true
}

func (p *Pointer) Alignment() Alignment {
	return p.Align
}

func (p *Pointer) BaseSize(Offset) (uint64, error) {
	size, _ := p.Reader.Size()
	return size, nil
}

func (p *Pointer) Children(Offset) ([]Child, error) {
	return nil, nil
}

func (p *Pointer) Display(o Offset) (string, error) {
	ctx, err := o.Context()
	if err != nil {
		return "", err
	}

	v, _, err := p.Reader.Read(ctx)
	if err != nil {
		return "", err
	}

	return "*" + p.Format.Format(v), nil
}

func (p *Pointer) related(o Offset) ([]Related, error) {
	ctx, err := o.Context()
	if err != nil {
		return nil, err
	}

	v, _, err := p.Reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	addr, ok := v.Uint()
	if !ok {
		return nil, fmt.Errorf("pointer value %s does not fit an address", p.Format.Format(v))
	}

	return []Related{{Address: addr, Buffer: p.TargetBuffer, Type: p.Target}}, nil
}

func (p *Pointer) value(o Offset) (*number.Value, error) {
	ctx, err := o.Context()
	if err != nil {
		return nil, err
	}

	v, _, err := p.Reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
