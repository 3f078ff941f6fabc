package datatype

import (
	"github.com/binscope/binscope/number"
)

// Number is a fixed-width integer or float with a display format.
type Number struct {
	Reader number.Reader    `cbor:"reader" json:"reader"`
	Format number.Formatter `cbor:"format" json:"format"`
	Align  Alignment        `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Number)(nil)

// NewNumber creates an unaligned number type.
func NewNumber(reader number.Reader, format number.Formatter) *Number {
	return &Number{Reader: reader, Format: format}
}

// NewNumberAligned creates a number type with the given alignment.
func NewNumberAligned(align Alignment, reader number.Reader, format number.Formatter) *Number {
	return &Number{Reader: reader, Format: format, Align: align}
}

func (n *Number) IsStatic() bool {
	return n.Reader.IsStatic()
}

func (n *Number) Alignment() Alignment {
	return n.Align
}

func (n *Number) BaseSize(o Offset) (uint64, error) {
	if size, ok := n.Reader.Size(); ok {
		return size, nil
	}

	ctx, err := o.Context()
	if err != nil {
		return 0, err
	}

	_, size, err := n.Reader.Read(ctx)

	return size, err
}

func (n *Number) Children(Offset) ([]Child, error) {
	return nil, nil
}

func (n *Number) Display(o Offset) (string, error) {
	ctx, err := o.Context()
	if err != nil {
		return "", err
	}

	v, _, err := n.Reader.Read(ctx)
	if err != nil {
		return "", err
	}

	return n.Format.Format(v), nil
}

func (n *Number) value(o Offset) (*number.Value, error) {
	ctx, err := o.Context()
	if err != nil {
		return nil, err
	}

	v, _, err := n.Reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
