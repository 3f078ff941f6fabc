package datatype

import (
	"strconv"

	"github.com/binscope/binscope/number"
)

// Character is a single code point, fixed or variable width depending
// on its reader's encoding.
type Character struct {
	Reader number.Reader `cbor:"reader" json:"reader"`
	Align  Alignment     `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Character)(nil)

// NewCharacter creates an unaligned character type.
func NewCharacter(reader number.Reader) *Character {
	return &Character{Reader: reader}
}

// NewCharacterAligned creates a character type with the given
// alignment.
func NewCharacterAligned(align Alignment, reader number.Reader) *Character {
	return &Character{Reader: reader, Align: align}
}

func (c *Character) IsStatic() bool {
	return c.Reader.IsStatic()
}

func (c *Character) Alignment() Alignment {
	return c.Align
}

func (c *Character) BaseSize(o Offset) (uint64, error) {
	if size, ok := c.Reader.Size(); ok {
		return size, nil
	}

	ctx, err := o.Context()
	if err != nil {
		return 0, err
	}

	_, size, err := c.Reader.Read(ctx)

	return size, err
}

func (c *Character) Children(Offset) ([]Child, error) {
	return nil, nil
}

func (c *Character) Display(o Offset) (string, error) {
	ctx, err := o.Context()
	if err != nil {
		return "", err
	}

	v, _, err := c.Reader.Read(ctx)
	if err != nil {
		return "", err
	}

	r, _ := v.Rune()

	return strconv.QuoteRune(r), nil
}

func (c *Character) value(o Offset) (*number.Value, error) {
	ctx, err := o.Context()
	if err != nil {
		return nil, err
	}

	v, _, err := c.Reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
