package datatype

import (
	"fmt"
	"strings"

	"github.com/binscope/binscope/number"
)

// Bitmask reads a number and renders the names of its set bits,
// joined with " | ".
type Bitmask struct {
	Reader number.Reader `cbor:"reader" json:"reader"`

	MaskName string `cbor:"mask_name,omitempty" json:"mask_name,omitempty"`

	// Bits maps a bit index (0 = LSB) to its name.
	Bits map[uint8]string `cbor:"bits" json:"bits"`

	// ShowUnknown includes set bits with no name, rendered as their
	// hex value.
	ShowUnknown bool `cbor:"show_unknown,omitempty" json:"show_unknown,omitempty"`

	Align Alignment `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Bitmask)(nil)

// NewBitmask creates an unaligned bitmask type.
func NewBitmask(reader number.Reader, maskName string, bits map[uint8]string, showUnknown bool) *Bitmask {
	return &Bitmask{Reader: reader, MaskName: maskName, Bits: bits, ShowUnknown: showUnknown}
}

func (b *Bitmask) IsStatic() bool {
	return b.Reader.IsStatic()
}

func (b *Bitmask) Alignment() Alignment {
	return b.Align
}

func (b *Bitmask) BaseSize(o Offset) (uint64, error) {
	if size, ok := b.Reader.Size(); ok {
		return size, nil
	}

	ctx, err := o.Context()
	if err != nil {
		return 0, err
	}

	_, size, err := b.Reader.Read(ctx)

	return size, err
}

func (b *Bitmask) Children(Offset) ([]Child, error) {
	return nil, nil
}

func (b *Bitmask) Display(o Offset) (string, error) {
	ctx, err := o.Context()
	if err != nil {
		return "", err
	}

	v, _, err := b.Reader.Read(ctx)
	if err != nil {
		return "", err
	}

	bits, ok := v.Uint()
	if !ok {
		return "", fmt.Errorf("bitmask value does not fit 64 bits")
	}

	names := make([]string, 0)
	for i := uint8(0); i < uint8(v.Width)*8 && i < 64; i++ {
		if bits&(uint64(1)<<i) == 0 {
			continue
		}
		if name, found := b.Bits[i]; found {
			names = append(names, name)
		} else if b.ShowUnknown {
			names = append(names, fmt.Sprintf("0x%x", uint64(1)<<i))
		}
	}

	if len(names) == 0 {
		return "(none)", nil
	}

	return strings.Join(names, " | "), nil
}

func (b *Bitmask) value(o Offset) (*number.Value, error) {
	ctx, err := o.Context()
	if err != nil {
		return nil, err
	}

	v, _, err := b.Reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
