package datatype

import (
	"github.com/binscope/binscope/number"
)

// Enum reads a number and renders it through a value→name mapping.
// The mapping is materialised at construction (usually from the data
// registry), so resolution never needs a registry handle.
type Enum struct {
	Reader number.Reader `cbor:"reader" json:"reader"`

	// EnumName qualifies the display, e.g. "TerrariaVersion::V1_4".
	EnumName string `cbor:"enum_name,omitempty" json:"enum_name,omitempty"`

	Values map[uint64]string `cbor:"values" json:"values"`

	// Fallback renders values with no mapping.
	Fallback number.Formatter `cbor:"fallback" json:"fallback"`

	Align Alignment `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Enum)(nil)

// NewEnum creates an unaligned enum type.
func NewEnum(reader number.Reader, enumName string, values map[uint64]string) *Enum {
	return &Enum{Reader: reader, EnumName: enumName, Values: values, Fallback: number.FormatHex}
}

func (e *Enum) IsStatic() bool {
	return e.Reader.IsStatic()
}

func (e *Enum) Alignment() Alignment {
	return e.Align
}

func (e *Enum) BaseSize(o Offset) (uint64, error) {
	if size, ok := e.Reader.Size(); ok {
		return size, nil
	}

	ctx, err := o.Context()
	if err != nil {
		return 0, err
	}

	_, size, err := e.Reader.Read(ctx)

	return size, err
}

func (e *Enum) Children(Offset) ([]Child, error) {
	return nil, nil
}

func (e *Enum) Display(o Offset) (string, error) {
	ctx, err := o.Context()
	if err != nil {
		return "", err
	}

	v, _, err := e.Reader.Read(ctx)
	if err != nil {
		return "", err
	}

	if u, ok := v.Uint(); ok {
		if name, found := e.Values[u]; found {
			if e.EnumName != "" {
				return e.EnumName + "::" + name, nil
			}
			return name, nil
		}
	}

	return e.Fallback.Format(v) + " (unknown)", nil
}

func (e *Enum) value(o Offset) (*number.Value, error) {
	ctx, err := o.Context()
	if err != nil {
		return nil, err
	}

	v, _, err := e.Reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
