package datatype

import (
	"fmt"
	"strconv"

	"github.com/binscope/binscope/number"
)

// NTString is a terminated string: characters up to (and including) a
// terminator code point, NUL unless configured otherwise. Always
// data-dependent.
type NTString struct {
	CharReader number.Reader `cbor:"char_reader" json:"char_reader"`

	// Terminator is the code point ending the string. The default
	// zero value is NUL.
	Terminator rune `cbor:"terminator,omitempty" json:"terminator,omitempty"`

	Align Alignment `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*NTString)(nil)

// NewNTString creates a NUL-terminated string type.
func NewNTString(charReader number.Reader) *NTString {
	return &NTString{CharReader: charReader}
}

// NewNTStringAligned creates a terminated string with alignment.
func NewNTStringAligned(align Alignment, charReader number.Reader) *NTString {
	return &NTString{CharReader: charReader, Align: align}
}

func (s *NTString) IsStatic() bool {
	return false
}

func (s *NTString) Alignment() Alignment {
	return s.Align
}

// read decodes up to the terminator and returns the text (terminator
// excluded) plus the total size in bytes (terminator included).
func (s *NTString) read(o Offset) (string, uint64, error) {
	ctx, err := o.Context()
	if err != nil {
		return "", 0, err
	}

	runes := make([]rune, 0)
	pos := o.Position()
	total := uint64(0)
	for {
		v, size, err := s.CharReader.Read(ctx.At(pos))
		if err != nil {
			return "", 0, fmt.Errorf("character %d: %w", len(runes), err)
		}

		pos += size
		total += size

		r, _ := v.Rune()
		if r == s.Terminator {
			return string(runes), total, nil
		}

		runes = append(runes, r)
	}
}

func (s *NTString) BaseSize(o Offset) (uint64, error) {
	_, size, err := s.read(o)
	return size, err
}

func (s *NTString) Children(Offset) ([]Child, error) {
	return nil, nil
}

func (s *NTString) Display(o Offset) (string, error) {
	text, _, err := s.read(o)
	if err != nil {
		return "", err
	}

	return strconv.Quote(text), nil
}
