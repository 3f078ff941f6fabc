package datatype

import (
	"fmt"
	"strconv"

	"github.com/binscope/binscope/number"
)

// LPString is a length-prefixed string: a numeric length followed by
// that many characters. Always data-dependent.
type LPString struct {
	LengthReader number.Reader `cbor:"length_reader" json:"length_reader"`
	CharReader   number.Reader `cbor:"char_reader" json:"char_reader"`
	Align        Alignment     `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*LPString)(nil)

// NewLPString creates an unaligned length-prefixed string type.
func NewLPString(lengthReader, charReader number.Reader) *LPString {
	return &LPString{LengthReader: lengthReader, CharReader: charReader}
}

// NewLPStringAligned creates a length-prefixed string with alignment.
func NewLPStringAligned(align Alignment, lengthReader, charReader number.Reader) *LPString {
	return &LPString{LengthReader: lengthReader, CharReader: charReader, Align: align}
}

func (s *LPString) IsStatic() bool {
	return false
}

func (s *LPString) Alignment() Alignment {
	return s.Align
}

// read decodes the string and returns its text plus the total size in
// bytes including the length prefix.
func (s *LPString) read(o Offset) (string, uint64, error) {
	ctx, err := o.Context()
	if err != nil {
		return "", 0, err
	}

	lengthValue, lengthSize, err := s.LengthReader.Read(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("length prefix: %w", err)
	}

	count, ok := lengthValue.Uint()
	if !ok {
		return "", 0, fmt.Errorf("length prefix is not a valid count")
	}

	runes := make([]rune, 0, count)
	pos := o.Position() + lengthSize
	total := lengthSize
	for i := uint64(0); i < count; i++ {
		v, size, err := s.CharReader.Read(ctx.At(pos))
		if err != nil {
			return "", 0, fmt.Errorf("character %d: %w", i, err)
		}

		r, _ := v.Rune()
		runes = append(runes, r)
		pos += size
		total += size
	}

	return string(runes), total, nil
}

func (s *LPString) BaseSize(o Offset) (uint64, error) {
	_, size, err := s.read(o)
	return size, err
}

func (s *LPString) Children(Offset) ([]Child, error) {
	return nil, nil
}

func (s *LPString) Display(o Offset) (string, error) {
	text, _, err := s.read(o)
	if err != nil {
		return "", err
	}

	return strconv.Quote(text), nil
}
