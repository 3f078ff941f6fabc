package transform

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/binscope/binscope/errs"
)

// Base32Variant selects the alphabet and padding rules of a Base32
// transform.
type Base32Variant uint8

const (
	// Base32Standard is RFC 4648 with padding.
	Base32Standard Base32Variant = iota
	// Base32NoPadding is RFC 4648 without padding.
	Base32NoPadding
	// Base32Crockford uses the Crockford alphabet, no padding.
	Base32Crockford
	// Base32Permissive decodes case-insensitively and ignores
	// padding. One-way: the original formatting cannot be recovered.
	Base32Permissive
)

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Base32 decodes base32 text into raw bytes.
type Base32 struct {
	Variant Base32Variant `cbor:"variant" json:"variant"`
}

var _ Transform = Base32{}

func (t Base32) Name() string {
	switch t.Variant {
	case Base32NoPadding:
		return "base32-nopad"
	case Base32Crockford:
		return "base32-crockford"
	case Base32Permissive:
		return "base32-permissive"
	default:
		return "base32"
	}
}

func (t Base32) encoding() *base32.Encoding {
	switch t.Variant {
	case Base32NoPadding:
		return base32.StdEncoding.WithPadding(base32.NoPadding)
	case Base32Crockford:
		return base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)
	default:
		return base32.StdEncoding
	}
}

func (t Base32) Transform(data []byte) ([]byte, error) {
	if t.Variant == Base32Permissive {
		text := strings.ToUpper(strings.TrimRight(string(data), "="))
		out, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("base32 permissive: %v: %w", err, errs.ErrDecodeFailure)
		}

		return out, nil
	}

	out, err := t.encoding().DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("base32: %v: %w", err, errs.ErrDecodeFailure)
	}

	return out, nil
}

func (t Base32) Untransform(data []byte) ([]byte, error) {
	if !t.IsTwoWay() {
		return nil, fmt.Errorf("base32 permissive: %w", errs.ErrNotReversible)
	}

	return []byte(t.encoding().EncodeToString(data)), nil
}

func (t Base32) CanTransform(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	_, err := t.Transform(data)

	return err == nil
}

func (t Base32) IsTwoWay() bool {
	return t.Variant != Base32Permissive
}
