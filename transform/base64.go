package transform

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/binscope/binscope/errs"
)

// Base64Variant selects the alphabet and padding rules of a Base64
// transform.
type Base64Variant uint8

const (
	// Base64Standard is RFC 4648 with padding.
	Base64Standard Base64Variant = iota
	// Base64NoPadding is RFC 4648 without padding.
	Base64NoPadding
	// Base64URL is the URL-safe alphabet with padding.
	Base64URL
	// Base64URLNoPadding is the URL-safe alphabet without padding.
	Base64URLNoPadding
	// Base64Permissive accepts either alphabet, with or without
	// padding and embedded whitespace. One-way.
	Base64Permissive
)

// Base64 decodes base64 text into raw bytes.
type Base64 struct {
	Variant Base64Variant `cbor:"variant" json:"variant"`
}

var _ Transform = Base64{}

func (t Base64) Name() string {
	switch t.Variant {
	case Base64NoPadding:
		return "base64-nopad"
	case Base64URL:
		return "base64-url"
	case Base64URLNoPadding:
		return "base64-url-nopad"
	case Base64Permissive:
		return "base64-permissive"
	default:
		return "base64"
	}
}

func (t Base64) encoding() *base64.Encoding {
	switch t.Variant {
	case Base64NoPadding:
		return base64.RawStdEncoding
	case Base64URL:
		return base64.URLEncoding
	case Base64URLNoPadding:
		return base64.RawURLEncoding
	default:
		return base64.StdEncoding
	}
}

func (t Base64) Transform(data []byte) ([]byte, error) {
	if t.Variant == Base64Permissive {
		text := strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\r', '\n', '=':
				return -1
			case '-':
				return '+'
			case '_':
				return '/'
			default:
				return r
			}
		}, string(data))

		out, err := base64.RawStdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("base64 permissive: %v: %w", err, errs.ErrDecodeFailure)
		}

		return out, nil
	}

	out, err := t.encoding().DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("base64: %v: %w", err, errs.ErrDecodeFailure)
	}

	return out, nil
}

func (t Base64) Untransform(data []byte) ([]byte, error) {
	if !t.IsTwoWay() {
		return nil, fmt.Errorf("base64 permissive: %w", errs.ErrNotReversible)
	}

	return []byte(t.encoding().EncodeToString(data)), nil
}

func (t Base64) CanTransform(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	_, err := t.Transform(data)

	return err == nil
}

func (t Base64) IsTwoWay() bool {
	return t.Variant != Base64Permissive
}
