package transform

import (
	"encoding/hex"
	"fmt"

	"github.com/binscope/binscope/errs"
)

// Hex decodes ASCII hex text into raw bytes. Untransform re-encodes
// lower-case, so a transform/untransform round trip is
// case-normalising but length-preserving.
type Hex struct{}

var _ Transform = Hex{}

func (Hex) Name() string { return "hex" }

func (Hex) Transform(data []byte) ([]byte, error) {
	out := make([]byte, hex.DecodedLen(len(data)))
	if _, err := hex.Decode(out, data); err != nil {
		return nil, fmt.Errorf("hex: %v: %w", err, errs.ErrDecodeFailure)
	}

	return out, nil
}

func (Hex) Untransform(data []byte) ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(data)))
	hex.Encode(out, data)

	return out, nil
}

func (Hex) CanTransform(data []byte) bool {
	if len(data) == 0 || len(data)%2 != 0 {
		return false
	}

	for _, b := range data {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		default:
			return false
		}
	}

	return true
}

func (Hex) IsTwoWay() bool { return true }
