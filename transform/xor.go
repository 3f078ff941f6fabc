package transform

import (
	"fmt"

	"github.com/binscope/binscope/errs"
)

// XorByConstant XORs the buffer with a repeating key of 1, 2, 4 or 8
// bytes. The key is applied big-endian-most-significant-first, so
// Width 2 with Key 0x1234 XORs even offsets with 0x12 and odd offsets
// with 0x34. Self-inverse and two-way.
type XorByConstant struct {
	// Width is the key width in bytes: 1, 2, 4 or 8. The buffer length
	// must be a multiple of it.
	Width uint8 `cbor:"width" json:"width"`

	// Key holds the key in its low Width bytes.
	Key uint64 `cbor:"key" json:"key"`
}

var _ Transform = XorByConstant{}

func (t XorByConstant) Name() string {
	return fmt.Sprintf("xor%d(0x%0*x)", int(t.Width)*8, int(t.Width)*2, t.Key)
}

func (t XorByConstant) validWidth() bool {
	switch t.Width {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

func (t XorByConstant) apply(data []byte) ([]byte, error) {
	if !t.validWidth() {
		return nil, fmt.Errorf("xor key width %d: %w", t.Width, errs.ErrDecodeFailure)
	}

	if len(data)%int(t.Width) != 0 {
		return nil, fmt.Errorf("buffer length %d is not a multiple of key width %d: %w", len(data), t.Width, errs.ErrDecodeFailure)
	}

	keyBytes := make([]byte, t.Width)
	for i := range keyBytes {
		shift := uint(t.Width-1-uint8(i)) * 8
		keyBytes[i] = byte(t.Key >> shift)
	}

	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ keyBytes[i%int(t.Width)]
	}

	return out, nil
}

func (t XorByConstant) Transform(data []byte) ([]byte, error) {
	return t.apply(data)
}

func (t XorByConstant) Untransform(data []byte) ([]byte, error) {
	return t.apply(data)
}

func (t XorByConstant) CanTransform(data []byte) bool {
	return t.validWidth() && len(data)%int(t.Width) == 0
}

func (t XorByConstant) IsTwoWay() bool { return true }
