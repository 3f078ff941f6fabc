package transform

import "math/bits"

// BitReverse reverses the bit order within each byte. Self-inverse and
// two-way. Useful for captures taken LSB-first.
type BitReverse struct{}

var _ Transform = BitReverse{}

func (BitReverse) Name() string { return "bitreverse" }

func (BitReverse) Transform(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = bits.Reverse8(b)
	}

	return out, nil
}

func (t BitReverse) Untransform(data []byte) ([]byte, error) {
	return t.Transform(data)
}

func (BitReverse) CanTransform([]byte) bool { return true }

func (BitReverse) IsTwoWay() bool { return true }
