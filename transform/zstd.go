package transform

import (
	"fmt"

	"github.com/binscope/binscope/errs"
)

// zstdMagic is the frame header every Zstandard stream starts with.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Zstd decompresses a Zstandard frame. One-way, like the other
// compression transforms.
//
// The codec is selected at build time: cgo builds use the libzstd
// binding, pure-Go builds use the klauspost decoder. Both accept the
// same frames.
type Zstd struct{}

var _ Transform = Zstd{}

func (Zstd) Name() string { return "zstd" }

func (t Zstd) Transform(data []byte) ([]byte, error) {
	if !t.CanTransform(data) {
		return nil, fmt.Errorf("missing zstd frame header: %w", errs.ErrDecodeFailure)
	}

	out, err := zstdDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("zstd: %v: %w", err, errs.ErrDecodeFailure)
	}

	return out, nil
}

func (t Zstd) Untransform([]byte) ([]byte, error) {
	return nil, fmt.Errorf("zstd: %w", errs.ErrNotReversible)
}

func (Zstd) CanTransform(data []byte) bool {
	if len(data) < len(zstdMagic) {
		return false
	}

	for i, b := range zstdMagic {
		if data[i] != b {
			return false
		}
	}

	return true
}

func (Zstd) IsTwoWay() bool { return false }

// CompressFrame compresses data into a Zstandard frame using the
// build-selected codec. Provided for hosts and tests that need to
// produce the encoded form this transform consumes.
func CompressFrame(data []byte) ([]byte, error) {
	return zstdCompress(data)
}
