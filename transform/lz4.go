package transform

import (
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/binscope/binscope/errs"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse; they
// maintain internal state that benefits from it. The compressor side
// is exercised when building fixtures and by hosts that re-pack
// extracted sections.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4 decompresses an LZ4 block. One-way: block compression is not
// canonical, so the original bytes cannot be recovered by
// recompressing.
type LZ4 struct{}

var _ Transform = LZ4{}

func (LZ4) Name() string { return "lz4" }

// Transform decompresses the block with an adaptive output buffer:
// the decompressed size is not stored in block format, so start at 4x
// and double until it fits, up to a 128MB safety limit.
func (LZ4) Transform(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty lz4 block: %w", errs.ErrDecodeFailure)
	}

	bufSize := len(data) * 4
	const maxSize = 128 * 1024 * 1024

	for {
		out := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(data, out)
		if err == nil {
			return out[:n], nil
		}

		if bufSize >= maxSize {
			return nil, fmt.Errorf("lz4 output exceeds %d bytes: %w", maxSize, errs.ErrDecodeFailure)
		}
		bufSize *= 2
	}
}

func (t LZ4) Untransform([]byte) ([]byte, error) {
	return nil, fmt.Errorf("lz4: %w", errs.ErrNotReversible)
}

func (t LZ4) CanTransform(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	_, err := t.Transform(data)

	return err == nil
}

func (LZ4) IsTwoWay() bool { return false }

// CompressBlock compresses data into an LZ4 block using a pooled
// compressor. Provided for hosts and tests that need to produce the
// encoded form this transform consumes.
func CompressBlock(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}
