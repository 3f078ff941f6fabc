package transform

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/binscope/binscope/errs"
)

// DeflateContainer selects the framing around a DEFLATE stream.
type DeflateContainer uint8

const (
	// ContainerRaw is a bare DEFLATE stream with no header.
	ContainerRaw DeflateContainer = iota
	// ContainerZlib is RFC 1950 framing (0x78 header, adler32 tail).
	ContainerZlib
)

// Deflate decompresses a DEFLATE stream. One-way: recompression does
// not reproduce the original stream, so the transform cannot be
// reversed once applied.
type Deflate struct {
	Container DeflateContainer `cbor:"container" json:"container"`
}

var _ Transform = Deflate{}

func (t Deflate) Name() string {
	if t.Container == ContainerZlib {
		return "deflate-zlib"
	}

	return "deflate-raw"
}

func (t Deflate) Transform(data []byte) ([]byte, error) {
	var reader io.ReadCloser
	var err error

	if t.Container == ContainerZlib {
		reader, err = zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib: %v: %w", err, errs.ErrDecodeFailure)
		}
	} else {
		reader = flate.NewReader(bytes.NewReader(data))
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("deflate: %v: %w", err, errs.ErrDecodeFailure)
	}

	return out, nil
}

func (t Deflate) Untransform([]byte) ([]byte, error) {
	return nil, fmt.Errorf("%s: %w", t.Name(), errs.ErrNotReversible)
}

func (t Deflate) CanTransform(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	// Zlib streams start with 0x78 for the standard window size; check
	// cheaply before attempting a full decode.
	if t.Container == ContainerZlib && data[0] != 0x78 {
		return false
	}

	_, err := t.Transform(data)

	return err == nil
}

func (Deflate) IsTwoWay() bool { return false }
