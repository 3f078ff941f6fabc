// Package transform provides reversible byte-to-byte encodings for
// annotation buffers: hex, base32, base64, xor, bit reversal, and the
// common compression containers.
//
// A Transform decodes in the Transform direction and re-encodes in the
// Untransform direction. Two-way transforms guarantee that
// Untransform(Transform(x)) has the same length as x, though not
// necessarily the same bytes (case normalisation is permitted); one-way
// transforms refuse to Untransform. Buffers record which transforms
// were applied so the original bytes can be recovered when every stage
// is two-way.
package transform

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/binscope/binscope/errs"
)

// Transform is a single reversible (or one-way) encoding stage.
//
// Implementations are small value types; configuration lives in
// exported fields so a Transform round-trips through a Record.
type Transform interface {
	// Name returns the registry name of this variant, including its
	// configuration where that matters for display (e.g. "xor8(0x41)").
	Name() string

	// Transform decodes the input. The returned slice is newly
	// allocated; the input is not modified.
	Transform(data []byte) ([]byte, error)

	// Untransform re-encodes previously-transformed data. One-way
	// transforms return errs.ErrNotReversible.
	Untransform(data []byte) ([]byte, error)

	// CanTransform reports whether Transform would plausibly succeed
	// on the input. It is a heuristic used by Detect; it never
	// modifies anything.
	CanTransform(data []byte) bool

	// IsTwoWay reports whether Untransform is supported with the
	// length contract intact.
	IsTwoWay() bool
}

// Record is the serialisable form of a Transform: the variant kind
// plus its configuration. Buffers store Records so a saved project can
// replay or reverse its transformation history.
type Record struct {
	Kind   string          `cbor:"kind" json:"kind"`
	Config cbor.RawMessage `cbor:"config,omitempty" json:"config,omitempty"`
}

// factories maps a record kind to a constructor of the zero transform
// to decode configuration into.
var factories = map[string]func() Transform{
	"null":       func() Transform { return &Null{} },
	"hex":        func() Transform { return &Hex{} },
	"base32":     func() Transform { return &Base32{} },
	"base64":     func() Transform { return &Base64{} },
	"xor":        func() Transform { return &XorByConstant{} },
	"bitreverse": func() Transform { return &BitReverse{} },
	"deflate":    func() Transform { return &Deflate{} },
	"lz4":        func() Transform { return &LZ4{} },
	"zstd":       func() Transform { return &Zstd{} },
}

// kindOf returns the registry kind for a concrete transform.
func kindOf(t Transform) (string, error) {
	switch t.(type) {
	case *Null, Null:
		return "null", nil
	case *Hex, Hex:
		return "hex", nil
	case *Base32, Base32:
		return "base32", nil
	case *Base64, Base64:
		return "base64", nil
	case *XorByConstant, XorByConstant:
		return "xor", nil
	case *BitReverse, BitReverse:
		return "bitreverse", nil
	case *Deflate, Deflate:
		return "deflate", nil
	case *LZ4, LZ4:
		return "lz4", nil
	case *Zstd, Zstd:
		return "zstd", nil
	default:
		return "", fmt.Errorf("unknown transform type %T: %w", t, errs.ErrDecodeFailure)
	}
}

// Encode converts a Transform into its serialisable Record.
func Encode(t Transform) (Record, error) {
	kind, err := kindOf(t)
	if err != nil {
		return Record{}, err
	}

	config, err := cbor.Marshal(t)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s config: %w", kind, err)
	}

	return Record{Kind: kind, Config: config}, nil
}

// Decode reconstructs a Transform from its Record.
func Decode(r Record) (Transform, error) {
	factory, ok := factories[r.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown transform kind %q: %w", r.Kind, errs.ErrDecodeFailure)
	}

	t := factory()
	if len(r.Config) > 0 {
		if err := cbor.Unmarshal(r.Config, t); err != nil {
			return nil, fmt.Errorf("decoding %s config: %w", r.Kind, err)
		}
	}

	return t, nil
}

// Detect returns the transforms whose CanTransform accepts the input,
// ranked by specificity: strict text encodings first, then container
// formats with magic bytes, then headerless compression. Transforms
// that accept any input (null, xor, bit reversal) are never suggested.
func Detect(data []byte) []Transform {
	candidates := []Transform{
		Hex{},
		Base32{Variant: Base32Standard},
		Base32{Variant: Base32NoPadding},
		Base32{Variant: Base32Crockford},
		Base64{Variant: Base64Standard},
		Base64{Variant: Base64NoPadding},
		Base64{Variant: Base64URL},
		Base64{Variant: Base64URLNoPadding},
		Base64{Variant: Base64Permissive},
		Zstd{},
		Deflate{Container: ContainerZlib},
		Deflate{Container: ContainerRaw},
		LZ4{},
	}

	detected := make([]Transform, 0)
	for _, t := range candidates {
		if t.CanTransform(data) {
			detected = append(detected, t)
		}
	}

	return detected
}

// Null is the identity transform. It exists so a transformation slot
// can be filled explicitly without changing bytes.
type Null struct{}

var _ Transform = Null{}

func (Null) Name() string { return "null" }

func (Null) Transform(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

func (Null) Untransform(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

func (Null) CanTransform([]byte) bool { return true }

func (Null) IsTwoWay() bool { return true }
