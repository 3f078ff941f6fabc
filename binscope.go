// Package binscope is the core engine of an interactive binary
// reverse-engineering workbench: load an opaque byte blob, then
// progressively annotate it with typed values, sub-buffers, reversible
// encodings, and overlapping interpretation layers.
//
// # Architecture
//
// A project.Project holds named buffers. Each buffer owns its bytes,
// an ordered list of applied transformations, and annotation layers;
// each layer is a positional container of non-overlapping entries
// (bumpy.Vector), cross-linked into atomic groups (bumpy.MultiVector).
// Creating an entry resolves a datatype.Type against the buffer's
// bytes; rendering consults the data.Registry to turn raw values into
// symbolic names.
//
// Every mutation is a project.Action paired with its inverse, so undo
// and redo are exact, and the whole project serialises to a
// self-describing CBOR record.
//
// # Basic usage
//
//	p := project.NewProject("firmware", "1.0")
//	_ = p.Apply(&project.CreateBufferFromBytes{Name: "rom", Data: blob})
//	_ = p.Apply(&project.AddLayer{Buffer: "rom", Layer: "analysis"})
//	_ = p.Apply(&project.CreateEntry{
//	    Buffer: "rom",
//	    Layer:  "analysis",
//	    Type:   datatype.Ref(binscope.U32LE()),
//	    Offset: 0x10,
//	})
//	_ = p.Undo()
//
// The packages are layered leaf-first: cursor under number, number
// under datatype, bumpy and transform under project.
package binscope

import (
	"github.com/binscope/binscope/datatype"
	"github.com/binscope/binscope/number"
)

// Common type stamps for the usual primitive reads. Each call returns
// a fresh value; types are immutable once constructed, so sharing
// would also be fine.

// U8 is an unsigned byte displayed in decimal.
func U8() *datatype.Number {
	return datatype.NewNumber(number.ReaderU8, number.FormatDecimal)
}

// U16LE is an unsigned little-endian 16-bit value displayed in hex.
func U16LE() *datatype.Number {
	return datatype.NewNumber(number.ReaderU16LE, number.FormatHex)
}

// U32LE is an unsigned little-endian 32-bit value displayed in hex.
func U32LE() *datatype.Number {
	return datatype.NewNumber(number.ReaderU32LE, number.FormatHex)
}

// U64LE is an unsigned little-endian 64-bit value displayed in hex.
func U64LE() *datatype.Number {
	return datatype.NewNumber(number.ReaderU64LE, number.FormatHex)
}

// I32LE is a signed little-endian 32-bit value displayed in decimal.
func I32LE() *datatype.Number {
	return datatype.NewNumber(number.ReaderI32LE, number.FormatDecimal)
}

// F64LE is a little-endian double displayed in the default float form.
func F64LE() *datatype.Number {
	return datatype.NewNumber(number.ReaderF64LE, number.FormatDecimal)
}

// ASCIIString is a NUL-terminated ASCII string.
func ASCIIString() *datatype.NTString {
	return datatype.NewNTString(number.ReaderASCII)
}
