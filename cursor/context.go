// Package cursor provides a cheap, immutable cursor over a byte slice,
// plus the byte-order selection its typed reads are parameterised by.
//
// A Context is a value: copying it copies a slice header and a
// position, never the bytes, and At returns a
// repositioned copy without touching the original. All typed reads
// validate bounds and fail with errs.ErrReadOutOfBounds rather than
// panicking, since positions routinely come from untrusted data (a
// length prefix, a pointer value).
package cursor

import (
	"fmt"
	"math"

	"github.com/binscope/binscope/errs"
)

// Context is a borrowed byte slice plus a current position. The slice
// is never modified through a Context.
type Context struct {
	data []byte
	pos  uint64
}

// NewContext creates a context positioned at the start of data.
func NewContext(data []byte) Context {
	return Context{data: data}
}

// At returns a copy of the context repositioned to pos. The receiver
// is unchanged. Positions past the end are legal to hold; reads there
// fail.
func (c Context) At(pos uint64) Context {
	c.pos = pos
	return c
}

// Position returns the current position.
func (c Context) Position() uint64 {
	return c.pos
}

// Len returns the total length of the underlying slice.
func (c Context) Len() uint64 {
	return uint64(len(c.data))
}

// Remaining returns the number of bytes from the current position to
// the end, or 0 if the position is past the end.
func (c Context) Remaining() uint64 {
	if c.pos >= uint64(len(c.data)) {
		return 0
	}

	return uint64(len(c.data)) - c.pos
}

// check validates that n bytes can be read at the current position.
func (c Context) check(n uint64) error {
	if c.pos+n > uint64(len(c.data)) || c.pos+n < c.pos {
		return fmt.Errorf("read of %d bytes at position 0x%x exceeds length 0x%x: %w", n, c.pos, len(c.data), errs.ErrReadOutOfBounds)
	}

	return nil
}

// Bytes returns n bytes starting at the current position. The returned
// slice aliases the underlying data and must not be modified.
func (c Context) Bytes(n uint64) ([]byte, error) {
	if err := c.check(n); err != nil {
		return nil, err
	}

	return c.data[c.pos : c.pos+n], nil
}

// ReadU8 reads one unsigned byte.
func (c Context) ReadU8() (uint8, error) {
	if err := c.check(1); err != nil {
		return 0, err
	}

	return c.data[c.pos], nil
}

// ReadU16 reads an unsigned 16-bit value with the given byte order.
func (c Context) ReadU16(order ByteOrder) (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}

	return order.engine().Uint16(b), nil
}

// ReadU32 reads an unsigned 32-bit value with the given byte order.
func (c Context) ReadU32(order ByteOrder) (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}

	return order.engine().Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit value with the given byte order.
func (c Context) ReadU64(order ByteOrder) (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}

	return order.engine().Uint64(b), nil
}

// ReadU128 reads an unsigned 128-bit value with the given byte order,
// returned as a (hi, lo) pair of 64-bit halves.
func (c Context) ReadU128(order ByteOrder) (hi, lo uint64, err error) {
	b, err := c.Bytes(16)
	if err != nil {
		return 0, 0, err
	}

	engine := order.engine()
	if order == BigEndian {
		return engine.Uint64(b[0:8]), engine.Uint64(b[8:16]), nil
	}

	return engine.Uint64(b[8:16]), engine.Uint64(b[0:8]), nil
}

// ReadI8 reads one signed byte.
func (c Context) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

// ReadI16 reads a signed 16-bit value with the given byte order.
func (c Context) ReadI16(order ByteOrder) (int16, error) {
	v, err := c.ReadU16(order)
	return int16(v), err
}

// ReadI32 reads a signed 32-bit value with the given byte order.
func (c Context) ReadI32(order ByteOrder) (int32, error) {
	v, err := c.ReadU32(order)
	return int32(v), err
}

// ReadI64 reads a signed 64-bit value with the given byte order.
func (c Context) ReadI64(order ByteOrder) (int64, error) {
	v, err := c.ReadU64(order)
	return int64(v), err
}

// ReadF32 reads an IEEE 754 single-precision float with the given byte
// order.
func (c Context) ReadF32(order ByteOrder) (float32, error) {
	v, err := c.ReadU32(order)
	if err != nil {
		return 0, err
	}

	return math.Float32frombits(v), nil
}

// ReadF64 reads an IEEE 754 double-precision float with the given byte
// order.
func (c Context) ReadF64(order ByteOrder) (float64, error) {
	v, err := c.ReadU64(order)
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(v), nil
}
