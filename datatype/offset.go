package datatype

import (
	"fmt"

	"github.com/binscope/binscope/cursor"
	"github.com/binscope/binscope/errs"
)

// Offset is where a type is applied: either a bare position (static)
// or a position within readable bytes (dynamic). Only dynamic offsets
// can drive data-dependent computations such as variable-length
// strings or enum lookups; static offsets are accepted wherever the
// concrete type does not need data.
type Offset struct {
	dynamic bool
	pos     uint64
	ctx     cursor.Context
}

// StaticOffset creates a data-free offset at pos.
func StaticOffset(pos uint64) Offset {
	return Offset{pos: pos}
}

// DynamicOffset creates an offset backed by the context's bytes,
// positioned at the context's position.
func DynamicOffset(ctx cursor.Context) Offset {
	return Offset{dynamic: true, pos: ctx.Position(), ctx: ctx}
}

// IsDynamic returns true if the offset carries readable bytes.
func (o Offset) IsDynamic() bool {
	return o.dynamic
}

// Position returns the current position.
func (o Offset) Position() uint64 {
	return o.pos
}

// At returns a copy of the offset repositioned to pos.
func (o Offset) At(pos uint64) Offset {
	o.pos = pos
	if o.dynamic {
		o.ctx = o.ctx.At(pos)
	}

	return o
}

// Context returns the byte context positioned at the offset. Fails
// with errs.ErrStaticOffset when the offset is static.
func (o Offset) Context() (cursor.Context, error) {
	if !o.dynamic {
		return cursor.Context{}, fmt.Errorf("position 0x%x: %w", o.pos, errs.ErrStaticOffset)
	}

	return o.ctx.At(o.pos), nil
}
