// Package project ties the engine together: byte-owning buffers with
// annotation layers, an invertible action log with undo/redo, and
// whole-project serialisation.
package project

import (
	"github.com/binscope/binscope/bumpy"
	"github.com/binscope/binscope/datatype"
)

// CreatorKind records what produced an entry.
type CreatorKind uint8

const (
	// CreatorUser is a hand-written annotation with no backing type.
	CreatorUser CreatorKind = iota
	// CreatorSimpleType is a leaf type application.
	CreatorSimpleType
	// CreatorComplexType is a composite type application.
	CreatorComplexType
	// CreatorCombinator is one member of a multi-entry group.
	CreatorCombinator
)

// Creator is an entry's provenance. Group is meaningful for
// CreatorCombinator entries.
type Creator struct {
	Kind  CreatorKind   `cbor:"kind" json:"kind"`
	Group bumpy.GroupID `cbor:"group,omitempty" json:"group,omitempty"`
}

// Reference is an address in a named buffer. Buffers are referenced by
// name, never by handle, so references serialise without cycles.
type Reference struct {
	Buffer  string `cbor:"buffer" json:"buffer"`
	Address uint64 `cbor:"address" json:"address"`
}

// Entry is one contiguous annotated range within a layer. The range is
// immutable; to change an entry, delete and recreate it.
type Entry struct {
	Range   bumpy.Range `cbor:"range" json:"range"`
	Display string      `cbor:"display" json:"display"`
	Comment string      `cbor:"comment,omitempty" json:"comment,omitempty"`
	Creator Creator     `cbor:"creator" json:"creator"`

	// References are addresses this entry points at, in any buffer.
	References []Reference `cbor:"references,omitempty" json:"references,omitempty"`

	// Recreator, when set, is the type to re-resolve after a byte edit
	// under this entry. Entries without one cannot be refreshed.
	Recreator datatype.TypeRef `cbor:"recreator,omitempty" json:"recreator,omitempty"`
}

// Notice reports a side effect of a byte edit that the host should
// surface: an entry that could not be re-created, whose range was left
// undefined. Entries that re-resolve cleanly produce no notice.
type Notice struct {
	Buffer  string      `cbor:"buffer" json:"buffer"`
	Layer   string      `cbor:"layer" json:"layer"`
	Range   bumpy.Range `cbor:"range" json:"range"`
	Message string      `cbor:"message" json:"message"`
}
