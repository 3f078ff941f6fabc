// Package errs defines the sentinel errors shared across binscope.
//
// Callers match error kinds with errors.Is; call sites add context with
// fmt.Errorf("...: %w", errs.ErrX) so the kind survives wrapping.
package errs

import "errors"

// Bounds errors.
var (
	// ErrOutOfBounds indicates a range or address outside a container's
	// capacity.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrEmptyRange indicates a zero-length range where a non-empty one
	// is required.
	ErrEmptyRange = errors.New("empty range")

	// ErrMisaligned indicates a strict-alignment type resolved at an
	// offset that is not a multiple of its alignment value.
	ErrMisaligned = errors.New("misaligned")
)

// Structural errors.
var (
	// ErrOverlap indicates an insertion that would intersect an existing
	// entry.
	ErrOverlap = errors.New("overlaps an existing entry")

	// ErrNameExists indicates a name collision (vector, buffer, layer).
	ErrNameExists = errors.New("name already exists")

	// ErrNameMissing indicates a lookup of a name that doesn't exist.
	ErrNameMissing = errors.New("no such name")

	// ErrNotEmpty indicates a destroy/remove of a container that still
	// holds entries.
	ErrNotEmpty = errors.New("not empty")
)

// State errors.
var (
	// ErrBufferNotEditable indicates a byte edit against a buffer whose
	// transformation history forbids editing.
	ErrBufferNotEditable = errors.New("buffer is not editable")

	// ErrNotReversible indicates an untransform of a one-way
	// transformation.
	ErrNotReversible = errors.New("transformation is not reversible")

	// ErrHasAnnotations indicates a transformation attempted on a buffer
	// that still carries layers or entries.
	ErrHasAnnotations = errors.New("buffer has annotations")
)

// Data errors.
var (
	// ErrDecodeFailure indicates input bytes a transformation could not
	// decode.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrReadOutOfBounds indicates a typed read past the end of a byte
	// context.
	ErrReadOutOfBounds = errors.New("read out of bounds")

	// ErrLookupMissing indicates a registry lookup with no match.
	ErrLookupMissing = errors.New("lookup missing")

	// ErrStaticOffset indicates a data-dependent computation attempted
	// with a static (context-free) offset.
	ErrStaticOffset = errors.New("operation requires a dynamic offset")
)

// Undo errors.
var (
	// ErrNothingToUndo indicates Undo on an empty action log.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates Redo on an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrUndoTruncated indicates the action log was truncated by a
	// one-way operation and cannot be rewound past that point.
	ErrUndoTruncated = errors.New("undo history truncated")
)
