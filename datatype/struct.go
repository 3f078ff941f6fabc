package datatype

import (
	"strings"
)

// Field is a named member of a Struct or Union.
type Field struct {
	Name string  `cbor:"name" json:"name"`
	Type TypeRef `cbor:"type" json:"type"`
}

// Struct is an ordered sequence of named fields, each resolved at the
// running offset where the previous field's aligned range ended.
type Struct struct {
	Fields []Field   `cbor:"fields" json:"fields"`
	Align  Alignment `cbor:"align,omitempty" json:"align,omitempty"`
}

var _ Type = (*Struct)(nil)

// NewStruct creates an unaligned struct from (name, type) fields.
func NewStruct(fields ...Field) *Struct {
	return &Struct{Fields: fields}
}

// NewStructAligned creates a struct with the given alignment.
func NewStructAligned(align Alignment, fields ...Field) *Struct {
	return &Struct{Fields: fields, Align: align}
}

// F builds a Field; it keeps struct literals readable.
func F(name string, t Type) Field {
	return Field{Name: name, Type: Ref(t)}
}

func (s *Struct) IsStatic() bool {
	for _, f := range s.Fields {
		if !f.Type.T.IsStatic() {
			return false
		}
	}

	return true
}

func (s *Struct) Alignment() Alignment {
	return s.Align
}

func (s *Struct) BaseSize(o Offset) (uint64, error) {
	return compositeBaseSize(s, o)
}

func (s *Struct) Children(Offset) ([]Child, error) {
	children := make([]Child, 0, len(s.Fields))
	for _, f := range s.Fields {
		children = append(children, Child{Name: f.Name, Type: f.Type.T})
	}

	return children, nil
}

func (s *Struct) Display(o Offset) (string, error) {
	spans, err := childSpans(s, o)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(spans))
	for _, sp := range spans {
		d, err := sp.child.Display(o.At(sp.r.Start))
		if err != nil {
			return "", childErr(sp.name, err)
		}
		parts = append(parts, sp.name+": "+d)
	}

	return "{ " + strings.Join(parts, ", ") + " }", nil
}
