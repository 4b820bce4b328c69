package ts

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
)

// Schema describes a TSB's named fields. The cty.Object type carries the
// field kinds for debug/trace output (GraphConfiguration.Trace, spec
// §6.2) the way the teacher's execution graph carries cty.Value/cty.Type
// everywhere for its own dynamic values (see SPEC_FULL.md DOMAIN STACK);
// it plays no role in field storage, which stays Output-based.
type Schema struct {
	Order     []string
	FieldType map[string]cty.Type
}

// CtyType renders the schema as a cty.Object type for debug dumps.
func (s Schema) CtyType() cty.Type {
	attrs := make(map[string]cty.Type, len(s.Order))
	for _, name := range s.Order {
		t := s.FieldType[name]
		if t == cty.NilType {
			t = cty.DynamicPseudoType
		}
		attrs[name] = t
	}
	return cty.Object(attrs)
}

// Bundle is a TSB[schema]: a bundle of named fields, each its own TS of any
// kind (spec §3.2).
type Bundle struct {
	containerBase
	schema Schema
	fields map[string]Output
}

// NewBundle constructs a bundle output. newField is called once per schema
// field, in schema order, to construct that field's concrete Output nested
// under the bundle's observer node.
func NewBundle(parent *Node, schema Schema, newField func(name string, child *Node) Output) *Bundle {
	b := &Bundle{containerBase: newContainerBase(parent), schema: schema, fields: make(map[string]Output, len(schema.Order))}
	for _, name := range schema.Order {
		b.fields[name] = newField(name, b.node)
	}
	return b
}

func (b *Bundle) Kind() Kind    { return KindTSB }
func (b *Bundle) Schema() Schema { return b.schema }

// Field returns the named field's kind-erased Output, or nil if name isn't
// part of the schema.
func (b *Bundle) Field(name string) Output { return b.fields[name] }

// Valid reports whether the bundle is usable: not explicitly invalidated,
// and at least one field has ever become valid.
func (b *Bundle) Valid() bool {
	if b.invalidated {
		return false
	}
	for _, f := range b.fields {
		if f.Valid() {
			return true
		}
	}
	return false
}

// AllValid reports whether every field is valid.
func (b *Bundle) AllValid() bool {
	if b.invalidated {
		return false
	}
	for _, f := range b.fields {
		if !f.AllValid() {
			return false
		}
	}
	return true
}

// Modified reports whether any field ticked at now (spec §4.1: the bundle's
// delta is "the mapping of modified fields").
func (b *Bundle) Modified(now etime.Time) bool {
	for _, f := range b.fields {
		if f.Modified(now) {
			return true
		}
	}
	return false
}

// LastModifiedTime returns the latest modification time across all fields.
func (b *Bundle) LastModifiedTime() etime.Time {
	var max etime.Time
	for _, f := range b.fields {
		max = etime.Max(max, f.LastModifiedTime())
	}
	return max
}

// ModifiedFields returns the names of the fields that ticked at now, in
// schema order -- this is the bundle's delta_value.
func (b *Bundle) ModifiedFields(now etime.Time) []string {
	var out []string
	for _, name := range b.schema.Order {
		if b.fields[name].Modified(now) {
			out = append(out, name)
		}
	}
	return out
}

// BundleInput is the peered read-only view of a Bundle output.
type BundleInput struct {
	out *Bundle
}

func NewBundleInput(out *Bundle) BundleInput { return BundleInput{out: out} }

func (i BundleInput) Valid() bool                  { return i.out.Valid() }
func (i BundleInput) AllValid() bool               { return i.out.AllValid() }
func (i BundleInput) Modified(now etime.Time) bool { return i.out.Modified(now) }
func (i BundleInput) Field(name string) Output     { return i.out.Field(name) }
func (i BundleInput) Node() *Node                  { return i.out.Node() }
func (i BundleInput) Output() *Bundle              { return i.out }

// Field is a typed accessor for a bundle's field, for callers that know the
// concrete Output type (analogous to a type-checked wiring-layer accessor,
// but kept here since the engine itself needs typed access for built-in
// plumbing like feedback defaults).
func Field[E Output](b *Bundle, name string) (E, error) {
	var zero E
	f := b.Field(name)
	if f == nil {
		return zero, fmt.Errorf("ts.Field: bundle has no field %q", name)
	}
	e, ok := f.(E)
	if !ok {
		return zero, fmt.Errorf("ts.Field: field %q is %T, not %T", name, f, zero)
	}
	return e, nil
}
