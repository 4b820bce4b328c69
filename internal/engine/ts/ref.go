package ts

import "github.com/hhenson/hgraph-go/internal/engine/etime"

// Ref is a REF[X]: a rebindable reference carrying the identity of an
// output of kind X, not its value (spec §3.2). Consumers only notice when
// the referenced output changes identity; the actual subscribe/unsubscribe
// dance that makes dependents follow a rebind lives in package bind
// (spec §4.3 "REF rebinding").
type Ref struct {
	base
	target   Output
	wantKind Kind
}

// NewRef constructs a REF output constrained to targets of wantKind (spec
// §4.3 failure mode: "rebinding to a target with incompatible kind is a
// fatal engine error").
func NewRef(parent *Node, wantKind Kind) *Ref {
	return &Ref{base: newBase(parent), wantKind: wantKind}
}

func (r *Ref) Kind() Kind       { return KindREF }
func (r *Ref) AllValid() bool   { return r.valid }
func (r *Ref) TargetKind() Kind { return r.wantKind }

// Target returns the currently-referenced output, or nil if never bound.
func (r *Ref) Target() Output { return r.target }

// DeltaValue is the same as Value for a REF: the identity itself is the
// payload.
func (r *Ref) DeltaValue() Output { return r.target }

// Rebind atomically points the reference at a new target, stamping now as
// the modification time. It returns an error (TypeMismatch, spec §7) if
// target's kind doesn't match the kind this Ref was constructed for.
func (r *Ref) Rebind(now etime.Time, target Output) error {
	if target != nil && target.Kind() != r.wantKind {
		return &KindMismatchError{Want: r.wantKind, Got: target.Kind()}
	}
	r.target = target
	r.tick(now)
	return nil
}

// KindMismatchError is returned by Rebind when the new target's kind
// doesn't match the REF's declared kind.
type KindMismatchError struct {
	Want, Got Kind
}

func (e *KindMismatchError) Error() string {
	return "ts: REF rebind target kind mismatch: want " + e.Want.String() + ", got " + e.Got.String()
}

// RefInput is the peered read-only view of a Ref output.
type RefInput struct {
	out *Ref
}

func NewRefInput(out *Ref) RefInput { return RefInput{out: out} }

func (i RefInput) Valid() bool                  { return i.out.Valid() }
func (i RefInput) Modified(now etime.Time) bool { return i.out.Modified(now) }
func (i RefInput) Target() Output               { return i.out.Target() }
func (i RefInput) Node() *Node                  { return i.out.Node() }
func (i RefInput) Output() *Ref                 { return i.out }
