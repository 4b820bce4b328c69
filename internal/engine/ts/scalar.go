package ts

import (
	"fmt"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
)

// Scalar is a TS[T]: delta_value == value (spec §3.2).
type Scalar[T any] struct {
	base
	value T
}

// NewScalar constructs a TS[T] output nested under parent (nil for a
// top-level output).
func NewScalar[T any](parent *Node) *Scalar[T] {
	return &Scalar[T]{base: newBase(parent)}
}

func (s *Scalar[T]) Kind() Kind { return KindTS }

func (s *Scalar[T]) AllValid() bool { return s.valid }

// Value returns the current full state, or the zero value of T if never
// set or invalidated.
func (s *Scalar[T]) Value() T {
	if !s.valid {
		var zero T
		return zero
	}
	return s.value
}

// DeltaValue is identical to Value for scalars (spec §3.2).
func (s *Scalar[T]) DeltaValue() T { return s.value }

// Set stores v as the new value, stamping now as the modification time and
// notifying observers.
func (s *Scalar[T]) Set(now etime.Time, v T) {
	s.value = v
	s.tick(now)
}

// SnapshotValue implements Snapshotter (spec §6.4).
func (s *Scalar[T]) SnapshotValue() (any, bool) { return s.value, s.valid }

// RestoreValue implements Snapshotter.
func (s *Scalar[T]) RestoreValue(now etime.Time, v any) error {
	tv, ok := v.(T)
	if !ok {
		return fmt.Errorf("ts.Scalar.RestoreValue: type mismatch: got %T", v)
	}
	s.Set(now, tv)
	return nil
}

// ScalarInput is the read-only peered view of a Scalar output (spec §4.3
// "Peered: input directly views the output (O(1) delegation)").
type ScalarInput[T any] struct {
	out *Scalar[T]
}

func NewScalarInput[T any](out *Scalar[T]) ScalarInput[T] { return ScalarInput[T]{out: out} }

func (i ScalarInput[T]) Valid() bool                     { return i.out.Valid() }
func (i ScalarInput[T]) Modified(now etime.Time) bool    { return i.out.Modified(now) }
func (i ScalarInput[T]) LastModifiedTime() etime.Time    { return i.out.LastModifiedTime() }
func (i ScalarInput[T]) Value() T                        { return i.out.Value() }
func (i ScalarInput[T]) DeltaValue() T                   { return i.out.DeltaValue() }
func (i ScalarInput[T]) Node() *Node                     { return i.out.Node() }
func (i ScalarInput[T]) Output() *Scalar[T]               { return i.out }
