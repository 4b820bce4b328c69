package ts

import (
	"fmt"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
)

// SetDelta is the {added, removed} delta a TSS write applies or reports.
// The two must be disjoint within a single delta (spec §3.3 invariant 3).
type SetDelta[T comparable] struct {
	Added   map[T]struct{}
	Removed map[T]struct{}
}

// NewSetDelta builds a SetDelta from slices, for caller convenience.
func NewSetDelta[T comparable](added, removed []T) SetDelta[T] {
	d := SetDelta[T]{Added: make(map[T]struct{}, len(added)), Removed: make(map[T]struct{}, len(removed))}
	for _, a := range added {
		d.Added[a] = struct{}{}
	}
	for _, r := range removed {
		d.Removed[r] = struct{}{}
	}
	return d
}

// Set is a TSS[T]: a set of scalar T values with an {added, removed} delta
// per tick (spec §3.2).
type Set[T comparable] struct {
	base
	value map[T]struct{}
	delta SetDelta[T]
}

func NewSet[T comparable](parent *Node) *Set[T] {
	return &Set[T]{base: newBase(parent), value: make(map[T]struct{})}
}

func (s *Set[T]) Kind() Kind     { return KindTSS }
func (s *Set[T]) AllValid() bool { return s.valid }

// Value returns the full current membership.
func (s *Set[T]) Value() map[T]struct{} { return s.value }

// DeltaValue returns what changed in the current tick.
func (s *Set[T]) DeltaValue() SetDelta[T] { return s.delta }

// Has reports current membership of v.
func (s *Set[T]) Has(v T) bool {
	_, ok := s.value[v]
	return ok
}

// Apply applies an {added, removed} delta atomically: it is rejected with
// an error if added and removed overlap (spec §3.3 invariant 3, and §4.1
// "TSS writes accept {added, removed} deltas and may reject with error if
// added ∩ removed ≠ ∅").
func (s *Set[T]) Apply(now etime.Time, d SetDelta[T]) error {
	for v := range d.Added {
		if _, clash := d.Removed[v]; clash {
			return fmt.Errorf("ts.Set.Apply: value %v is both added and removed in the same delta", v)
		}
	}
	added := make(map[T]struct{}, len(d.Added))
	removed := make(map[T]struct{}, len(d.Removed))
	for v := range d.Added {
		if _, already := s.value[v]; !already {
			s.value[v] = struct{}{}
			added[v] = struct{}{}
		}
	}
	for v := range d.Removed {
		if _, present := s.value[v]; present {
			delete(s.value, v)
			removed[v] = struct{}{}
		}
	}
	s.delta = SetDelta[T]{Added: added, Removed: removed}
	s.tick(now)
	return nil
}

// Add is shorthand for Apply with a single added element.
func (s *Set[T]) Add(now etime.Time, v T) error {
	return s.Apply(now, SetDelta[T]{Added: map[T]struct{}{v: {}}})
}

// Remove is shorthand for Apply with a single removed element.
func (s *Set[T]) Remove(now etime.Time, v T) error {
	return s.Apply(now, SetDelta[T]{Removed: map[T]struct{}{v: {}}})
}

// SnapshotValue implements Snapshotter, flattening membership to a slice
// since maps aren't stably ordered for serialization (spec §6.4).
func (s *Set[T]) SnapshotValue() (any, bool) {
	vals := make([]T, 0, len(s.value))
	for v := range s.value {
		vals = append(vals, v)
	}
	return vals, s.valid
}

// RestoreValue implements Snapshotter, re-adding every element as a single
// Apply so key_set bookkeeping (for a TSD's backing Set[K]) stays correct.
func (s *Set[T]) RestoreValue(now etime.Time, v any) error {
	vals, ok := v.([]T)
	if !ok {
		return fmt.Errorf("ts.Set.RestoreValue: type mismatch: got %T", v)
	}
	added := make(map[T]struct{}, len(vals))
	for _, x := range vals {
		added[x] = struct{}{}
	}
	return s.Apply(now, SetDelta[T]{Added: added})
}

// SetInput is the peered read-only view of a Set output.
type SetInput[T comparable] struct {
	out *Set[T]
}

func NewSetInput[T comparable](out *Set[T]) SetInput[T] { return SetInput[T]{out: out} }

func (i SetInput[T]) Valid() bool                  { return i.out.Valid() }
func (i SetInput[T]) Modified(now etime.Time) bool { return i.out.Modified(now) }
func (i SetInput[T]) Value() map[T]struct{}        { return i.out.Value() }
func (i SetInput[T]) DeltaValue() SetDelta[T]      { return i.out.DeltaValue() }
func (i SetInput[T]) Node() *Node                  { return i.out.Node() }
func (i SetInput[T]) Output() *Set[T]              { return i.out }
