package ts

import (
	"fmt"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
)

// List is a TSL[T, N]: an indexed list of TS of the same kind, with N
// fixed or dynamic (spec §3.2). E is the concrete element Output type
// (e.g. *Scalar[int]).
type List[E Output] struct {
	containerBase
	elems   []E
	dynamic bool
	newElem func(child *Node) E
}

// NewList constructs a fixed-size list of n elements.
func NewList[E Output](parent *Node, n int, newElem func(child *Node) E) *List[E] {
	l := &List[E]{containerBase: newContainerBase(parent), newElem: newElem}
	l.elems = make([]E, n)
	for i := range l.elems {
		l.elems[i] = newElem(l.node)
	}
	return l
}

// NewDynamicList constructs an initially-empty list that grows via Append.
func NewDynamicList[E Output](parent *Node, newElem func(child *Node) E) *List[E] {
	l := &List[E]{containerBase: newContainerBase(parent), dynamic: true, newElem: newElem}
	return l
}

func (l *List[E]) Kind() Kind { return KindTSL }

// Append adds a new element to a dynamic list and returns it for writing.
// It panics if the list was constructed with a fixed size.
func (l *List[E]) Append() E {
	if !l.dynamic {
		panic("ts.List.Append: list has a fixed size")
	}
	e := l.newElem(l.node)
	l.elems = append(l.elems, e)
	return e
}

// Len returns the number of elements.
func (l *List[E]) Len() int { return len(l.elems) }

// At returns the element at index i.
func (l *List[E]) At(i int) (E, error) {
	var zero E
	if i < 0 || i >= len(l.elems) {
		return zero, fmt.Errorf("ts.List.At: index %d out of range [0,%d)", i, len(l.elems))
	}
	return l.elems[i], nil
}

// Valid reports whether the list is usable: not invalidated, and at least
// one element is valid. An empty list (such as a dynamic list before its
// first Append) is never valid, and an appended element counts only once
// it has been written.
func (l *List[E]) Valid() bool {
	if l.invalidated {
		return false
	}
	for _, e := range l.elems {
		if e.Valid() {
			return true
		}
	}
	return false
}

// AllValid reports whether every element is valid.
func (l *List[E]) AllValid() bool {
	if l.invalidated {
		return false
	}
	for _, e := range l.elems {
		if !e.AllValid() {
			return false
		}
	}
	return true
}

// Modified reports whether any element ticked at now.
func (l *List[E]) Modified(now etime.Time) bool {
	for _, e := range l.elems {
		if e.Modified(now) {
			return true
		}
	}
	return false
}

// LastModifiedTime returns the latest modification time across elements.
func (l *List[E]) LastModifiedTime() etime.Time {
	var max etime.Time
	for _, e := range l.elems {
		max = etime.Max(max, e.LastModifiedTime())
	}
	return max
}

// ModifiedIndices returns the indices modified at now -- the list's
// delta_value.
func (l *List[E]) ModifiedIndices(now etime.Time) []int {
	var out []int
	for i, e := range l.elems {
		if e.Modified(now) {
			out = append(out, i)
		}
	}
	return out
}

// ListInput is the peered read-only view of a List output.
type ListInput[E Output] struct {
	out *List[E]
}

func NewListInput[E Output](out *List[E]) ListInput[E] { return ListInput[E]{out: out} }

func (i ListInput[E]) Valid() bool                  { return i.out.Valid() }
func (i ListInput[E]) AllValid() bool               { return i.out.AllValid() }
func (i ListInput[E]) Modified(now etime.Time) bool { return i.out.Modified(now) }
func (i ListInput[E]) Len() int                     { return i.out.Len() }
func (i ListInput[E]) At(idx int) (E, error)        { return i.out.At(idx) }
func (i ListInput[E]) Node() *Node                  { return i.out.Node() }
func (i ListInput[E]) Output() *List[E]             { return i.out }
