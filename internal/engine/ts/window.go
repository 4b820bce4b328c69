package ts

import (
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
)

// Window is a TSW[T, size, min_size]: a fixed-capacity cyclic window over T
// (spec §3.2). It becomes valid once minSize elements have been appended,
// and every append past capacity produces exactly one removed_value (spec
// §3.3 invariant 4).
type Window[T any] struct {
	base
	buf     []T
	size    int
	minSize int
	count   int // total elements ever appended

	appended     T
	removedValue T
	hasRemoved   bool
}

// NewWindow constructs a TSW with the given capacity and minimum size
// before it is considered valid. minSize must be >= 1 and <= size.
func NewWindow[T any](parent *Node, size, minSize int) *Window[T] {
	if size < 1 {
		panic("ts.NewWindow: size must be >= 1")
	}
	if minSize < 1 || minSize > size {
		panic("ts.NewWindow: min_size must be in [1, size]")
	}
	return &Window[T]{base: newBase(parent), buf: make([]T, 0, size), size: size, minSize: minSize}
}

func (w *Window[T]) Kind() Kind     { return KindTSW }
func (w *Window[T]) AllValid() bool { return w.valid }

// Value returns the window's current contents, oldest first, deep-copied
// via copystructure so a reader can never mutate the engine's own buffer
// through an element that happens to be a reference type (spec §3.3
// invariant: window eviction must not alias producer storage).
func (w *Window[T]) Value() []T {
	cp, err := copystructure.Copy(w.buf)
	if err != nil {
		panic(fmt.Sprintf("ts.Window.Value: copy: %v", err))
	}
	return cp.([]T)
}

// DeltaValue returns the element appended in the current tick.
func (w *Window[T]) DeltaValue() T { return w.appended }

// RemovedValue returns the element evicted by the current tick's append,
// if the window was already at capacity.
func (w *Window[T]) RemovedValue() (T, bool) { return w.removedValue, w.hasRemoved }

// Len returns the number of elements currently held (<= capacity).
func (w *Window[T]) Len() int { return len(w.buf) }

// Full reports whether the window is at capacity.
func (w *Window[T]) Full() bool { return len(w.buf) == w.size }

// Append adds v as the newest element, evicting the oldest if the window
// is already at capacity, and marks the window valid once minSize elements
// have ever been appended.
func (w *Window[T]) Append(now etime.Time, v T) {
	w.appended = v
	w.hasRemoved = false
	if len(w.buf) == w.size {
		var zero T
		w.removedValue = w.buf[0]
		w.hasRemoved = true
		copy(w.buf, w.buf[1:])
		w.buf[len(w.buf)-1] = zero
		w.buf = w.buf[:len(w.buf)-1]
	}
	w.buf = append(w.buf, v)
	w.count++

	if w.count >= w.minSize {
		w.tick(now)
	} else {
		// Not yet valid: stamp bookkeeping without flipping Valid/notifying,
		// matching spec's "becomes valid once min_size reached" wording.
		w.lastModified = now
	}
}

// SnapshotValue implements Snapshotter, capturing the window's current
// contents oldest-first (spec §6.4).
func (w *Window[T]) SnapshotValue() (any, bool) { return w.Value(), w.valid }

// RestoreValue implements Snapshotter by replaying each element through
// Append in order, so capacity eviction and the minSize validity
// threshold are recomputed exactly as they were built originally.
func (w *Window[T]) RestoreValue(now etime.Time, v any) error {
	vals, ok := v.([]T)
	if !ok {
		return fmt.Errorf("ts.Window.RestoreValue: type mismatch: got %T", v)
	}
	for _, x := range vals {
		w.Append(now, x)
	}
	return nil
}

// WindowInput is the peered read-only view of a Window output.
type WindowInput[T any] struct {
	out *Window[T]
}

func NewWindowInput[T any](out *Window[T]) WindowInput[T] { return WindowInput[T]{out: out} }

func (i WindowInput[T]) Valid() bool                   { return i.out.Valid() }
func (i WindowInput[T]) Modified(now etime.Time) bool  { return i.out.Modified(now) }
func (i WindowInput[T]) Value() []T                    { return i.out.Value() }
func (i WindowInput[T]) DeltaValue() T                 { return i.out.DeltaValue() }
func (i WindowInput[T]) RemovedValue() (T, bool)       { return i.out.RemovedValue() }
func (i WindowInput[T]) Node() *Node                   { return i.out.Node() }
func (i WindowInput[T]) Output() *Window[T]            { return i.out }
