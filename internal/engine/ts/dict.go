package ts

import (
	"fmt"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
)

// RemoveMode distinguishes the two TSD delete sentinels spec §4.1 mentions:
// Remove errors if the key is absent, RemoveIfExists is a silent no-op.
// This is one of the features original_source/ motivated supplementing
// into the terse spec.md prose (see SPEC_FULL.md).
type RemoveMode int

const (
	Remove RemoveMode = iota
	RemoveIfExists
)

// DictDelta is a TSD write/read delta: modified entries plus removed keys,
// mirroring spec §3.2 "delta is a mapping with sentinel REMOVE for
// deletions".
type DictDelta[K comparable, E Output] struct {
	Modified map[K]E
	Removed  map[K]struct{}
}

// Dict is a TSD[K, V]: a keyed mapping of K to TS-of-kind V, carrying a
// key_set: TSS[K] (spec §3.2). Entries are created lazily on first write
// and removed on Remove/RemoveIfExists (spec §3.4).
type Dict[K comparable, E Output] struct {
	containerBase
	keySet  *Set[K]
	entries map[K]E
	newElem func(key K, child *Node) E
}

// NewDict constructs an empty keyed container. newElem builds a fresh
// entry output the first time a key is written.
func NewDict[K comparable, E Output](parent *Node, newElem func(key K, child *Node) E) *Dict[K, E] {
	d := &Dict[K, E]{newElem: newElem, entries: make(map[K]E)}
	d.containerBase = newContainerBase(parent)
	d.keySet = NewSet[K](d.node)
	return d
}

func (d *Dict[K, E]) Kind() Kind { return KindTSD }

// KeySet returns the TSS[K] tracking current membership (spec invariant 2:
// keys(d.value) == d.key_set.value).
func (d *Dict[K, E]) KeySet() *Set[K] { return d.keySet }

// GetOrCreate returns the entry for k, creating it (and ticking key_set at
// now, spec invariant 2) if this is the first time k has been seen.
func (d *Dict[K, E]) GetOrCreate(now etime.Time, k K) E {
	if e, ok := d.entries[k]; ok {
		return e
	}
	e := d.newElem(k, d.node)
	d.entries[k] = e
	if err := d.keySet.Add(now, k); err != nil {
		// Add only fails on overlapping added/removed within one Apply
		// call, which cannot happen for a single-element Add.
		panic(err)
	}
	return e
}

// Get returns the entry for k without creating it.
func (d *Dict[K, E]) Get(k K) (E, bool) {
	e, ok := d.entries[k]
	return e, ok
}

// RemoveKey deletes k's entry, ticking key_set at now (spec invariant 2).
func (d *Dict[K, E]) RemoveKey(now etime.Time, k K, mode RemoveMode) error {
	if _, ok := d.entries[k]; !ok {
		if mode == RemoveIfExists {
			return nil
		}
		return fmt.Errorf("ts.Dict.RemoveKey: key %v does not exist", k)
	}
	delete(d.entries, k)
	return d.keySet.Remove(now, k)
}

// Valid reports whether the dict is usable: not invalidated, and at least
// one key present.
func (d *Dict[K, E]) Valid() bool {
	if d.invalidated {
		return false
	}
	return len(d.entries) > 0
}

// AllValid reports whether every current entry is valid.
func (d *Dict[K, E]) AllValid() bool {
	if d.invalidated {
		return false
	}
	for _, e := range d.entries {
		if !e.AllValid() {
			return false
		}
	}
	return true
}

// Modified reports whether the key set changed (an add or remove) or any
// entry's value changed, at now.
func (d *Dict[K, E]) Modified(now etime.Time) bool {
	if d.keySet.Modified(now) {
		return true
	}
	for _, e := range d.entries {
		if e.Modified(now) {
			return true
		}
	}
	return false
}

// LastModifiedTime returns the latest modification time across the key set
// and all entries.
func (d *Dict[K, E]) LastModifiedTime() etime.Time {
	max := d.keySet.LastModifiedTime()
	for _, e := range d.entries {
		max = etime.Max(max, e.LastModifiedTime())
	}
	return max
}

// DeltaValue returns the entries modified at now plus the keys removed at
// now (read from key_set's own delta, valid only when key_set ticked at
// now -- see Modified).
func (d *Dict[K, E]) DeltaValue(now etime.Time) DictDelta[K, E] {
	delta := DictDelta[K, E]{Modified: make(map[K]E), Removed: make(map[K]struct{})}
	for k, e := range d.entries {
		if e.Modified(now) {
			delta.Modified[k] = e
		}
	}
	if d.keySet.Modified(now) {
		for k := range d.keySet.DeltaValue().Removed {
			delta.Removed[k] = struct{}{}
		}
	}
	return delta
}

// DictInput is the peered read-only view of a Dict output.
type DictInput[K comparable, E Output] struct {
	out *Dict[K, E]
}

func NewDictInput[K comparable, E Output](out *Dict[K, E]) DictInput[K, E] {
	return DictInput[K, E]{out: out}
}

func (i DictInput[K, E]) Valid() bool                  { return i.out.Valid() }
func (i DictInput[K, E]) AllValid() bool               { return i.out.AllValid() }
func (i DictInput[K, E]) Modified(now etime.Time) bool { return i.out.Modified(now) }
func (i DictInput[K, E]) KeySet() *Set[K]              { return i.out.KeySet() }
func (i DictInput[K, E]) Get(k K) (E, bool)            { return i.out.Get(k) }
func (i DictInput[K, E]) Node() *Node                  { return i.out.Node() }
func (i DictInput[K, E]) Output() *Dict[K, E]          { return i.out }
