// Package nested implements the graph-composition primitives spec §4.6
// names: map_ (one child graph per TSD key), switch_ (one live child at a
// time, rebuilt on key change), feedback (a loop-back buffer read one
// instant stale), and delayed_binding (a promise for an output wired
// later in the same scope).
//
// These build on package node/sched/ts/bind the way the teacher's
// internal/lang/eval/internal/configgraph package manages dynamically
// keyed collections of child objects (e.g. ModuleInstance's
// map[addrs.Resource]*Resource), adapted here to nodes whose lifecycle is
// driven by TSD key churn rather than static configuration.
package nested

import (
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// Host is the subset of *sched.Engine (package sched's Spawn/Teardown/Now)
// nested primitives need to spawn and tear down child graphs at runtime.
// Kept as an interface, like node.Scheduler and observe.Subscriber, so
// this package doesn't need to import sched.
type Host interface {
	Now() etime.Time
	Spawn(ns ...*node.Node) diag.Diagnostics
	Teardown(ns ...*node.Node) diag.Diagnostics
}

// Builder constructs one child graph instance for a given key, returning
// the nodes that make it up (already bound to each other and to whatever
// of the parent scope they need) plus that child's designated output, if
// any. baseRank is the rank the child's own nodes must be assigned above
// (spec §4.6: "their nodes are assigned ranks above the map node's
// rank").
type Builder[K any] func(key K, baseRank int) (nodes []*node.Node, output ts.Output, err error)

// Map implements map_(fn, tsd): one child graph per key in a TSD's
// key_set, built+started when a new key appears and stopped+destroyed
// when a key is removed (spec §4.6). Its own Output is a TSD keyed
// identically to the input; each entry is a REF rebound to that key's
// child output, since the dict's element type must be fixed up front but
// the concrete child output is only known once a branch is built.
type Map[K comparable] struct {
	host     Host
	build    Builder[K]
	baseRank int
	wantKind ts.Kind

	out      *ts.Dict[K, *ts.Ref]
	children map[K][]*node.Node
}

// NewMap constructs a map_ node manager. wantKind constrains the kind
// every built child's output must share.
func NewMap[K comparable](host Host, baseRank int, wantKind ts.Kind, build Builder[K]) *Map[K] {
	m := &Map[K]{host: host, build: build, baseRank: baseRank, wantKind: wantKind, children: map[K][]*node.Node{}}
	m.out = ts.NewDict[K, *ts.Ref](nil, func(k K, child *ts.Node) *ts.Ref {
		return ts.NewRef(child, wantKind)
	})
	return m
}

// Output returns the TSD of per-key child outputs (each entry a REF
// pointing at that key's child output).
func (m *Map[K]) Output() *ts.Dict[K, *ts.Ref] { return m.out }

// Apply reconciles the map against the current key set: keys present in
// keys but not yet built are built+started; keys previously built but no
// longer in keys are stopped+destroyed.
func (m *Map[K]) Apply(now etime.Time, keys map[K]bool) diag.Diagnostics {
	var diags diag.Diagnostics

	for k := range m.children {
		if !keys[k] {
			diags = diags.Append(m.host.Teardown(m.children[k]...))
			delete(m.children, k)
			if err := m.out.RemoveKey(now, k, ts.RemoveIfExists); err != nil {
				diags = diags.Append(diag.PlanError("map_: %s", err))
			}
		}
	}

	for k := range keys {
		if _, built := m.children[k]; built {
			continue
		}
		ns, childOut, err := m.build(k, m.baseRank)
		if err != nil {
			diags = diags.Append(diag.PlanError("map_: building child for key %v: %s", k, err))
			continue
		}
		diags = diags.Append(m.host.Spawn(ns...))
		m.children[k] = ns
		entry := m.out.GetOrCreate(now, k)
		if err := entry.Rebind(now, childOut); err != nil {
			diags = diags.Append(diag.TypeMismatch("map_: key %v: %s", k, err))
		}
	}
	return diags
}

// Switch implements switch_(branches, key, ...): like Map but only one
// child is alive at a time. On key change the old child is stopped, a new
// one built+started, and Output rebound to the new child's output (spec
// §4.6).
type Switch[K comparable] struct {
	host     Host
	build    Builder[K]
	baseRank int

	current    K
	hasCurrent bool
	children   []*node.Node
	out        *ts.Ref
}

// NewSwitch constructs a switch_ node manager. wantKind constrains the
// kind every branch's output must share (spec §4.3 REF kind constraint).
func NewSwitch[K comparable](host Host, baseRank int, wantKind ts.Kind, build Builder[K]) *Switch[K] {
	return &Switch[K]{host: host, build: build, baseRank: baseRank, out: ts.NewRef(nil, wantKind)}
}

// Output returns the REF tracking the currently-live branch's output.
func (s *Switch[K]) Output() *ts.Ref { return s.out }

// Select switches to key if it differs from the currently active branch,
// tearing down the old child and building+starting the new one.
func (s *Switch[K]) Select(now etime.Time, key K) diag.Diagnostics {
	var diags diag.Diagnostics
	if s.hasCurrent && s.current == key {
		return diags
	}

	if s.hasCurrent {
		diags = diags.Append(s.host.Teardown(s.children...))
		s.children = nil
		s.hasCurrent = false
	}

	ns, childOut, err := s.build(key, s.baseRank)
	if err != nil {
		diags = diags.Append(diag.PlanError("switch_: building branch for key %v: %s", key, err))
		return diags
	}
	diags = diags.Append(s.host.Spawn(ns...))
	s.children = ns
	s.current = key
	s.hasCurrent = true

	if err := s.out.Rebind(now, childOut); err != nil {
		diags = diags.Append(diag.TypeMismatch("switch_: %s", err))
	}
	return diags
}

// Feedback implements feedback(kind, default?): a writable loop-back
// buffer whose reads see the value as of the previous instant (spec
// §4.6). Writes land in a staging slot and only become visible to
// Value/Modified once Advance runs at the top of the next instant.
type Feedback[T any] struct {
	hasDefault bool
	def        T

	committed    T
	committedSet bool
	committedAt  etime.Time

	staged    T
	stagedSet bool
	stagedAt  etime.Time
}

// NewFeedback constructs an empty feedback loop with no default: Value
// panics if read before the first Write commits (mirrors spec §4.6
// "until the first write" with no default given).
func NewFeedback[T any]() *Feedback[T] { return &Feedback[T]{} }

// NewFeedbackWithDefault constructs a feedback loop whose Value is def
// until the first write commits.
func NewFeedbackWithDefault[T any](def T) *Feedback[T] {
	return &Feedback[T]{hasDefault: true, def: def}
}

// Write stages a value to become visible on the next Advance (spec §4.6
// "writes are deferred to the next instant").
func (f *Feedback[T]) Write(now etime.Time, v T) {
	f.staged = v
	f.stagedAt = now
	f.stagedSet = true
}

// Advance commits any staged write, making it the value Value/Modified
// report for now. Package sched does not call it: the owner of the
// feedback loop calls Advance once per instant, before any node reads a
// feedback value for that instant.
func (f *Feedback[T]) Advance(now etime.Time) {
	if f.stagedSet {
		f.committed = f.staged
		f.committedAt = now
		f.committedSet = true
		f.stagedSet = false
	}
}

// Value returns the current (previous-instant) value, or the configured
// default before the first commit. The default is deep-copied on every
// read via copystructure (the teacher uses it to deep-copy config values
// the same way): every instant before the first write shares the same
// f.def, and a caller holding a reference type (slice, map, pointer)
// must not be able to mutate the next instant's reported default through
// it.
func (f *Feedback[T]) Value() T {
	if f.committedSet {
		return f.committed
	}
	if f.hasDefault {
		cp, err := copystructure.Copy(f.def)
		if err != nil {
			panic(fmt.Sprintf("nested: feedback default copy: %v", err))
		}
		return cp.(T)
	}
	panic("nested: feedback read before first write and no default configured")
}

// Modified reports whether the committed value became visible at now.
func (f *Feedback[T]) Modified(now etime.Time) bool {
	return f.committedSet && f.committedAt == now
}

// DelayedBinding promises an output of a known kind to be wired later in
// the same wiring scope (spec §4.6). At runtime it behaves as a direct
// peered reference once bound; Bind may only be called once.
type DelayedBinding struct {
	wantKind ts.Kind
	target   ts.Output
	bound    bool
	name     string
}

// NewDelayedBinding creates an unbound promise for an output of kind
// wantKind. name is used only for the "never bound" build-time error.
func NewDelayedBinding(name string, wantKind ts.Kind) *DelayedBinding {
	return &DelayedBinding{name: name, wantKind: wantKind}
}

// Bind wires the promise to its real target. Returns an error if called
// twice or with a kind-mismatched target.
func (d *DelayedBinding) Bind(target ts.Output) error {
	if d.bound {
		return fmt.Errorf("nested: delayed_binding %q already bound", d.name)
	}
	if target.Kind() != d.wantKind {
		return fmt.Errorf("nested: delayed_binding %q: want kind %s, got %s", d.name, d.wantKind, target.Kind())
	}
	d.target = target
	d.bound = true
	return nil
}

// Resolve returns the bound target, failing at build time if Bind was
// never called (spec §4.6 "fails at build if never bound").
func (d *DelayedBinding) Resolve() (ts.Output, error) {
	if !d.bound {
		return nil, fmt.Errorf("nested: delayed_binding %q was never bound", d.name)
	}
	return d.target, nil
}
