// Package observe implements the hierarchical parent-notify network over
// time-series outputs described in spec §4.2. Every output (and every
// nested field of a container output) owns a Node; notification always
// walks from the changed leaf up to the root, never sideways or downward,
// so the graph can never contain an observer cycle (spec §9, "Observers
// without cycles").
package observe

import "github.com/hhenson/hgraph-go/internal/engine/etime"

// Subscriber is anything that wants to be woken when the Node it is
// subscribed to (or one of that Node's descendants) changes. In practice
// the only implementation is the scheduler's node-wake adapter (package
// sched), but keeping this as an interface lets ts and sched avoid an
// import cycle.
type Subscriber interface {
	Wake(t etime.Time)
}

// Node is one point in the observer tree: either a top-level output (a
// root, parent == nil) or a nested field of a container output.
type Node struct {
	parent *Node
	subs   []Subscriber
}

// NewRoot creates a new root Node for a freshly-constructed top-level output.
func NewRoot() *Node {
	return &Node{}
}

// Child creates a new Node nested under n, for a container output's field
// or element.
func (n *Node) Child() *Node {
	return &Node{parent: n}
}

// Subscribe registers s to be woken whenever n (or a descendant of n)
// changes. Registering the same Subscriber more than once is permitted and
// results in multiple wake calls per notification, so callers that want
// idempotent registration should track membership themselves (bind.Input
// does, via its subscribed flag).
func (n *Node) Subscribe(s Subscriber) {
	n.subs = append(n.subs, s)
}

// Unsubscribe removes s from n's subscriber list (used when a REF rebinds
// and must detach from its previous target, spec §4.3).
func (n *Node) Unsubscribe(s Subscriber) {
	for i, sub := range n.subs {
		if sub == s {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// Notify fires n's own subscribers and then walks up to the root, firing
// every ancestor's subscribers in turn. A node registered at a specific
// field therefore only fires for changes at or below that field, while the
// root's observers fire for any change anywhere in the output.
func (n *Node) Notify(t etime.Time) {
	for _, s := range n.subs {
		s.Wake(t)
	}
	if n.parent != nil {
		n.parent.Notify(t)
	}
}
