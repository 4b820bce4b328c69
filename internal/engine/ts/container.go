package ts

import "github.com/hhenson/hgraph-go/internal/engine/observe"

// containerBase is the observer-tree/invalidate plumbing shared by the
// three container kinds (TSB, TSL, TSD). Unlike the scalar kinds, a
// container's own Valid/Modified/LastModifiedTime are derived dynamically
// from its children rather than stamped directly, because a container
// "changes" precisely when one of its children does and the observer tree
// (package observe) already propagates that notification upward — see
// DESIGN.md for the rationale.
type containerBase struct {
	node        *Node
	invalidated bool
}

func newContainerBase(parent *Node) containerBase {
	var n *Node
	if parent == nil {
		n = observe.NewRoot()
	} else {
		n = parent.Child()
	}
	return containerBase{node: n}
}

func (c *containerBase) Node() *Node { return c.node }

// Invalidate marks the whole container invalid (spec §4.1). The flag is
// never cleared: a later write to a child does not make the container
// valid again.
func (c *containerBase) Invalidate() { c.invalidated = true }
