// Package bind implements edge binding between an output and an input:
// peered vs. non-peered delegation, active vs. passive subscription, and
// REF rebinding (spec §4.3). Bindings are established once at plan-build
// time and don't change shape at runtime, except for the two things the
// spec explicitly calls out as runtime-mutable: a node may flip an input
// between active and passive, and a REF may be rebound to a new target.
package bind

import (
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/observe"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// Activation controls whether ticks on an input's bound output wake the
// owning node.
type Activation int

const (
	Passive Activation = iota
	Active
)

// Input is a peered or non-peered binding from a node's input slot to a
// producer's Output.
//
// "Peered" means Output is literally the producer's own output (O(1)
// delegation, spec §4.3). Peered is a recorded flag only: Input reads
// through Output the same way either way, and nothing in this repository
// builds the synthetic container a non-peered binding would point at.
type Input struct {
	Output     ts.Output
	Activation Activation
	Peered     bool

	subscribed bool
}

// NewInput creates an input bound to out with the given peering/activation.
func NewInput(out ts.Output, peered bool, activation Activation) *Input {
	return &Input{Output: out, Peered: peered, Activation: activation}
}

func (in *Input) Valid() bool                  { return in.Output != nil && in.Output.Valid() }
func (in *Input) AllValid() bool               { return in.Output != nil && in.Output.AllValid() }
func (in *Input) Modified(now etime.Time) bool { return in.Output != nil && in.Output.Modified(now) }

// Subscribe registers sub to be woken on ticks of this input's output, if
// the input is active. Passive inputs are read on demand and never
// subscribed (spec §4.3).
func (in *Input) Subscribe(sub observe.Subscriber) {
	if in.Activation == Active && in.Output != nil && !in.subscribed {
		in.Output.Node().Subscribe(sub)
		in.subscribed = true
	}
}

// Unsubscribe detaches sub from this input's output.
func (in *Input) Unsubscribe(sub observe.Subscriber) {
	if in.subscribed && in.Output != nil {
		in.Output.Node().Unsubscribe(sub)
		in.subscribed = false
	}
}

// SetActivation toggles this input between active and passive at runtime
// (spec §4.3 "Nodes may toggle inputs between active and passive at
// runtime"), (un)subscribing sub as needed.
func (in *Input) SetActivation(sub observe.Subscriber, a Activation) {
	if a == in.Activation {
		return
	}
	if in.Activation == Active {
		in.Unsubscribe(sub)
	}
	in.Activation = a
	if in.Activation == Active {
		in.Subscribe(sub)
	}
}

// RefBound tracks an input that is indirected through a REF: instead of
// binding directly to a producer's output, it binds to a Ref and follows
// wherever the Ref currently points, resubscribing on every rebind (spec
// §4.3 "REF rebinding... must atomically unsubscribe from the old target
// and subscribe to the new one, preserving the input's active/passive
// state across the swap").
type RefBound struct {
	Ref        *ts.Ref
	Activation Activation

	current ts.Output
	sub     observe.Subscriber
}

// NewRefBound creates a binding that follows ref, subscribing sub to the
// ref's current target immediately if a is Active.
func NewRefBound(ref *ts.Ref, sub observe.Subscriber, a Activation) *RefBound {
	rb := &RefBound{Ref: ref, Activation: a, sub: sub}
	rb.Follow()
	return rb
}

// Follow re-reads the ref's current target, unsubscribing sub from
// whatever it was previously bound to and, if active, subscribing it to
// the new target. Call this after observing the ref itself tick.
func (rb *RefBound) Follow() {
	if rb.Activation == Active && rb.current != nil {
		rb.current.Node().Unsubscribe(rb.sub)
	}
	rb.current = rb.Ref.Target()
	if rb.Activation == Active && rb.current != nil {
		rb.current.Node().Subscribe(rb.sub)
	}
}

// SetActivation toggles the bound target's active/passive state, following
// the same unsubscribe/resubscribe contract as Input.SetActivation.
func (rb *RefBound) SetActivation(a Activation) {
	if a == rb.Activation {
		return
	}
	if rb.Activation == Active && rb.current != nil {
		rb.current.Node().Unsubscribe(rb.sub)
	}
	rb.Activation = a
	if rb.Activation == Active && rb.current != nil {
		rb.current.Node().Subscribe(rb.sub)
	}
}

// Target returns the output currently bound through the ref.
func (rb *RefBound) Target() ts.Output { return rb.current }
