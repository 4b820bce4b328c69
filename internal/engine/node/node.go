// Package node implements the node runtime described in spec §4.4: a
// signature (input kinds, flags, rank, injectables), the three user
// phases (start/eval/stop), and the ready predicate that gates eval.
//
// Package node never imports package sched: a Node is woken and enqueued
// by the scheduler through the Scheduler interface below, which keeps the
// dependency pointed one way (sched depends on node, not the reverse) the
// same way the teacher keeps its execution-graph walker independent of
// the request-tracker that drives it.
package node

import (
	"fmt"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/bind"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// ID uniquely identifies a node within one graph instance.
type ID int

// Category distinguishes the node policy variants spec §4.4 names.
type Category int

const (
	// Compute nodes have inputs and an output.
	Compute Category = iota
	// Source nodes have no inputs and drive themselves from a generator.
	Source
	// PushSource nodes are woken externally via a thread-safe sender (§4.7).
	PushSource
	// Sink nodes have inputs only and may request engine stop.
	Sink
)

// Scheduler is the subset of the engine scheduler a node needs: the
// ability to request a future wake and to ask for a full stop. Package
// sched implements this against its own pending queue.
type Scheduler interface {
	Schedule(nodeID ID, at etime.Time, tag string)
	RequestStop()
}

// Phases is the user-supplied behavior of a node: Start runs once before
// the first Eval in rank order, Eval runs whenever the ready predicate
// holds, Stop runs once in reverse rank order (spec §4.4).
type Phases struct {
	Start func(ctx *Context) error
	Eval  func(ctx *Context) error
	Stop  func(ctx *Context) error
}

// Context is handed to every phase call: the injectables spec §4.4 lists
// (clock, scheduler, state, engine api, logger) plus access to this
// node's bound inputs and output.
type Context struct {
	Now       etime.Time
	Scheduler Scheduler
	Logger    hclog.Logger
	State     any

	Node *Node
}

// Signature is the static, build-time-fixed description of a node: its
// bound inputs, flags selecting which participate in valid/all_valid/
// active readiness clauses, output kind, and rank (spec §4.4).
type Signature struct {
	Name string
	Rank int

	// Valid lists input names that must be Valid() for eval to run.
	Valid []string
	// AllValid lists input names that must be AllValid() for eval to run.
	AllValid []string
	// Active lists input names whose modification can trigger eval. A nil
	// slice means "every input" (spec §4.4 default).
	Active []string

	// Recover, when true, routes a failing Eval to ErrorOutput instead of
	// propagating a fatal NodeError: the original library's try_except
	// wrapping, supplemented from original_source/ per spec §7's "if the
	// node declares recover" NodeError policy.
	Recover bool
}

// Node is one instantiated node: a signature, its phases, its bound
// inputs keyed by name, its output (nil for Sink), and private state
// threaded through eval calls.
type Node struct {
	ID       ID
	Sig      Signature
	Category Category
	Phases   Phases

	Inputs map[string]*bind.Input
	Output ts.Output

	// ErrorOutput is the synthesized TS[error] companion output a
	// Sig.Recover node's failing Eval is routed to instead of propagating
	// a fatal NodeError (spec §7). Build-time wiring constructs it when
	// Sig.Recover is set; it is nil otherwise.
	ErrorOutput *ts.Scalar[error]

	State any

	started bool
}

// New constructs a node. Inputs may be nil/partially populated at
// construction and filled in afterward by the wiring step that binds
// edges (package bind); the ready predicate and phase calls always read
// the current contents of the map.
func New(id ID, sig Signature, category Category, phases Phases) *Node {
	return &Node{ID: id, Sig: sig, Category: category, Phases: phases, Inputs: map[string]*bind.Input{}}
}

// recoverPanic builds a NodeError with a captured stack trace from a
// recovered panic value (spec §7 "the engine wraps every user callback;
// any unexpected exception becomes a NodeError with the offending node id
// and a stack trace attached"), the same recover-and-convert-to-error
// shape as the teacher's internal/golang.Safe helpers.
func (n *Node) recoverPanic(r any) error {
	d := diag.NodeError(n.Sig.Name, fmt.Errorf("panic: %v", r))
	d.Stack = string(debug.Stack())
	return d
}

func (n *Node) input(name string) (*bind.Input, error) {
	in, ok := n.Inputs[name]
	if !ok {
		return nil, fmt.Errorf("node %q: no such input %q", n.Sig.Name, name)
	}
	return in, nil
}

// Ready reports whether the node's eval phase may run at now, applying
// the three-clause predicate from spec §4.4: every `valid` input is
// valid, every `all_valid` input is all-valid, and (unless explicitlyDue)
// at least one `active` input (or, with no Active list configured, any
// input at all) ticked at now.
func (n *Node) Ready(now etime.Time, explicitlyDue bool) (bool, error) {
	for _, name := range n.Sig.Valid {
		in, err := n.input(name)
		if err != nil {
			return false, err
		}
		if !in.Valid() {
			return false, nil
		}
	}
	for _, name := range n.Sig.AllValid {
		in, err := n.input(name)
		if err != nil {
			return false, err
		}
		if !in.AllValid() {
			return false, nil
		}
	}
	if explicitlyDue {
		return true, nil
	}
	if n.Category == Source || n.Category == PushSource {
		return explicitlyDue, nil
	}

	names := n.Sig.Active
	if names == nil {
		for name := range n.Inputs {
			names = append(names, name)
		}
	}
	for _, name := range names {
		in, err := n.input(name)
		if err != nil {
			return false, err
		}
		if in.Modified(now) {
			return true, nil
		}
	}
	return false, nil
}

// Start runs the start phase exactly once, in rank order relative to
// other nodes (enforced by the caller, typically package sched, iterating
// nodes sorted by rank).
func (n *Node) Start(ctx *Context) (err error) {
	if n.started {
		return nil
	}
	n.started = true
	if n.Phases.Start == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = n.recoverPanic(r)
		}
	}()
	ctx.Node = n
	if err := n.Phases.Start(ctx); err != nil {
		return diag.NodeError(n.Sig.Name, err)
	}
	return nil
}

// Eval runs the eval phase. Callers are expected to have already checked
// Ready; Eval itself does not re-check it, mirroring spec §4.4's
// separation of "may evaluate" from "evaluates".
func (n *Node) Eval(ctx *Context) (err error) {
	if n.Phases.Eval == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = n.recoverPanic(r)
		}
	}()
	ctx.Node = n
	if err := n.Phases.Eval(ctx); err != nil {
		if n.Sig.Recover && n.ErrorOutput != nil {
			n.ErrorOutput.Set(ctx.Now, err)
			return nil
		}
		return diag.NodeError(n.Sig.Name, err)
	}
	return nil
}

// Stop runs the stop phase exactly once. Callers are expected to invoke
// Stop on every live node in reverse rank order (spec §4.4).
func (n *Node) Stop(ctx *Context) (err error) {
	if !n.started {
		return nil
	}
	n.started = false
	if n.Phases.Stop == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = n.recoverPanic(r)
		}
	}()
	ctx.Node = n
	if err := n.Phases.Stop(ctx); err != nil {
		return diag.NodeError(n.Sig.Name, err)
	}
	return nil
}
