// Package demo provides small, named example graphs cmd/hgraph's run and
// evaluate subcommands drive. A real embedder of this engine writes its
// own wiring in Go; plan.go's own package doc scopes that construction
// work (building node.Node values, binding edges) out of the engine
// core, so these hand-wired graphs stand in for it here.
package demo

import (
	"sort"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/bind"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/sched"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// Graph is one named example, fully built and ready to hand to
// runtime.RunGraph/EvaluateGraph: the node set, the active-subscription
// wiring runtime.GraphConfiguration.Wire needs, and the node/output pair
// worth watching for evaluate_graph output.
type Graph struct {
	Nodes  *sched.NodeSet
	Wire   func(eng *sched.Engine) diag.Diagnostics
	Watch  node.ID
	Output *ts.Scalar[int]
}

// Counter builds spec §8 S1's "Scalar pipeline" shape: a source node
// counting up by one every tickEvery, up to ticks increments, feeding a
// compute node that doubles it.
func Counter(ticks int, tickEvery etime.Delta) Graph {
	srcOut := ts.NewScalar[int](nil)
	src := node.New(1, node.Signature{Name: "counter", Rank: 0}, node.Source, node.Phases{
		Start: func(ctx *node.Context) error {
			ctx.Scheduler.Schedule(1, ctx.Now, "tick")
			return nil
		},
		Eval: func(ctx *node.Context) error {
			srcOut.Set(ctx.Now, srcOut.Value()+1)
			if srcOut.Value() < ticks {
				ctx.Scheduler.Schedule(1, ctx.Now.Add(tickEvery), "tick")
			}
			return nil
		},
	})
	src.Output = srcOut

	dblOut := ts.NewScalar[int](nil)
	dbl := node.New(2, node.Signature{Name: "doubler", Rank: 1, Valid: []string{"in"}}, node.Compute, node.Phases{
		Eval: func(ctx *node.Context) error {
			in := ctx.Node.Inputs["in"].Output.(*ts.Scalar[int])
			dblOut.Set(ctx.Now, in.Value()*2)
			return nil
		},
	})
	dbl.Inputs["in"] = bind.NewInput(srcOut, true, bind.Active)
	dbl.Output = dblOut

	return Graph{
		Nodes: sched.NewNodeSet(src, dbl),
		Wire: func(eng *sched.Engine) diag.Diagnostics {
			srcOut.Node().Subscribe(sched.NodeWake{Engine: eng, NodeID: dbl.ID})
			return nil
		},
		Watch:  dbl.ID,
		Output: dblOut,
	}
}

// Accumulator builds spec §8 S6's "Counting generator" shape: a source
// that ticks every tickEvery up to ticks times, feeding a compute node
// that sums every value it has seen so far rather than transforming it
// in isolation, exercising a node that reads and writes across instants
// through its own State rather than only through its output.
func Accumulator(ticks int, tickEvery etime.Delta) Graph {
	srcOut := ts.NewScalar[int](nil)
	src := node.New(1, node.Signature{Name: "ticker", Rank: 0}, node.Source, node.Phases{
		Start: func(ctx *node.Context) error {
			ctx.Scheduler.Schedule(1, ctx.Now, "tick")
			return nil
		},
		Eval: func(ctx *node.Context) error {
			srcOut.Set(ctx.Now, srcOut.Value()+1)
			if srcOut.Value() < ticks {
				ctx.Scheduler.Schedule(1, ctx.Now.Add(tickEvery), "tick")
			}
			return nil
		},
	})
	src.Output = srcOut

	sumOut := ts.NewScalar[int](nil)
	sum := node.New(2, node.Signature{Name: "sum", Rank: 1, Valid: []string{"in"}}, node.Compute, node.Phases{
		Start: func(ctx *node.Context) error {
			ctx.Node.State = 0
			return nil
		},
		Eval: func(ctx *node.Context) error {
			in := ctx.Node.Inputs["in"].Output.(*ts.Scalar[int])
			total := ctx.Node.State.(int) + in.Value()
			ctx.Node.State = total
			sumOut.Set(ctx.Now, total)
			return nil
		},
	})
	sum.Inputs["in"] = bind.NewInput(srcOut, true, bind.Active)
	sum.Output = sumOut

	return Graph{
		Nodes: sched.NewNodeSet(src, sum),
		Wire: func(eng *sched.Engine) diag.Diagnostics {
			srcOut.Node().Subscribe(sched.NodeWake{Engine: eng, NodeID: sum.ID})
			return nil
		},
		Watch:  sum.ID,
		Output: sumOut,
	}
}

// Registry maps a demo name to its builder, keyed by cmd/hgraph's
// <program> argument.
var Registry = map[string]func(ticks int) Graph{
	"counter":     func(ticks int) Graph { return Counter(ticks, 10) },
	"accumulator": func(ticks int) Graph { return Accumulator(ticks, 10) },
}

// Names returns the registered program names, for help text and error
// messages.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
