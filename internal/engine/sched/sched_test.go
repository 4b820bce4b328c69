package sched_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/bind"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/sched"
	"github.com/hhenson/hgraph-go/internal/engine/service"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// fixedNodes is a static, already-ranked node set for engine tests.
type fixedNodes struct {
	ordered []*node.Node
	byID    map[node.ID]*node.Node
}

func newFixedNodes(ns ...*node.Node) *fixedNodes {
	fn := &fixedNodes{byID: map[node.ID]*node.Node{}}
	for _, n := range ns {
		fn.byID[n.ID] = n
	}
	fn.ordered = ns // already supplied in rank order by the test
	return fn
}

func (fn *fixedNodes) ByRank() []*node.Node { return fn.ordered }
func (fn *fixedNodes) ByID(id node.ID) (*node.Node, bool) {
	n, ok := fn.byID[id]
	return n, ok
}

func TestEngineRunsSourceComputeSinkPipeline(t *testing.T) {
	values := []int{10, 20, 30}

	srcOut := ts.NewScalar[int](nil)
	srcIdx := 0
	src := node.New(1, node.Signature{Name: "src"}, node.Source, node.Phases{
		Start: func(ctx *node.Context) error {
			ctx.Scheduler.Schedule(1, ctx.Now, "")
			return nil
		},
		Eval: func(ctx *node.Context) error {
			srcOut.Set(ctx.Now, values[srcIdx])
			srcIdx++
			if srcIdx < len(values) {
				ctx.Scheduler.Schedule(1, ctx.Now.Add(1), "")
			}
			return nil
		},
	})
	src.Output = srcOut

	computeOut := ts.NewScalar[int](nil)
	compute := node.New(2, node.Signature{Name: "double", Valid: []string{"in"}, Active: []string{"in"}}, node.Compute, node.Phases{
		Eval: func(ctx *node.Context) error {
			in := ctx.Node.Inputs["in"].Output.(*ts.Scalar[int])
			computeOut.Set(ctx.Now, in.Value()*2)
			return nil
		},
	})
	compute.Inputs["in"] = bind.NewInput(srcOut, true, bind.Active)
	compute.Output = computeOut

	var observed []int
	sink := node.New(3, node.Signature{Name: "sink", Valid: []string{"in"}, Active: []string{"in"}}, node.Sink, node.Phases{
		Eval: func(ctx *node.Context) error {
			in := ctx.Node.Inputs["in"].Output.(*ts.Scalar[int])
			observed = append(observed, in.Value())
			return nil
		},
	})
	sink.Inputs["in"] = bind.NewInput(computeOut, true, bind.Active)

	engine := sched.New(newFixedNodes(src, compute, sink), sched.Simulation, nil)
	srcOut.Node().Subscribe(sched.NodeWake{Engine: engine, NodeID: compute.ID})
	computeOut.Node().Subscribe(sched.NodeWake{Engine: engine, NodeID: sink.ID})

	diags := engine.Run(etime.MinST, etime.MinST.Add(10))
	require.False(t, diags.HasErrors())
	assert.Equal(t, []int{20, 40, 60}, observed)
}

func TestEngineStopsWhenSinkRequestsStop(t *testing.T) {
	out := ts.NewScalar[int](nil)
	tick := 0
	src := node.New(1, node.Signature{Name: "src"}, node.Source, node.Phases{
		Start: func(ctx *node.Context) error {
			ctx.Scheduler.Schedule(1, ctx.Now, "")
			return nil
		},
		Eval: func(ctx *node.Context) error {
			tick++
			out.Set(ctx.Now, tick)
			ctx.Scheduler.Schedule(1, ctx.Now.Add(1), "")
			return nil
		},
	})
	src.Output = out

	stopAfter := 2
	evalCount := 0
	sink := node.New(2, node.Signature{Name: "sink", Valid: []string{"in"}, Active: []string{"in"}}, node.Sink, node.Phases{
		Eval: func(ctx *node.Context) error {
			evalCount++
			if evalCount >= stopAfter {
				ctx.Scheduler.RequestStop()
			}
			return nil
		},
	})
	sink.Inputs["in"] = bind.NewInput(out, true, bind.Active)

	engine := sched.New(newFixedNodes(src, sink), sched.Simulation, nil)
	out.Node().Subscribe(sched.NodeWake{Engine: engine, NodeID: sink.ID})

	diags := engine.Run(etime.MinST, etime.MaxET)
	require.False(t, diags.HasErrors())
	assert.Equal(t, stopAfter, evalCount)
}

// TestEngineRealTimePushSourceKeepsLoopAliveAndDelivers exercises spec §8
// S5: a REAL_TIME engine whose only node is a push source must not exit
// just because the pending queue starts out empty (spec §4.5 termination
// clause (c): "no pending and no live push source"), must wait for a
// foreign-thread Send the way service.PushQueue's Send is meant to be
// called, and must apply the delivered value.
func TestEngineRealTimePushSourceKeepsLoopAliveAndDelivers(t *testing.T) {
	out := ts.NewScalar[int](nil)
	pushNode := node.New(1, node.Signature{Name: "push"}, node.PushSource, node.Phases{})
	pushNode.Output = out

	engine := sched.New(newFixedNodes(pushNode), sched.RealTime, nil)
	queue := service.NewPushQueue[int](4, engine.PushWake(pushNode.ID))
	pushNode.Phases.Eval = func(ctx *node.Context) error {
		for _, rec := range queue.Drain() {
			out.Set(rec.At, rec.Value)
		}
		return nil
	}
	engine.RegisterPushSource()

	done := make(chan diag.Diagnostics, 1)
	go func() {
		done <- engine.Run(etime.MinST, etime.MaxET)
	}()

	// Run's loop must still be blocked waiting for the push, not exited,
	// at this point: nothing was ever scheduled before Send.
	require.NoError(t, queue.Send(42))

	require.Eventually(t, func() bool {
		return out.Valid() && out.Value() == 42
	}, time.Second, time.Millisecond, "push value must be applied once delivered")

	engine.UnregisterPushSource()
	engine.RequestStop()

	select {
	case diags := <-done:
		require.False(t, diags.HasErrors())
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after RequestStop")
	}
}
