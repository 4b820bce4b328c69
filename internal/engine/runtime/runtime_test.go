package runtime_test

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/bind"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/runtime"
	"github.com/hhenson/hgraph-go/internal/engine/sched"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// buildDoublingGraph wires a rank-0 source that counts up by one every
// tick and a rank-1 compute node that doubles it, the spec §8 S1 "Scalar
// pipeline" shape: source -> compute -> sink-less observation of the
// compute node's own output.
func buildDoublingGraph(t *testing.T, ticks int) (set *sched.NodeSet, dblID node.ID, out *ts.Scalar[int], wire func(*sched.Engine) diag.Diagnostics) {
	t.Helper()

	srcOut := ts.NewScalar[int](nil)
	src := node.New(1, node.Signature{Name: "counter", Rank: 0}, node.Source, node.Phases{
		Start: func(ctx *node.Context) error {
			ctx.Scheduler.Schedule(1, ctx.Now, "tick")
			return nil
		},
		Eval: func(ctx *node.Context) error {
			srcOut.Set(ctx.Now, srcOut.Value()+1)
			if srcOut.Value() < ticks {
				ctx.Scheduler.Schedule(1, ctx.Now.Add(10), "tick")
			}
			return nil
		},
	})
	src.Output = srcOut

	dblOut := ts.NewScalar[int](nil)
	dbl := node.New(2, node.Signature{Name: "doubler", Rank: 1, Valid: []string{"in"}}, node.Compute, node.Phases{
		Eval: func(ctx *node.Context) error {
			in := ctx.Node.Inputs["in"]
			v := in.Output.(*ts.Scalar[int]).Value()
			dblOut.Set(ctx.Now, v*2)
			return nil
		},
	})
	dbl.Inputs["in"] = bind.NewInput(srcOut, true, bind.Active)
	dbl.Output = dblOut

	set = sched.NewNodeSet(src, dbl)
	wire = func(eng *sched.Engine) diag.Diagnostics {
		srcOut.Node().Subscribe(sched.NodeWake{Engine: eng, NodeID: dbl.ID})
		return nil
	}
	return set, dbl.ID, dblOut, wire
}

func TestRunGraphDrivesNodesToCompletion(t *testing.T) {
	set, _, out, wire := buildDoublingGraph(t, 3)

	cfg := runtime.DefaultConfiguration()
	cfg.StartTime = etime.MinST
	cfg.EndTime = etime.MinST.Add(1000)
	cfg.Wire = wire

	diags := runtime.RunGraph(set, cfg)
	require.False(t, diags.HasErrors(), "%v", diags)
	assert.Equal(t, 6, out.Value(), "3rd tick doubled")
}

func TestEvaluateGraphCollectsObservations(t *testing.T) {
	set, dblID, out, wire := buildDoublingGraph(t, 3)

	cfg := runtime.DefaultConfiguration()
	cfg.StartTime = etime.MinST
	cfg.EndTime = etime.MinST.Add(1000)
	cfg.Wire = wire

	obs, diags := runtime.EvaluateGraph[int](set, dblID, out, cfg)
	require.False(t, diags.HasErrors(), "%v", diags)

	require.Len(t, obs, 3)
	assert.Equal(t, []int{2, 4, 6}, []int{obs[0].Value, obs[1].Value, obs[2].Value})
	assert.True(t, obs[0].At.Before(obs[1].At))
}

func TestRunGraphWithTraceDoesNotAlterBehavior(t *testing.T) {
	set, _, out, wire := buildDoublingGraph(t, 2)

	cfg := runtime.DefaultConfiguration()
	cfg.EndTime = etime.MinST.Add(1000)
	cfg.Trace = true
	cfg.Logger = hclog.NewNullLogger()
	cfg.Wire = wire

	diags := runtime.RunGraph(set, cfg)
	require.False(t, diags.HasErrors(), "%v", diags)
	assert.Equal(t, 4, out.Value())
}

type countingObserver struct {
	evals int
}

func (c *countingObserver) OnNodeStart(etime.Time, *node.Node) {}
func (c *countingObserver) OnNodeStop(etime.Time, *node.Node)  {}
func (c *countingObserver) OnTick(etime.Time)                  {}
func (c *countingObserver) OnNodeEval(etime.Time, *node.Node)  { c.evals++ }

func TestRunGraphInstallsCallerObservers(t *testing.T) {
	set, _, _, wire := buildDoublingGraph(t, 2)
	obs := &countingObserver{}

	cfg := runtime.DefaultConfiguration()
	cfg.EndTime = etime.MinST.Add(1000)
	cfg.Observers = []sched.EngineObserver{obs}
	cfg.Wire = wire

	diags := runtime.RunGraph(set, cfg)
	require.False(t, diags.HasErrors(), "%v", diags)
	assert.Equal(t, 4, obs.evals, "2 ticks x (counter, doubler)")
}
