package node_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/bind"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

func TestReadyRequiresValidInputs(t *testing.T) {
	out := ts.NewScalar[int](nil)
	n := node.New(1, node.Signature{Name: "n", Valid: []string{"a"}}, node.Compute, node.Phases{})
	n.Inputs["a"] = bind.NewInput(out, true, bind.Active)

	ready, err := n.Ready(etime.MinST, false)
	require.NoError(t, err)
	assert.False(t, ready, "input never set, so not valid")

	out.Set(etime.MinST, 1)
	ready, err = n.Ready(etime.MinST, false)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestReadyRequiresActiveModification(t *testing.T) {
	out := ts.NewScalar[int](nil)
	t0 := etime.MinST
	out.Set(t0, 1)

	n := node.New(1, node.Signature{Name: "n", Valid: []string{"a"}, Active: []string{"a"}}, node.Compute, node.Phases{})
	n.Inputs["a"] = bind.NewInput(out, true, bind.Active)

	ready, err := n.Ready(t0, false)
	require.NoError(t, err)
	assert.True(t, ready, "ticked this instant")

	t1 := t0.Add(etime.MinDelta)
	ready, err = n.Ready(t1, false)
	require.NoError(t, err)
	assert.False(t, ready, "no longer modified at t1")

	ready, err = n.Ready(t1, true)
	require.NoError(t, err)
	assert.True(t, ready, "explicit schedule bypasses the active-modification clause")
}

func TestReadyAllValidForContainers(t *testing.T) {
	schema := ts.Schema{Order: []string{"a", "b"}}
	b := ts.NewBundle(nil, schema, func(name string, child *ts.Node) ts.Output {
		return ts.NewScalar[int](child)
	})
	t0 := etime.MinST
	fa, err := ts.Field[*ts.Scalar[int]](b, "a")
	require.NoError(t, err)
	fa.Set(t0, 1)

	n := node.New(1, node.Signature{Name: "n", AllValid: []string{"bundle"}}, node.Compute, node.Phases{})
	n.Inputs["bundle"] = bind.NewInput(b, true, bind.Passive)

	ready, err := n.Ready(t0, true)
	require.NoError(t, err)
	assert.False(t, ready, "b field never set, so not all valid")

	fb, err := ts.Field[*ts.Scalar[int]](b, "b")
	require.NoError(t, err)
	fb.Set(t0, 2)
	ready, err = n.Ready(t0, true)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestPhasesRunOnceAndWrapErrors(t *testing.T) {
	starts, stops := 0, 0
	n := node.New(1, node.Signature{Name: "n"}, node.Compute, node.Phases{
		Start: func(ctx *node.Context) error { starts++; return nil },
		Eval:  func(ctx *node.Context) error { return errors.New("boom") },
		Stop:  func(ctx *node.Context) error { stops++; return nil },
	})
	ctx := &node.Context{Now: etime.MinST}

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Start(ctx), "second start is a no-op")
	assert.Equal(t, 1, starts)

	err := n.Eval(ctx)
	require.Error(t, err)

	require.NoError(t, n.Stop(ctx))
	require.NoError(t, n.Stop(ctx), "second stop is a no-op")
	assert.Equal(t, 1, stops)
}

func TestRecoverRoutesEvalErrorToErrorOutput(t *testing.T) {
	errOut := ts.NewScalar[error](nil)
	n := node.New(1, node.Signature{Name: "n", Recover: true}, node.Compute, node.Phases{
		Eval: func(ctx *node.Context) error { return errors.New("boom") },
	})
	n.ErrorOutput = errOut

	err := n.Eval(&node.Context{Now: etime.MinST})
	require.NoError(t, err, "recover=true swallows the error at the Eval boundary")
	require.True(t, errOut.Valid())
	assert.EqualError(t, errOut.Value(), "boom")
}

func TestEvalRecoversPanicAsNodeErrorWithStack(t *testing.T) {
	n := node.New(1, node.Signature{Name: "boomer"}, node.Compute, node.Phases{
		Eval: func(ctx *node.Context) error { panic("kaboom") },
	})

	err := n.Eval(&node.Context{Now: etime.MinST})
	require.Error(t, err)

	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diag.KindNode, d.Kind)
	assert.Equal(t, "boomer", d.NodeID)
	assert.Contains(t, d.Summary, "kaboom")
	assert.NotEmpty(t, d.Stack, "a recovered panic must carry a stack trace")
}

func TestStartAndStopRecoverPanics(t *testing.T) {
	start := node.New(1, node.Signature{Name: "n"}, node.Compute, node.Phases{
		Start: func(ctx *node.Context) error { panic("start boom") },
	})
	err := start.Start(&node.Context{Now: etime.MinST})
	require.Error(t, err)

	stop := node.New(1, node.Signature{Name: "n"}, node.Compute, node.Phases{
		Stop: func(ctx *node.Context) error { panic("stop boom") },
	})
	require.NoError(t, stop.Start(&node.Context{Now: etime.MinST}))
	err = stop.Stop(&node.Context{Now: etime.MinST})
	require.Error(t, err)
}

func TestSourceNodeOnlyReadyWhenExplicitlyDue(t *testing.T) {
	n := node.New(1, node.Signature{Name: "gen"}, node.Source, node.Phases{})

	ready, err := n.Ready(etime.MinST, false)
	require.NoError(t, err)
	assert.False(t, ready)

	ready, err = n.Ready(etime.MinST, true)
	require.NoError(t, err)
	assert.True(t, ready)
}
