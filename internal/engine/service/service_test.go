package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/service"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

func buildEchoService(path service.Path) (*node.Node, ts.Output, error) {
	out := ts.NewScalar[string](nil)
	n := node.New(1, node.Signature{Name: string(path), Rank: 0}, node.Compute, node.Phases{
		Start: func(ctx *node.Context) error {
			out.Set(ctx.Now, string(path))
			return nil
		},
	})
	n.Output = out
	return n, out, nil
}

func TestRegistryBuildsOncePerPathAndMultiplexesSubscribers(t *testing.T) {
	built := 0
	build := func(path service.Path) (*node.Node, ts.Output, error) {
		built++
		return buildEchoService(path)
	}

	r := service.NewRegistry()
	r.Register("svc/a", build)
	n1, out1, err := r.Resolve("svc/a", "subA")
	require.NoError(t, err)
	n2, out2, err := r.Resolve("svc/a", "subB")
	require.NoError(t, err)

	assert.Equal(t, 1, built, "service graph built once per path")
	assert.Same(t, n1, n2)
	assert.Same(t, out1, out2)
}

func TestRegistryReleaseReportsLastSubscriber(t *testing.T) {
	r := service.NewRegistry()
	r.Register("svc/a", buildEchoService)
	_, _, err := r.Resolve("svc/a", "subA")
	require.NoError(t, err)
	_, _, err = r.Resolve("svc/a", "subB")
	require.NoError(t, err)

	assert.False(t, r.Release("svc/a", "subA"))
	assert.True(t, r.Release("svc/a", "subB"), "last subscriber releasing tears down the instance")
	assert.False(t, r.Release("svc/a", "subB"), "already released")
}

func TestRegistryWarmUpStartsEveryService(t *testing.T) {
	r := service.NewRegistry()
	r.Register("svc/a", buildEchoService)
	_, out, err := r.Resolve("svc/a", "sub")
	require.NoError(t, err)

	require.NoError(t, r.WarmUp(etime.MinST, nil))
	assert.Equal(t, "svc/a", out.(*ts.Scalar[string]).Value())
}

func TestRegistryResolveUnregisteredPathIsServiceError(t *testing.T) {
	r := service.NewRegistry()
	_, _, err := r.Resolve("svc/never-registered", "sub")
	require.Error(t, err)

	var d *diag.Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diag.KindPlan, d.Kind, "ServiceError is always a PlanError per spec")
}

func TestPushQueueSendDrainAndCloseRejectsFurtherSends(t *testing.T) {
	woke := 0
	q := service.NewPushQueue[int](4, func(etime.Time) { woke++ })

	require.NoError(t, q.Send(1))
	require.NoError(t, q.Send(2))
	assert.Equal(t, 2, woke)

	recs := q.Drain()
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Value)
	assert.Equal(t, 2, recs[1].Value)
	assert.True(t, recs[0].At.Before(recs[1].At) || recs[0].At == recs[1].At)

	assert.Empty(t, q.Drain(), "drain is non-blocking and empties the queue")

	q.Close()
	err := q.Send(3)
	require.Error(t, err)
}

func TestAdaptorAppliesDrainedRecordsInOrder(t *testing.T) {
	var seen []int
	a := service.NewAdaptor[int](4, nil, func(_ etime.Time, v int) {
		seen = append(seen, v)
	})

	require.NoError(t, a.Push.Send(10))
	require.NoError(t, a.Push.Send(20))
	a.Apply()

	assert.Equal(t, []int{10, 20}, seen)
}
