package bind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/engine/bind"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

type fakeSub struct {
	woken []etime.Time
}

func (f *fakeSub) Wake(t etime.Time) { f.woken = append(f.woken, t) }

func TestInputActivePassiveSubscription(t *testing.T) {
	out := ts.NewScalar[int](nil)
	sub := &fakeSub{}

	passive := bind.NewInput(out, true, bind.Passive)
	passive.Subscribe(sub)
	t0 := etime.MinST
	out.Set(t0, 1)
	assert.Empty(t, sub.woken, "passive input never subscribes, so no wake")

	active := bind.NewInput(out, true, bind.Active)
	active.Subscribe(sub)
	out.Set(t0.Add(1), 2)
	assert.Len(t, sub.woken, 1)
}

func TestInputSetActivationResubscribes(t *testing.T) {
	out := ts.NewScalar[int](nil)
	sub := &fakeSub{}
	in := bind.NewInput(out, true, bind.Passive)

	in.SetActivation(sub, bind.Active)
	t0 := etime.MinST
	out.Set(t0, 1)
	assert.Len(t, sub.woken, 1)

	in.SetActivation(sub, bind.Passive)
	out.Set(t0.Add(1), 2)
	assert.Len(t, sub.woken, 1, "no further wakes once deactivated")
}

func TestRefBoundFollowsRebind(t *testing.T) {
	ref := ts.NewRef(nil, ts.KindTS)
	first := ts.NewScalar[int](nil)
	second := ts.NewScalar[int](nil)
	t0 := etime.MinST
	require.NoError(t, ref.Rebind(t0, first))

	sub := &fakeSub{}
	rb := bind.NewRefBound(ref, sub, bind.Active)
	assert.Same(t, ts.Output(first), rb.Target())

	first.Set(t0.Add(1), 10)
	assert.Len(t, sub.woken, 1, "wake fires through the currently bound target")

	require.NoError(t, ref.Rebind(t0.Add(2), second))
	rb.Follow()
	assert.Same(t, ts.Output(second), rb.Target())

	first.Set(t0.Add(3), 20)
	assert.Len(t, sub.woken, 1, "no longer subscribed to the old target")

	second.Set(t0.Add(4), 30)
	assert.Len(t, sub.woken, 2, "now woken through the new target")
}

func TestRefBoundPassiveNeverSubscribes(t *testing.T) {
	ref := ts.NewRef(nil, ts.KindTS)
	target := ts.NewScalar[int](nil)
	t0 := etime.MinST
	require.NoError(t, ref.Rebind(t0, target))

	sub := &fakeSub{}
	rb := bind.NewRefBound(ref, sub, bind.Passive)
	target.Set(t0.Add(1), 5)
	assert.Empty(t, sub.woken)
	assert.Equal(t, 5, rb.Target().(*ts.Scalar[int]).Value())
}
