package demo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/demo"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/runtime"
)

func TestNamesIsSortedAndMatchesRegistry(t *testing.T) {
	names := demo.Names()
	assert.Equal(t, []string{"accumulator", "counter"}, names)
}

func TestCounterDoublesEachTick(t *testing.T) {
	g := demo.Counter(3, 10)

	cfg := runtime.DefaultConfiguration()
	cfg.EndTime = etime.MinST.Add(1000)
	cfg.Wire = g.Wire

	obs, diags := runtime.EvaluateGraph[int](g.Nodes, g.Watch, g.Output, cfg)
	require.False(t, diags.HasErrors(), "%v", diags)
	require.Len(t, obs, 3)
	assert.Equal(t, []int{2, 4, 6}, []int{obs[0].Value, obs[1].Value, obs[2].Value})
}

func TestAccumulatorSumsAcrossTicks(t *testing.T) {
	g := demo.Accumulator(4, 10)

	cfg := runtime.DefaultConfiguration()
	cfg.EndTime = etime.MinST.Add(1000)
	cfg.Wire = g.Wire

	obs, diags := runtime.EvaluateGraph[int](g.Nodes, g.Watch, g.Output, cfg)
	require.False(t, diags.HasErrors(), "%v", diags)
	require.Len(t, obs, 4)
	assert.Equal(t, []int{1, 3, 6, 10}, []int{obs[0].Value, obs[1].Value, obs[2].Value, obs[3].Value})
}
