package cycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/engine/cycle"
)

// edgeGraph is a plain adjacency-list Graph for testing: edges[n] lists
// the nodes n depends on.
type edgeGraph struct {
	ids   []cycle.NodeID
	edges map[cycle.NodeID][]cycle.NodeID
	names map[cycle.NodeID]string
}

func (g *edgeGraph) Nodes() []cycle.NodeID                    { return g.ids }
func (g *edgeGraph) DependsOn(id cycle.NodeID) []cycle.NodeID { return g.edges[id] }
func (g *edgeGraph) Name(id cycle.NodeID) string              { return g.names[id] }

func TestCheckRanksLinearChain(t *testing.T) {
	g := &edgeGraph{
		ids: []cycle.NodeID{1, 2, 3},
		edges: map[cycle.NodeID][]cycle.NodeID{
			1: {},
			2: {1},
			3: {2},
		},
		names: map[cycle.NodeID]string{1: "a", 2: "b", 3: "c"},
	}
	ranks, diags := cycle.Check(g)
	require.False(t, diags.HasErrors())
	assert.Equal(t, 0, ranks[1])
	assert.Equal(t, 1, ranks[2])
	assert.Equal(t, 2, ranks[3])
}

func TestCheckRanksDiamond(t *testing.T) {
	g := &edgeGraph{
		ids: []cycle.NodeID{1, 2, 3, 4},
		edges: map[cycle.NodeID][]cycle.NodeID{
			1: {},
			2: {1},
			3: {1},
			4: {2, 3},
		},
		names: map[cycle.NodeID]string{1: "src", 2: "left", 3: "right", 4: "join"},
	}
	ranks, diags := cycle.Check(g)
	require.False(t, diags.HasErrors())
	assert.Equal(t, 0, ranks[1])
	assert.Equal(t, 1, ranks[2])
	assert.Equal(t, 1, ranks[3])
	assert.Equal(t, 2, ranks[4])
}

func TestCheckDetectsCycle(t *testing.T) {
	g := &edgeGraph{
		ids: []cycle.NodeID{1, 2},
		edges: map[cycle.NodeID][]cycle.NodeID{
			1: {2},
			2: {1},
		},
		names: map[cycle.NodeID]string{1: "a", 2: "b"},
	}
	_, diags := cycle.Check(g)
	require.True(t, diags.HasErrors())
}
