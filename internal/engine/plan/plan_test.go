package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/plan"
)

func TestBuildAssignsRanks(t *testing.T) {
	nodes := []plan.NodeSpec{
		{ID: 1, Signature: node.Signature{Name: "src"}, Category: node.Source},
		{ID: 2, Signature: node.Signature{Name: "mid"}, Category: node.Compute},
		{ID: 3, Signature: node.Signature{Name: "sink"}, Category: node.Sink},
	}
	edges := []plan.EdgeSpec{
		{Src: 1, Dst: 2, OutputPath: "out", InputPath: "in", Peered: true, Active: true},
		{Src: 2, Dst: 3, OutputPath: "out", InputPath: "in", Peered: true, Active: true},
	}

	p, diags := plan.Build(nodes, edges)
	require.False(t, diags.HasErrors())
	n1, _ := p.NodeByID(1)
	n2, _ := p.NodeByID(2)
	n3, _ := p.NodeByID(3)
	assert.Equal(t, 0, n1.Rank)
	assert.Equal(t, 1, n2.Rank)
	assert.Equal(t, 2, n3.Rank)
}

func TestBuildRejectsCycleWithoutFeedback(t *testing.T) {
	nodes := []plan.NodeSpec{
		{ID: 1, Signature: node.Signature{Name: "a"}, Category: node.Compute},
		{ID: 2, Signature: node.Signature{Name: "b"}, Category: node.Compute},
	}
	edges := []plan.EdgeSpec{
		{Src: 1, Dst: 2, OutputPath: "out", InputPath: "in", Peered: true, Active: true},
		{Src: 2, Dst: 1, OutputPath: "out", InputPath: "in", Peered: true, Active: true},
	}

	_, diags := plan.Build(nodes, edges)
	require.True(t, diags.HasErrors())
}

func TestBuildAllowsFeedbackCycle(t *testing.T) {
	nodes := []plan.NodeSpec{
		{ID: 1, Signature: node.Signature{Name: "a"}, Category: node.Compute},
		{ID: 2, Signature: node.Signature{Name: "b"}, Category: node.Compute},
	}
	edges := []plan.EdgeSpec{
		{Src: 1, Dst: 2, OutputPath: "out", InputPath: "in", Peered: true, Active: true},
		{Src: 2, Dst: 1, OutputPath: "out", InputPath: "in", Feedback: true},
	}

	p, diags := plan.Build(nodes, edges)
	require.False(t, diags.HasErrors())
	n1, _ := p.NodeByID(1)
	n2, _ := p.NodeByID(2)
	assert.Equal(t, 0, n1.Rank)
	assert.Equal(t, 1, n2.Rank)
}

func TestBuildRejectsUnknownNode(t *testing.T) {
	nodes := []plan.NodeSpec{{ID: 1, Signature: node.Signature{Name: "a"}, Category: node.Compute}}
	edges := []plan.EdgeSpec{{Src: 1, Dst: 99, OutputPath: "out", InputPath: "in", Peered: true}}

	_, diags := plan.Build(nodes, edges)
	require.True(t, diags.HasErrors())
}
