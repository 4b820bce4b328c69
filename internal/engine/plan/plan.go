// Package plan implements the immutable build-plan descriptor spec §6.1
// defines as the contract between the wiring layer (not part of this
// engine core) and the runtime: node specs, edges, and the rank each node
// is assigned once cycle detection has run. A Plan never changes after
// Build returns. No other engine package reads a Plan: package sched and
// package runtime work on already-built, bound nodes (sched.Nodes).
package plan

import (
	"fmt"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/cycle"
	"github.com/hhenson/hgraph-go/internal/engine/node"
)

// EdgeSpec is one binding between a producer's output path and a
// consumer's input path (spec §6.1: "(src_node_id, output_path,
// dst_node_id, input_path, peered?, active?)").
type EdgeSpec struct {
	Src        node.ID
	OutputPath string
	Dst        node.ID
	InputPath  string
	Peered     bool
	Active     bool

	// Feedback marks an edge that carries a feedback() loop (spec §4.6):
	// its value is delivered on the next instant, so it is
	// exempt from the "src rank < dst rank" ordering invariant and from
	// cycle detection (spec §4.5 "feedback edges break cycles").
	Feedback bool
}

// NodeSpec is one node's static description (spec §6.1: "{id, rank,
// signature, input_bindings, scalar_config, impl_kind}"). Rank starts
// unset (zero) and is filled in by Build once cycle detection has run;
// everything else is supplied by the wiring layer.
type NodeSpec struct {
	ID           node.ID
	Signature    node.Signature
	Category     node.Category
	ScalarConfig map[string]any

	Rank int
}

// Plan is the full immutable build-plan: every node, every edge, and the
// rank assignment. Nested graph builders (map_/switch_ child-graph
// factories, spec §4.6) are not part of a Plan: package nested takes a
// Builder function that returns already-built child nodes, and neither
// package imports the other.
type Plan struct {
	Nodes []NodeSpec
	Edges []EdgeSpec

	byID map[node.ID]int // index into Nodes, for O(1) lookup by ID
}

// NodeByID returns the NodeSpec for id.
func (p *Plan) NodeByID(id node.ID) (NodeSpec, bool) {
	i, ok := p.byID[id]
	if !ok {
		return NodeSpec{}, false
	}
	return p.Nodes[i], true
}

// Build validates and ranks a candidate node/edge set into an immutable
// Plan. It rejects duplicate node IDs, edges referencing unknown nodes,
// and any non-feedback dependency cycle (spec §4.5, via package cycle).
func Build(nodes []NodeSpec, edges []EdgeSpec) (*Plan, diag.Diagnostics) {
	var diags diag.Diagnostics

	p := &Plan{Nodes: nodes, Edges: edges, byID: make(map[node.ID]int, len(nodes))}
	for i, n := range nodes {
		if _, dup := p.byID[n.ID]; dup {
			diags = diags.Append(diag.PlanError("duplicate node id %d in build plan", n.ID))
			continue
		}
		p.byID[n.ID] = i
	}
	if diags.HasErrors() {
		return nil, diags
	}

	deps := make(map[node.ID][]node.ID, len(nodes))
	for _, e := range edges {
		if _, ok := p.byID[e.Src]; !ok {
			diags = diags.Append(diag.PlanError("edge references unknown source node %d", e.Src))
		}
		if _, ok := p.byID[e.Dst]; !ok {
			diags = diags.Append(diag.PlanError("edge references unknown destination node %d", e.Dst))
		}
		if e.Feedback {
			continue
		}
		deps[e.Dst] = append(deps[e.Dst], e.Src)
	}
	if diags.HasErrors() {
		return nil, diags
	}

	ranks, rankDiags := cycle.Check(&planGraph{plan: p, deps: deps})
	diags = diags.Append(rankDiags)
	if diags.HasErrors() {
		return nil, diags
	}

	for i := range p.Nodes {
		r := ranks[p.Nodes[i].ID]
		p.Nodes[i].Rank = r
		p.Nodes[i].Signature.Rank = r
	}

	for _, e := range edges {
		if e.Feedback {
			continue
		}
		src, _ := p.NodeByID(e.Src)
		dst, _ := p.NodeByID(e.Dst)
		if src.Rank >= dst.Rank {
			diags = diags.Append(diag.PlanError(
				"edge %s.%s -> %s.%s does not strictly increase rank (%d >= %d); mark it feedback if this is intentional",
				nodeName(src), e.OutputPath, nodeName(dst), e.InputPath, src.Rank, dst.Rank))
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	return p, diags
}

func nodeName(n NodeSpec) string {
	if n.Signature.Name != "" {
		return n.Signature.Name
	}
	return fmt.Sprintf("node#%d", n.ID)
}

// planGraph adapts a Plan's dependency edges to cycle.Graph.
type planGraph struct {
	plan *Plan
	deps map[node.ID][]node.ID
}

func (g *planGraph) Nodes() []cycle.NodeID {
	ids := make([]cycle.NodeID, len(g.plan.Nodes))
	for i, n := range g.plan.Nodes {
		ids[i] = cycle.NodeID(n.ID)
	}
	return ids
}

func (g *planGraph) DependsOn(id cycle.NodeID) []cycle.NodeID {
	srcs := g.deps[node.ID(id)]
	out := make([]cycle.NodeID, len(srcs))
	for i, s := range srcs {
		out[i] = cycle.NodeID(s)
	}
	return out
}

func (g *planGraph) Name(id cycle.NodeID) string {
	n, ok := g.plan.NodeByID(node.ID(id))
	if !ok {
		return fmt.Sprintf("node#%d", id)
	}
	return nodeName(n)
}
