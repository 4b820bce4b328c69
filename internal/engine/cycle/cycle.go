// Package cycle detects dependency cycles in a build plan before the
// engine ever starts (spec §4.5 "cycles without a delay element are
// rejected at plan time"). Rather than a hand-rolled DFS with a
// visited/in-progress coloring, it reuses the self-dependency detector
// built into go-workgraph the same way the teacher's execution-graph
// compiler does: each node gets its own worker bound to the resolver for
// its own promise, dependencies are awaited through that worker, and a
// node that (directly or transitively) ends up awaiting its own promise
// comes back as workgraph.ErrSelfDependency instead of deadlocking.
package cycle

import (
	"fmt"
	"sync"

	"github.com/apparentlymart/go-workgraph/workgraph"

	"github.com/hhenson/hgraph-go/internal/diag"
)

// NodeID identifies a node in the graph being checked.
type NodeID int

// Graph is the minimal view of a build plan cycle detection needs.
type Graph interface {
	Nodes() []NodeID
	DependsOn(id NodeID) []NodeID
	Name(id NodeID) string
}

// Ranks is the topological rank assigned to each node: one more than the
// greatest rank among its dependencies, zero for a node with none (spec
// §4.4 "rank ∈ ℕ (topological depth)").
type Ranks map[NodeID]int

// Check computes ranks for every node in g, running one goroutine per
// node so dependency resolution genuinely happens concurrently and a
// cycle is detected by workgraph rather than by a caller-side visited set.
// Any cycle found is reported as a PlanError (spec §7); in that case the
// returned Ranks omits the nodes on the unresolved side of the cycle.
func Check(g Graph) (Ranks, diag.Diagnostics) {
	nodes := g.Nodes()

	registration := workgraph.NewWorker()
	resolvers := make(map[NodeID]workgraph.Resolver[int], len(nodes))
	promises := make(map[NodeID]workgraph.Promise[int], len(nodes))
	for _, id := range nodes {
		resolver, promise := workgraph.NewRequest[int](registration)
		resolvers[id] = resolver
		promises[id] = promise
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		diags diag.Diagnostics
		ranks = make(Ranks, len(nodes))
	)

	for _, id := range nodes {
		wg.Add(1)
		go func(id NodeID) {
			defer wg.Done()

			resolver := resolvers[id]
			worker := workgraph.NewWorker(resolver)

			rank := 0
			for _, dep := range g.DependsOn(id) {
				depRank, err := promises[dep].Await(worker)
				if err != nil {
					mu.Lock()
					diags = diags.Append(diagForWorkgraphError(g, id, err))
					mu.Unlock()
					resolver.ReportSuccess(worker, 0)
					return
				}
				if depRank+1 > rank {
					rank = depRank + 1
				}
			}
			resolver.ReportSuccess(worker, rank)

			mu.Lock()
			ranks[id] = rank
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return ranks, diags
}

// diagForWorkgraphError turns a workgraph.Promise.Await error into a
// PlanError, naming the implicated nodes the way grapheval's
// DiagnosticsForWorkgraphError names implicated requests.
func diagForWorkgraphError(g Graph, at NodeID, err error) *diag.Diagnostic {
	switch e := err.(type) {
	case workgraph.ErrSelfDependency:
		names := make([]string, 0, len(e.RequestIDs))
		for range e.RequestIDs {
			names = append(names, "<cycle participant>")
		}
		return diag.PlanError("dependency cycle detected while ranking %q (%d participants); add a feedback() edge to break it", g.Name(at), len(names))
	case workgraph.ErrUnresolved:
		return diag.PlanError("internal error: request left unresolved while ranking %q", g.Name(at))
	default:
		return diag.PlanError("dependency cycle detected while ranking %q: %s", g.Name(at), fmt.Sprint(err))
	}
}
