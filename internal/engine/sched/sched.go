// Package sched implements the engine main loop described in spec §4.5: a
// ranked pending queue ordered by (time, rank, node_id), SIMULATION and
// REAL_TIME modes, and the batch-drain/evaluate/re-sort cycle that gives
// later ranks within the same instant visibility into earlier ranks'
// writes.
//
// The priority queue is a container/heap.Interface the way the teacher's
// pack uses one for a timer wheel (see gaio's watcher.go in the retrieved
// examples): no third-party priority-queue library appears anywhere in
// the pack, so this one component is grounded on the standard library by
// necessity rather than ecosystem convention (see DESIGN.md).
package sched

import (
	"container/heap"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
)

// Mode selects how the engine advances its logical clock (spec §4.5).
type Mode int

const (
	Simulation Mode = iota
	RealTime
)

// entry is one (time, rank, node_id) pending-queue item.
type entry struct {
	at     etime.Time
	rank   int
	nodeID node.ID
	tag    string
	idx    int
}

// pendingQueue is a container/heap ordered first by time, then rank, then
// node id -- the tiebreak spec §4.5 requires ("ascending (rank, node_id)
// order" within a drained instant).
type pendingQueue []*entry

func (q pendingQueue) Len() int { return len(q) }
func (q pendingQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	if q[i].rank != q[j].rank {
		return q[i].rank < q[j].rank
	}
	return q[i].nodeID < q[j].nodeID
}
func (q pendingQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].idx, q[j].idx = i, j
}
func (q *pendingQueue) Push(x any) {
	e := x.(*entry)
	e.idx = len(*q)
	*q = append(*q, e)
}
func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Nodes is the subset of a built plan the engine needs at runtime: every
// live node in ascending rank order, and a lookup by id. A wiring layer
// builds it once nodes are instantiated and bound; package runtime takes
// it as given.
type Nodes interface {
	ByRank() []*node.Node
	ByID(id node.ID) (*node.Node, bool)
}

// NodeSet is the mutable Nodes implementation the engine uses by default
// and the one package nested grows at runtime when map_/switch_ build a
// child graph (spec §4.6: "child graphs share the engine's time and rank
// space; their nodes are assigned ranks above the map node's rank").
// ordered is kept sorted by rank, re-sorted lazily on Add since inserts
// are rare relative to Ready/Eval calls.
type NodeSet struct {
	ordered []*node.Node
	byID    map[node.ID]*node.Node
	dirty   bool
}

// NewNodeSet builds a NodeSet from an initial, already-bound node list.
func NewNodeSet(ns ...*node.Node) *NodeSet {
	s := &NodeSet{byID: map[node.ID]*node.Node{}}
	s.Add(ns...)
	return s
}

// Add inserts new nodes (e.g. a freshly built map_/switch_ child graph).
func (s *NodeSet) Add(ns ...*node.Node) {
	for _, n := range ns {
		s.byID[n.ID] = n
		s.ordered = append(s.ordered, n)
	}
	s.dirty = true
}

// Remove drops nodes (e.g. a switch_ branch being torn down, spec §4.6
// "on key change, stop old... "). Callers must have already run Stop on
// each node in reverse rank order before calling this.
func (s *NodeSet) Remove(ids ...node.ID) {
	dead := make(map[node.ID]bool, len(ids))
	for _, id := range ids {
		dead[id] = true
		delete(s.byID, id)
	}
	kept := s.ordered[:0]
	for _, n := range s.ordered {
		if !dead[n.ID] {
			kept = append(kept, n)
		}
	}
	s.ordered = kept
}

func (s *NodeSet) ByRank() []*node.Node {
	if s.dirty {
		sort.SliceStable(s.ordered, func(i, j int) bool {
			return s.ordered[i].Sig.Rank < s.ordered[j].Sig.Rank
		})
		s.dirty = false
	}
	return s.ordered
}

func (s *NodeSet) ByID(id node.ID) (*node.Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// EngineObserver is the debug/profiling hook set GraphConfiguration.
// observers wires in (spec §6.2 "observers: [EngineObserver]"). This is a
// SUPPLEMENTED FEATURE per SPEC_FULL.md: present in original_source/ as
// the original library's debug/profiling hooks, named but not specified
// in spec.md's terse prose.
type EngineObserver interface {
	OnNodeStart(now etime.Time, n *node.Node)
	OnNodeEval(now etime.Time, n *node.Node)
	OnNodeStop(now etime.Time, n *node.Node)
	OnTick(now etime.Time)
}

// Engine runs the main loop over a fixed node set.
type Engine struct {
	nodes Nodes
	mode  Mode
	log   hclog.Logger

	now       etime.Time
	pending   pendingQueue
	byTag     map[tagKey]*entry
	wakeCh    chan struct{}
	stop      bool
	wallBase  time.Time // REAL_TIME: wall-clock instant corresponding to now
	observers []EngineObserver

	// livePush counts currently-registered push sources (spec §4.5 engine
	// state: "a set of active push queues"). Run's termination check
	// (spec §4.5 clause (c): "no pending and no live push source") treats
	// an empty pending queue as a reason to keep running, not stop, while
	// this is > 0. atomic because Register/Unregister can be called from
	// whatever goroutine owns the push source's lifecycle, independent of
	// the engine thread.
	livePush atomic.Int64
}

type tagKey struct {
	node node.ID
	tag  string
}

// New constructs an Engine. log may be nil, in which case logging is
// discarded.
func New(nodes Nodes, mode Mode, log hclog.Logger) *Engine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Engine{
		nodes:  nodes,
		mode:   mode,
		log:    log,
		now:    etime.MinST,
		byTag:  map[tagKey]*entry{},
		wakeCh: make(chan struct{}, 1),
	}
}

// Now returns the engine's current logical time (MinST until Run or
// Restore sets it).
func (e *Engine) Now() etime.Time { return e.now }

// SetObservers installs the EngineObserver set GraphConfiguration.observers
// configures (spec §6.2). Replaces any previously set observers.
func (e *Engine) SetObservers(obs ...EngineObserver) { e.observers = obs }

func (e *Engine) notifyStart(n *node.Node) {
	for _, o := range e.observers {
		o.OnNodeStart(e.now, n)
	}
}

func (e *Engine) notifyEval(n *node.Node) {
	for _, o := range e.observers {
		o.OnNodeEval(e.now, n)
	}
}

func (e *Engine) notifyStop(n *node.Node) {
	for _, o := range e.observers {
		o.OnNodeStop(e.now, n)
	}
}

func (e *Engine) notifyTick() {
	for _, o := range e.observers {
		o.OnTick(e.now)
	}
}

// Schedule enqueues a future wake for nodeID at at, satisfying
// node.Scheduler. An identical (nodeID, tag) pair replaces any
// previously-scheduled entry (spec §4.5 "identical (node, tag) replace
// previous"), except the empty tag, which never coalesces: every
// activation wake (empty tag) is independent because multiple distinct
// inputs can each demand a wake at the same instant.
func (e *Engine) Schedule(nodeID node.ID, at etime.Time, tag string) {
	if tag != "" {
		key := tagKey{nodeID, tag}
		if old, ok := e.byTag[key]; ok {
			old.at = at
			heap.Fix(&e.pending, old.idx)
			e.notifyWake()
			return
		}
		en := &entry{at: at, nodeID: nodeID, tag: tag, rank: e.rankOf(nodeID)}
		e.byTag[key] = en
		heap.Push(&e.pending, en)
		e.notifyWake()
		return
	}
	heap.Push(&e.pending, &entry{at: at, nodeID: nodeID, rank: e.rankOf(nodeID)})
	e.notifyWake()
}

// RequestStop asks the engine to terminate at the end of the current
// batch (spec §4.5 termination condition (b)). Also wakes a loop
// currently blocked waiting for a live push source or a REAL_TIME timer,
// so the stop takes effect immediately rather than at the next
// independently-arriving event.
func (e *Engine) RequestStop() {
	e.stop = true
	e.notifyWake()
}

// RegisterPushSource marks one push source (a service.PushQueue or
// Adaptor) as live, so Run's termination check treats an otherwise-empty
// pending queue as "still has work to wait for" rather than "done" (spec
// §4.5 clause (c)). Call once per source before Run starts; call
// UnregisterPushSource once the source is permanently closed.
func (e *Engine) RegisterPushSource() { e.livePush.Add(1) }

// UnregisterPushSource reverses RegisterPushSource.
func (e *Engine) UnregisterPushSource() { e.livePush.Add(-1) }

func (e *Engine) hasLivePushSource() bool { return e.livePush.Load() > 0 }

// PushWake returns the wake callback a service.PushQueue/Adaptor should be
// constructed with so that sending a value schedules nodeID directly at
// the record's applied time (spec §4.7: "the engine wakes, drains,
// applies, and schedules observers"), rather than merely nudging
// waitUntil's timer. The owning node's own Eval phase is expected to
// drain the queue/adaptor and apply its records to the node's output.
func (e *Engine) PushWake(nodeID node.ID) func(etime.Time) {
	return func(at etime.Time) { e.Schedule(nodeID, at, "") }
}

func (e *Engine) rankOf(id node.ID) int {
	if n, ok := e.nodes.ByID(id); ok {
		return n.Sig.Rank
	}
	return 0
}

func (e *Engine) notifyWake() {
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

// Run drives the main loop from start to end (inclusive), starting every
// node in rank order before the first eval and stopping every node in
// reverse rank order once the loop exits (spec §4.4 phase ordering).
func (e *Engine) Run(start, end etime.Time) diag.Diagnostics {
	var diags diag.Diagnostics
	e.now = start

	ordered := e.nodes.ByRank()
	ctx := &node.Context{Scheduler: e, Logger: e.log}
	for _, n := range ordered {
		ctx.Now = e.now
		if err := n.Start(ctx); err != nil {
			diags = diags.Append(err)
		}
		e.notifyStart(n)
	}
	if diags.HasErrors() {
		return diags
	}

	for {
		if e.stop || e.now > end {
			break
		}
		if e.pending.Len() == 0 {
			if !e.hasLivePushSource() || e.mode != RealTime {
				// SIMULATION never blocks waiting for an external event
				// (spec §4.5 step 2 "block-free"); a live push source
				// only keeps the loop alive in REAL_TIME, where waiting
				// for wall-clock/push arrival is meaningful.
				break
			}
			<-e.wakeCh
			continue
		}

		nextT := e.pending[0].at
		if nextT > end {
			break
		}
		if e.mode == RealTime {
			e.waitUntil(nextT)
			nextT = etime.Max(nextT, e.now)
		}
		e.now = etime.Max(e.now, nextT)
		ctx.Now = e.now
		e.notifyTick()

		batch := e.drainDue(e.now)
		diags = diags.Append(e.evaluateBatch(ctx, batch))
		if diags.HasErrors() {
			break
		}
		if e.stop {
			break
		}
	}

	ordered = e.nodes.ByRank()
	for i := len(ordered) - 1; i >= 0; i-- {
		ctx.Now = e.now
		if err := ordered[i].Stop(ctx); err != nil {
			diags = diags.Append(err)
		}
		e.notifyStop(ordered[i])
	}
	return diags
}

// Spawn adds ns to the engine's live node set and runs their start phase
// immediately, in rank order (spec §4.6 "when a new key appears, build+
// start a child"). It requires the engine to have been constructed over a
// *NodeSet (via New with a *NodeSet, or NewNodeSet passed directly).
func (e *Engine) Spawn(ns ...*node.Node) diag.Diagnostics {
	var diags diag.Diagnostics
	set, ok := e.nodes.(*NodeSet)
	if !ok {
		return diags.Append(diag.PlanError("sched: Spawn requires the engine to be backed by a *NodeSet"))
	}
	set.Add(ns...)
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].Sig.Rank < ns[j].Sig.Rank })
	ctx := &node.Context{Now: e.now, Scheduler: e, Logger: e.log}
	for _, n := range ns {
		if err := n.Start(ctx); err != nil {
			diags = diags.Append(err)
		}
		e.notifyStart(n)
	}
	return diags
}

// Teardown stops ns in reverse rank order and removes them from the live
// node set (spec §4.6 "on key change, stop old... ").
func (e *Engine) Teardown(ns ...*node.Node) diag.Diagnostics {
	var diags diag.Diagnostics
	set, ok := e.nodes.(*NodeSet)
	if !ok {
		return diags.Append(diag.PlanError("sched: Teardown requires the engine to be backed by a *NodeSet"))
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].Sig.Rank > ns[j].Sig.Rank })
	ctx := &node.Context{Now: e.now, Scheduler: e, Logger: e.log}
	ids := make([]node.ID, 0, len(ns))
	for _, n := range ns {
		if err := n.Stop(ctx); err != nil {
			diags = diags.Append(err)
		}
		e.notifyStop(n)
		ids = append(ids, n.ID)
	}
	set.Remove(ids...)
	return diags
}

// waitUntil blocks REAL_TIME mode until wall-clock reaches the instant
// corresponding to t, or a push source wakes the engine early (spec §4.5
// "wait until wall-clock reaches next_t, or a push source wakes the
// thread").
func (e *Engine) waitUntil(t etime.Time) {
	d := time.Until(t.Wall())
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-e.wakeCh:
	}
}

// drainDue pops every pending entry with at == now, removing any tag
// bookkeeping so Schedule can coalesce later wakes for the same node/tag.
func (e *Engine) drainDue(now etime.Time) []*entry {
	var batch []*entry
	for e.pending.Len() > 0 && e.pending[0].at == now {
		en := heap.Pop(&e.pending).(*entry)
		if en.tag != "" {
			delete(e.byTag, tagKey{en.nodeID, en.tag})
		}
		batch = append(batch, en)
	}
	return batch
}

// evaluateBatch evaluates every due node in ascending rank order (spec
// §4.5 step 4). Re-activation within the same instant at a strictly
// greater rank is captured automatically: writes during eval tick
// observers, which call back into Schedule with at == now and a higher
// rank, appending to e.pending; since drainDue already returned, those
// new entries are picked up by re-checking the queue for more same-now
// work before moving on.
func (e *Engine) evaluateBatch(ctx *node.Context, batch []*entry) diag.Diagnostics {
	var diags diag.Diagnostics
	now := ctx.Now

	seen := map[node.ID]bool{}
	pendingIDs := make([]node.ID, 0, len(batch))
	for _, en := range batch {
		if !seen[en.nodeID] {
			seen[en.nodeID] = true
			pendingIDs = append(pendingIDs, en.nodeID)
		}
	}

	for len(pendingIDs) > 0 {
		id := pendingIDs[0]
		pendingIDs = pendingIDs[1:]

		n, ok := e.nodes.ByID(id)
		if !ok {
			continue
		}
		ready, err := n.Ready(now, true)
		if err != nil {
			diags = diags.Append(diag.NodeError(n.Sig.Name, err))
			continue
		}
		if !ready {
			continue
		}
		ctx.Now = now
		if err := n.Eval(ctx); err != nil {
			diags = diags.Append(err)
			continue
		}
		e.notifyEval(n)

		for e.pending.Len() > 0 && e.pending[0].at == now {
			en := heap.Pop(&e.pending).(*entry)
			if en.tag != "" {
				delete(e.byTag, tagKey{en.nodeID, en.tag})
			}
			if !seen[en.nodeID] {
				seen[en.nodeID] = true
				pendingIDs = insertSorted(pendingIDs, en.nodeID, e.rankOf)
			}
		}
	}
	return diags
}

// PendingEntry is a read-only view of one pending-queue item, exported for
// package persist's suspend/resume snapshot (spec §6.4 "pending queue").
type PendingEntry struct {
	NodeID node.ID
	At     etime.Time
	Tag    string
}

// Nodes returns every live node in ascending rank order, for package
// persist to walk when snapshotting per-node/per-output state (spec §6.4).
func (e *Engine) Nodes() []*node.Node { return e.nodes.ByRank() }

// ByID looks up a live node by id, for package persist to apply a
// restored snapshot back onto the right node.
func (e *Engine) ByID(id node.ID) (*node.Node, bool) { return e.nodes.ByID(id) }

// PendingEntries returns a snapshot of the current pending queue in no
// particular order (spec §6.4 "pending queue").
func (e *Engine) PendingEntries() []PendingEntry {
	out := make([]PendingEntry, 0, len(e.pending))
	for _, en := range e.pending {
		out = append(out, PendingEntry{NodeID: en.nodeID, At: en.at, Tag: en.tag})
	}
	return out
}

// Restore seeds the engine's logical clock and pending queue from a prior
// suspend snapshot (spec §6.4 "resume replays the record stream to
// reconstruct state, then continues from now"). Call it before Run, after
// every node's own output/state has already been restored.
func (e *Engine) Restore(now etime.Time, pending []PendingEntry) {
	e.now = now
	for _, pe := range pending {
		e.Schedule(pe.NodeID, pe.At, pe.Tag)
	}
}

// NodeWake adapts a node id into an observe.Subscriber so an active input
// can wake its owning node through the scheduler (package observe keeps
// Subscriber as an interface precisely so ts and sched don't need to
// import each other directly; this is the one concrete implementation).
type NodeWake struct {
	Engine *Engine
	NodeID node.ID
}

// Wake schedules an immediate re-check of NodeID at t.
func (w NodeWake) Wake(t etime.Time) {
	w.Engine.Schedule(w.NodeID, t, "")
}

// insertSorted inserts id into ids, keeping the slice ordered by rank so
// the evaluation loop always proceeds in ascending rank order even as new
// same-instant activations are discovered mid-batch.
func insertSorted(ids []node.ID, id node.ID, rankOf func(node.ID) int) []node.ID {
	r := rankOf(id)
	i := 0
	for i < len(ids) && rankOf(ids[i]) <= r {
		i++
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
