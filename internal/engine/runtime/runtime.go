// Package runtime implements spec §6.2's two entry points over an already
// built node set: run_graph, which drives evaluation to completion for
// side effect, and evaluate_graph, which additionally streams the
// (time, value) pairs a designated output produces.
//
// Node instantiation and edge binding from a *plan.Plan (constructing
// node.Node values, ts.Output storage and bind.Input wiring) is the wiring
// layer plan.go's own package doc calls out as "not part of this engine
// core"; runtime picks up one layer above that, at the sched.Nodes a
// wiring layer has already produced, the same boundary package persist
// sits at.
package runtime

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/zclconf/go-cty-debug/ctydebug"
	"github.com/zclconf/go-cty/cty"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/sched"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
	"github.com/hhenson/hgraph-go/internal/logging"
)

// GraphConfiguration is spec §6.2's GraphConfiguration: the engine's
// operating window, clock mode, and optional observability hooks.
type GraphConfiguration struct {
	StartTime etime.Time
	EndTime   etime.Time
	Mode      sched.Mode

	// Trace, when set, installs a trace observer that logs every
	// start/eval/stop/tick at hclog.Trace level, describing bundle
	// outputs by their declared cty schema the way the teacher's own
	// execution graph dumps cty.Value/cty.Type for debugging (spec §6.2
	// "observers: [EngineObserver]").
	Trace bool

	// Observers are installed in addition to the trace observer.
	Observers []sched.EngineObserver

	Logger hclog.Logger

	// Wire, if set, runs once against the constructed engine before Run
	// starts. This is the one piece of edge binding that cannot happen
	// before engine construction: an active input's subscription is a
	// sched.NodeWake carrying a reference to the engine itself (see
	// sched_test.go's wiring), so it can only be established once the
	// engine exists. Everything else a wiring layer does (building
	// node.Node values, binding passive inputs) happens before nodes is
	// ever handed to runtime.
	Wire func(eng *sched.Engine) diag.Diagnostics
}

// DefaultConfiguration returns the full-domain, SIMULATION-mode defaults
// spec §6.2 describes when start_time/end_time are omitted.
func DefaultConfiguration() GraphConfiguration {
	return GraphConfiguration{StartTime: etime.MinST, EndTime: etime.MaxET, Mode: sched.Simulation}
}

func (cfg GraphConfiguration) logger() hclog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return logging.Discard()
}

// RunID correlates one run_graph/evaluate_graph invocation's log and trace
// lines. The engine's own node.ID stays a plain rank-ordered int (the
// pending queue's tiebreak depends on it sorting meaningfully, see
// sched.pendingQueue.Less); google/uuid is used here instead, for a
// concern where only identity, not ordering, matters. See DESIGN.md.
type RunID string

func newRunID() RunID { return RunID(uuid.NewString()) }

// buildEngine constructs an Engine with cfg's trace observer (if enabled),
// cfg.Observers, and any extra observers a caller such as EvaluateGraph
// needs to add, all installed in one SetObservers call since
// sched.Engine.SetObservers replaces rather than accumulates.
func buildEngine(nodes sched.Nodes, cfg GraphConfiguration, extra ...sched.EngineObserver) (*sched.Engine, diag.Diagnostics) {
	runID := newRunID()
	log := cfg.logger().With("run_id", string(runID))

	eng := sched.New(nodes, cfg.Mode, log)
	var observers []sched.EngineObserver
	if cfg.Trace {
		observers = append(observers, traceObserver{log: log})
	}
	observers = append(observers, cfg.Observers...)
	observers = append(observers, extra...)
	eng.SetObservers(observers...)

	var diags diag.Diagnostics
	if cfg.Wire != nil {
		diags = diags.Append(cfg.Wire(eng))
	}
	return eng, diags
}

// RunGraph drives nodes from cfg.StartTime to cfg.EndTime (spec §6.2
// "run_graph(plan, mode, start_time?, end_time?)"), discarding any output.
func RunGraph(nodes sched.Nodes, cfg GraphConfiguration) diag.Diagnostics {
	eng, diags := buildEngine(nodes, cfg)
	if diags.HasErrors() {
		return diags
	}
	return diags.Append(eng.Run(cfg.StartTime, cfg.EndTime))
}

// Observation is one (time, value) pair evaluate_graph yields.
type Observation[T any] struct {
	At    etime.Time
	Value T
}

// EvaluateGraph drives nodes to completion and collects the (time, value)
// pairs watched's output produces along the way (spec §6.2
// "evaluate_graph(plan, config) -> Sequence[(time, value)]"). watched must
// be the node.ID that owns output; the caller (the wiring layer) already
// holds both from plan construction.
func EvaluateGraph[T any](nodes sched.Nodes, watched node.ID, output *ts.Scalar[T], cfg GraphConfiguration) ([]Observation[T], diag.Diagnostics) {
	collector := &outputCollector[T]{nodeID: watched, output: output}
	eng, diags := buildEngine(nodes, cfg, collector)
	if diags.HasErrors() {
		return nil, diags
	}

	diags = diags.Append(eng.Run(cfg.StartTime, cfg.EndTime))
	return collector.observations, diags
}

// outputCollector is an EngineObserver that records a (time, value) pair
// every time the watched node evaluates and its output ticked.
type outputCollector[T any] struct {
	nodeID       node.ID
	output       *ts.Scalar[T]
	observations []Observation[T]
}

func (c *outputCollector[T]) OnNodeStart(etime.Time, *node.Node) {}
func (c *outputCollector[T]) OnNodeStop(etime.Time, *node.Node)  {}
func (c *outputCollector[T]) OnTick(etime.Time)                  {}

func (c *outputCollector[T]) OnNodeEval(now etime.Time, n *node.Node) {
	if n.ID != c.nodeID || !c.output.Modified(now) {
		return
	}
	c.observations = append(c.observations, Observation[T]{At: now, Value: c.output.Value()})
}

// traceObserver logs every lifecycle event at Trace level, describing
// bundle outputs by their cty schema type the way the teacher's
// execgraph.Graph.DebugRepr renders cty.Value for human consumption (spec
// §6.2 GraphConfiguration.Trace).
type traceObserver struct {
	log hclog.Logger
}

func (t traceObserver) OnNodeStart(now etime.Time, n *node.Node) {
	t.log.Trace("node start", "node", n.Sig.Name, "rank", n.Sig.Rank, "time", now.String())
}

func (t traceObserver) OnNodeStop(now etime.Time, n *node.Node) {
	t.log.Trace("node stop", "node", n.Sig.Name, "time", now.String())
}

func (t traceObserver) OnTick(now etime.Time) {
	t.log.Trace("tick", "time", now.String())
}

func (t traceObserver) OnNodeEval(now etime.Time, n *node.Node) {
	t.log.Trace("node eval", "node", n.Sig.Name, "time", now.String(), "output", describeOutput(n.Output))
}

func describeOutput(out ts.Output) string {
	if out == nil {
		return "<none>"
	}
	if b, ok := out.(*ts.Bundle); ok {
		return ctydebug.ValueString(cty.UnknownVal(b.Schema().CtyType()))
	}
	return out.Kind().String()
}
