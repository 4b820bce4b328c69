// Package service implements the three §4.7 primitives external code
// uses to reach into or out of a running engine: a named-service
// registry multiplexed by subscriber identity, a thread-safe push queue
// for foreign-thread-originated ticks, and the push+sink adaptor idiom.
package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/hhenson/hgraph-go/internal/diag"
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// Path names a globally-registered service implementation (spec §4.7:
// "callers reference it by path").
type Path string

// BuildFunc constructs the service graph for path the first time it is
// referenced.
type BuildFunc func(path Path) (*node.Node, ts.Output, error)

type instance struct {
	node        *node.Node
	output      ts.Output
	subscribers map[any]bool
}

// Registry instantiates a service graph once per (path, resolved-types)
// and multiplexes requests from multiple callers by subscriber identity
// (spec §4.7). The resolved-types half of that key is the caller's
// responsibility: BuildFunc closures capture whatever type parameters
// they need, and distinct instantiations should use distinct Paths.
//
// A path must be Register-ed (typically by the wiring layer, at plan-build
// time) before anything can Resolve it; referencing an unregistered path
// is a ServiceError (spec §7: "service not registered for a referenced
// path. PlanError.").
type Registry struct {
	mu        sync.Mutex
	builders  map[Path]BuildFunc
	instances map[Path]*instance
}

// NewRegistry constructs an empty service registry.
func NewRegistry() *Registry {
	return &Registry{builders: map[Path]BuildFunc{}, instances: map[Path]*instance{}}
}

// Register associates path with the builder used to instantiate its
// service graph the first time it's referenced (spec §4.7: "a globally-
// registered named node implementation; callers reference it by path").
// Registering the same path again before it has been resolved replaces
// the previous builder.
func (r *Registry) Register(path Path, build BuildFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[path] = build
}

// Resolve returns the node and output for path, building it via its
// registered builder on first reference (spec §4.7 "instantiates the
// service graph once per path") and registering subscriber as a
// consumer. Calling Resolve again for an already-built path with a new
// subscriber just adds that subscriber to the existing instance without
// rebuilding it. Resolving a path with no registered builder returns a
// ServiceError.
func (r *Registry) Resolve(path Path, subscriber any) (*node.Node, ts.Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[path]
	if !ok {
		build, ok := r.builders[path]
		if !ok {
			return nil, nil, diag.ServiceError("service not registered for path %q", path)
		}
		n, out, err := build(path)
		if err != nil {
			return nil, nil, err
		}
		inst = &instance{node: n, output: out, subscribers: map[any]bool{}}
		r.instances[path] = inst
	}
	inst.subscribers[subscriber] = true
	return inst.node, inst.output, nil
}

// Release removes subscriber from path's instance and reports whether it
// was the last one, in which case the caller should stop and discard the
// service graph (via the node's own Stop phase).
func (r *Registry) Release(path Path, subscriber any) (wasLast bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[path]
	if !ok {
		return false
	}
	delete(inst.subscribers, subscriber)
	if len(inst.subscribers) == 0 {
		delete(r.instances, path)
		return true
	}
	return false
}

// WarmUp starts the node of every service already built by Resolve
// (registered but never resolved paths are skipped) concurrently at
// plan-build warm-up, fanning out with errgroup the way the teacher's
// internal/copy.CopyDir fans out independent per-file work, but -- since
// every service is independent and a warm-up failure in one shouldn't hide
// a sibling's -- collecting every failure via go-multierror rather than
// letting errgroup.Wait short-circuit on the first one.
func (r *Registry) WarmUp(now etime.Time, log hclog.Logger) error {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	r.mu.Lock()
	insts := make([]*instance, 0, len(r.instances))
	for _, inst := range r.instances {
		insts = append(insts, inst)
	}
	r.mu.Unlock()

	var (
		eg   errgroup.Group
		mu   sync.Mutex
		errs *multierror.Error
	)
	for _, inst := range insts {
		inst := inst
		eg.Go(func() error {
			if err := inst.node.Start(&node.Context{Now: now, Logger: log}); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return errs.ErrorOrNil()
}

// PushRecord is one value enqueued on a PushQueue, timestamped with the
// logical time it should be applied at (spec §4.7: "(output, value,
// scheduled_time = now+MIN_TD_clamped_to_wall_clock)").
type PushRecord[T any] struct {
	Value T
	At    etime.Time
}

// PushQueue is the injectable, thread-safe sender handed to user code
// running on foreign threads (spec §4.7, §5 "External threads: allowed
// only via push-queue senders"). The engine thread is the sole consumer;
// Drain is not safe for concurrent callers, but Send is.
type PushQueue[T any] struct {
	ch     chan PushRecord[T]
	closed atomic.Bool
	wake   func(at etime.Time)
}

// NewPushQueue constructs a push queue with the given buffer capacity.
// wake, if non-nil, is called after every successful Send with the
// record's scheduled_time to edge-trigger the engine thread (spec §5:
// "edge-triggered and coalesce bursts"; spec §4.7: "the engine wakes,
// drains, applies, and schedules observers"). Typically
// sched.Engine.PushWake(nodeID), which schedules the owning node directly
// at that time.
func NewPushQueue[T any](capacity int, wake func(at etime.Time)) *PushQueue[T] {
	return &PushQueue[T]{ch: make(chan PushRecord[T], capacity), wake: wake}
}

// Send enqueues value for application at the current wall-clock instant,
// clamped forward by at least one logical tick. It returns a PushError
// (spec §7) if the queue has already been closed.
func (q *PushQueue[T]) Send(value T) error {
	if q.closed.Load() {
		return diag.PushError("push queue closed")
	}
	at := etime.FromWall(time.Now()).Add(etime.MinDelta)
	select {
	case q.ch <- PushRecord[T]{Value: value, At: at}:
	default:
		return diag.PushError("push queue full")
	}
	if q.wake != nil {
		q.wake(at)
	}
	return nil
}

// Drain removes and returns every currently-queued record without
// blocking. Called by the engine thread once woken.
func (q *PushQueue[T]) Drain() []PushRecord[T] {
	var out []PushRecord[T]
	for {
		select {
		case rec := <-q.ch:
			out = append(out, rec)
		default:
			return out
		}
	}
}

// Close marks the queue closed; subsequent Send calls fail with a
// PushError instead of blocking or panicking on a closed channel.
func (q *PushQueue[T]) Close() { q.closed.Store(true) }

// Adaptor pairs a PushQueue (the source half) with a sink callback (the
// consumer half), letting user code act as both a source and a sink of a
// path-keyed stream (spec §4.7).
type Adaptor[T any] struct {
	Push    *PushQueue[T]
	OnValue func(now etime.Time, value T)
}

// NewAdaptor constructs an adaptor whose push side has the given buffer
// capacity and whose sink side invokes onValue for every applied record.
func NewAdaptor[T any](capacity int, wake func(at etime.Time), onValue func(etime.Time, T)) *Adaptor[T] {
	return &Adaptor[T]{Push: NewPushQueue[T](capacity, wake), OnValue: onValue}
}

// Apply drains the adaptor's push queue and invokes OnValue for each
// record in arrival order, mirroring the engine's own drain-apply step
// for push sources (spec §4.7).
func (a *Adaptor[T]) Apply() {
	for _, rec := range a.Push.Drain() {
		a.OnValue(rec.At, rec.Value)
	}
}
