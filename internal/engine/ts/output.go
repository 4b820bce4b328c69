// Package ts implements the concrete storage for every time-series kind in
// spec §3.2: TS (scalar), TSB (bundle), TSL (list), TSS (set), TSD (keyed
// dict), TSW (window), REF (reference) and SIGNAL (tick-only). Every kind
// pairs a writable Output (owned by the producing node) with a read-only
// Input view bound to it (spec §3.2, §4.3).
//
// Time-series kinds are modelled as a tagged variant the way spec §9
// recommends ("model time-series as a tagged variant over the eight
// kinds"): Kind identifies the runtime type, and the engine dispatches on
// it wherever it needs kind-generic behaviour (REF and delayed-binding
// kind checks, trace output).
package ts

import (
	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/observe"
)

// Node is a convenience alias so the rest of this package doesn't need to
// import observe directly.
type Node = observe.Node

// Kind tags the eight time-series flavours spec §3.2 defines.
type Kind int

const (
	KindTS Kind = iota
	KindTSB
	KindTSL
	KindTSS
	KindTSD
	KindTSW
	KindREF
	KindSignal
)

func (k Kind) String() string {
	switch k {
	case KindTS:
		return "TS"
	case KindTSB:
		return "TSB"
	case KindTSL:
		return "TSL"
	case KindTSS:
		return "TSS"
	case KindTSD:
		return "TSD"
	case KindTSW:
		return "TSW"
	case KindREF:
		return "REF"
	case KindSignal:
		return "SIGNAL"
	default:
		return "unknown"
	}
}

// Output is the kind-erased interface every concrete *Output type
// satisfies. The scheduler, observer-registration and node-readiness code
// only ever need this much: whether there's a value at all, whether it
// ticked "now", and the observer Node to subscribe to.
type Output interface {
	Kind() Kind
	Valid() bool
	Modified(now etime.Time) bool
	LastModifiedTime() etime.Time
	Node() *observe.Node
	Invalidate()

	// AllValid reports whether this output, and for container kinds every
	// currently-present child, is valid. Used for the node `all_valid`
	// readiness clause (spec §4.4).
	AllValid() bool
}

// base is embedded by every concrete Output implementation and supplies
// the validity/modification bookkeeping and observer plumbing common to
// all eight kinds (spec §4.1 "Each TS output stores ... last_modified_time,
// a set of observers").
type base struct {
	valid        bool
	lastModified etime.Time
	node         *observe.Node
}

func newBase(parent *observe.Node) base {
	var n *observe.Node
	if parent == nil {
		n = observe.NewRoot()
	} else {
		n = parent.Child()
	}
	return base{node: n}
}

func (b *base) Valid() bool { return b.valid }

func (b *base) Modified(now etime.Time) bool {
	return b.valid && b.lastModified == now
}

func (b *base) LastModifiedTime() etime.Time { return b.lastModified }

func (b *base) Node() *observe.Node { return b.node }

// Invalidate clears validity without removing the output from any
// container it belongs to (spec §4.1: "Not to be confused with removal
// from a TSD").
func (b *base) Invalidate() { b.valid = false }

// tick stamps the output as modified at now and notifies observers. It is
// the single mutation primitive every concrete Set()/container-write
// method funnels through, which is what gives every kind the "set from
// producer" contract in spec §4.1: a second set in the same tick replaces
// the value but keeps modified=true, because tick is idempotent with
// respect to lastModified once already stamped at now.
func (b *base) tick(now etime.Time) {
	if !now.InRange() {
		panic("ts: modification time out of [MinST, MaxET] range")
	}
	b.valid = true
	b.lastModified = now
	b.node.Notify(now)
}
