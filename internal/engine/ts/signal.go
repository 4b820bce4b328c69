package ts

import "github.com/hhenson/hgraph-go/internal/engine/etime"

// Signal is a TS with no value; only modification ticks carry information
// (spec §3.2 "SIGNAL — TS with no value; only modification ticks").
type Signal struct {
	base
}

func NewSignal(parent *Node) *Signal { return &Signal{base: newBase(parent)} }

func (s *Signal) Kind() Kind     { return KindSignal }
func (s *Signal) AllValid() bool { return s.valid }

// Tick marks the signal as modified at now, with no payload.
func (s *Signal) Tick(now etime.Time) { s.tick(now) }

// SnapshotValue implements Snapshotter: a signal carries no payload, only
// validity (spec §6.4).
func (s *Signal) SnapshotValue() (any, bool) { return nil, s.valid }

// RestoreValue implements Snapshotter by re-ticking at now if the
// snapshot captured a valid signal.
func (s *Signal) RestoreValue(now etime.Time, _ any) error {
	s.Tick(now)
	return nil
}

// SignalInput is the peered read-only view of a Signal output.
type SignalInput struct {
	out *Signal
}

func NewSignalInput(out *Signal) SignalInput { return SignalInput{out: out} }

func (i SignalInput) Valid() bool                  { return i.out.Valid() }
func (i SignalInput) Modified(now etime.Time) bool { return i.out.Modified(now) }
func (i SignalInput) Node() *Node                  { return i.out.Node() }
func (i SignalInput) Output() *Signal              { return i.out }
