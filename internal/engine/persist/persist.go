// Package persist implements the optional suspend/resume checkpoint
// stream spec §6.4 describes: on suspend the engine serializes (now,
// per-output value/last_modified_time, per-node private state, pending
// queue) into an append-only record stream; resume replays the stream to
// reconstruct state and continues from now.
//
// File access goes through an injected afero.Afero, the way the teacher's
// internal/configs/configload.moduleMgr takes an afero.Afero field so
// tests can swap in an in-memory filesystem instead of touching disk
// (spec §6.4 doesn't mandate a wire format; msgpack is used for the
// record encoding, promoting the teacher's otherwise-transitive
// vmihailenco/msgpack dependency to direct use here, following the same
// Marshal/Unmarshal-on-a-struct idiom as internal/plugin-tofu/serve.go).
package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hhenson/hgraph-go/internal/engine/etime"
	"github.com/hhenson/hgraph-go/internal/engine/node"
	"github.com/hhenson/hgraph-go/internal/engine/sched"
	"github.com/hhenson/hgraph-go/internal/engine/ts"
)

// OutputSnapshot is one node's serialized output (spec §6.4 "per-output
// value/last_modified_time"). Only nodes whose Output implements
// ts.Snapshotter (the leaf kinds: TS, TSS, TSW, SIGNAL) produce one;
// container and REF outputs are left nil and are not restored -- see
// DESIGN.md for the scoping rationale.
type OutputSnapshot struct {
	Valid bool
	Value any
}

// NodeSnapshot is one node's serialized private state and, where
// available, its output.
type NodeSnapshot struct {
	NodeID node.ID
	State  any
	Output *OutputSnapshot
}

// PendingSnapshot mirrors sched.PendingEntry for the wire format, so this
// package's Record doesn't leak sched's internal entry type.
type PendingSnapshot struct {
	NodeID node.ID
	At     etime.Time
	Tag    string
}

// Record is one suspend point (spec §6.4).
type Record struct {
	Now     etime.Time
	Nodes   []NodeSnapshot
	Pending []PendingSnapshot
}

// Snapshot captures a Record from e's current state.
func Snapshot(e *sched.Engine) Record {
	rec := Record{Now: e.Now()}
	for _, n := range e.Nodes() {
		ns := NodeSnapshot{NodeID: n.ID, State: n.State}
		if snap, ok := n.Output.(ts.Snapshotter); ok {
			value, valid := snap.SnapshotValue()
			ns.Output = &OutputSnapshot{Valid: valid, Value: value}
		}
		rec.Nodes = append(rec.Nodes, ns)
	}
	for _, pe := range e.PendingEntries() {
		rec.Pending = append(rec.Pending, PendingSnapshot{NodeID: pe.NodeID, At: pe.At, Tag: pe.Tag})
	}
	return rec
}

// Restore re-applies rec onto e: every node's private state and
// snapshot-able output are written back at rec.Now, then the pending
// queue is reseeded so Run can continue from rec.Now (spec §6.4). Call
// this before Run.
func Restore(e *sched.Engine, rec Record) error {
	for _, ns := range rec.Nodes {
		n, ok := e.ByID(ns.NodeID)
		if !ok {
			continue
		}
		n.State = ns.State
		if ns.Output == nil {
			continue
		}
		snap, ok := n.Output.(ts.Snapshotter)
		if !ok {
			return fmt.Errorf("persist: node %d output is not a Snapshotter, cannot restore", ns.NodeID)
		}
		if ns.Output.Valid {
			if err := snap.RestoreValue(rec.Now, ns.Output.Value); err != nil {
				return fmt.Errorf("persist: restoring node %d: %w", ns.NodeID, err)
			}
		}
	}

	pending := make([]sched.PendingEntry, 0, len(rec.Pending))
	for _, p := range rec.Pending {
		pending = append(pending, sched.PendingEntry{NodeID: p.NodeID, At: p.At, Tag: p.Tag})
	}
	e.Restore(rec.Now, pending)
	return nil
}

// Store appends and replays Records as length-prefixed msgpack blobs on
// an afero filesystem (spec §6.4 "append-only record stream").
type Store struct {
	fs   afero.Afero
	path string
}

// NewStore constructs a Store backed by fs, writing/reading at path.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: afero.Afero{Fs: fs}, path: path}
}

// Append serializes rec and appends it to the record stream.
func (s *Store) Append(rec Record) error {
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("persist: marshal record: %w", err)
	}

	f, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("persist: open %q: %w", s.path, err)
	}
	defer f.Close()

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := f.Write(length[:]); err != nil {
		return fmt.Errorf("persist: write length prefix: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("persist: write record: %w", err)
	}
	return nil
}

// Load reads every Record from the stream in append order. A missing file
// is treated as an empty stream (no prior suspend).
func (s *Store) Load() ([]Record, error) {
	exists, err := s.fs.Exists(s.path)
	if err != nil {
		return nil, fmt.Errorf("persist: stat %q: %w", s.path, err)
	}
	if !exists {
		return nil, nil
	}

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("persist: read %q: %w", s.path, err)
	}

	var recs []Record
	r := bytes.NewReader(data)
	for {
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("persist: read length prefix: %w", err)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("persist: read record body: %w", err)
		}
		var rec Record
		if err := msgpack.Unmarshal(buf, &rec); err != nil {
			return nil, fmt.Errorf("persist: unmarshal record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// LoadLatest returns the most recently appended Record, for the common
// resume-from-last-checkpoint case. It reports ok=false if the stream is
// empty.
func (s *Store) LoadLatest() (rec Record, ok bool, err error) {
	recs, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	if len(recs) == 0 {
		return Record{}, false, nil
	}
	return recs[len(recs)-1], true, nil
}
