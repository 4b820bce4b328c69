package ts

import "github.com/hhenson/hgraph-go/internal/engine/etime"

// Snapshotter is implemented by the leaf output kinds (Scalar, Set,
// Window, Signal) that can serialize their current value for suspend/
// resume (spec §6.4 "per-output value/last_modified_time"). Container
// kinds (Bundle, List, Dict) and REF don't implement it, and persist only
// checks a node's own Output, so it does not descend into a container's
// children: container contents are not captured or restored.
type Snapshotter interface {
	// SnapshotValue returns the current value (encodable by msgpack) and
	// whether the output is currently valid.
	SnapshotValue() (value any, valid bool)

	// RestoreValue re-applies a previously snapshotted value at now,
	// ticking the output exactly as the original write did.
	RestoreValue(now etime.Time, value any) error
}
