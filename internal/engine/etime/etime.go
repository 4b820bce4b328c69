// Package etime defines the logical time axis the evaluation engine is
// driven by: an absolute microsecond-resolution instant (Time) and a signed
// microsecond duration (Delta). These are deliberately distinct from
// wall-clock time.Time/time.Duration: logical time only ever moves forward
// under the engine's control, and its domain is bounded so that sentinel
// values (MinDT, MaxDT) can be used as "start of time"/"end of time"
// markers without overflow risk.
package etime

import (
	"fmt"
	"time"
)

// Time is an absolute instant on the engine's logical time axis, stored as
// microseconds since the Unix epoch.
type Time int64

// Delta is a signed duration on the engine's logical time axis, in
// microseconds. MinDelta is the smallest unit of time the engine recognizes:
// every tick advances time by at least one Delta.
type Delta int64

// MinDelta is the indivisible tick granularity: one microsecond.
const MinDelta Delta = 1

// MinDT and MaxDT bound the domain of Time: [1970-01-01, 2300-01-01).
var (
	MinDT = FromWall(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	MaxDT = FromWall(time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC))
)

// MinST and MaxET are the bounds every modification timestamp must satisfy:
// MinST = MinDT + MinDelta, MaxET = MaxDT - MinDelta.
var (
	MinST = MinDT + Time(MinDelta)
	MaxET = MaxDT - Time(MinDelta)
)

// FromWall converts a wall-clock time.Time to engine Time, truncating to
// microsecond resolution.
func FromWall(t time.Time) Time {
	return Time(t.UnixMicro())
}

// Wall converts an engine Time back to a wall-clock time.Time (UTC).
func (t Time) Wall() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

// Add returns t advanced by d. It does not clamp to [MinDT, MaxDT]; callers
// that must stay in the valid modification-timestamp domain should check
// InRange.
func (t Time) Add(d Delta) Time {
	return t + Time(d)
}

// Sub returns the Delta between t and u (t - u).
func (t Time) Sub(u Time) Delta {
	return Delta(t - u)
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool { return t < u }

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool { return t > u }

// InRange reports whether t is a legal modification timestamp, i.e.
// MinST <= t <= MaxET (spec §3.1 invariant).
func (t Time) InRange() bool {
	return t >= MinST && t <= MaxET
}

func (t Time) String() string {
	return t.Wall().Format("2006-01-02T15:04:05.000000Z")
}

func (d Delta) String() string {
	if d < 0 {
		return "-" + Delta(-d).String()
	}
	return fmt.Sprintf("%dµs", int64(d))
}

// Min returns whichever of a, b is earlier.
func Min(a, b Time) Time {
	if a < b {
		return a
	}
	return b
}

// Max returns whichever of a, b is later.
func Max(a, b Time) Time {
	if a > b {
		return a
	}
	return b
}
