// Package diag implements the engine's error/diagnostics accumulator.
//
// The shape follows the teacher's tfdiags usage idiom: a Diagnostics value
// is a slice accumulated by Append calls threaded through return values
// rather than by panicking, and carries a Severity and a Kind alongside
// the message so callers can distinguish the five error kinds in spec §7
// (PlanError, TypeMismatch, NodeError, PushError, ServiceError) without
// string matching.
package diag

import "fmt"

// Severity distinguishes fatal diagnostics from informational ones.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind identifies which of the spec §7 error categories a Diagnostic
// belongs to.
type Kind int

const (
	// KindNone is used for diagnostics that aren't one of the named error
	// kinds (e.g. warnings).
	KindNone Kind = iota
	// KindPlan is a PlanError: detected at build time, fatal, engine never starts.
	KindPlan
	// KindTypeMismatch: a REF rebinds to an incompatible output kind at runtime.
	KindTypeMismatch
	// KindNode: a user eval() failed.
	KindNode
	// KindPush: a push sender was called after engine stop.
	KindPush
	// KindService names the ServiceError category (a service not
	// registered for a referenced path). The ServiceError builder below
	// reports that case as KindPlan, so no builder here produces it.
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindPlan:
		return "PlanError"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindNode:
		return "NodeError"
	case KindPush:
		return "PushError"
	case KindService:
		return "ServiceError"
	default:
		return "diagnostic"
	}
}

// Diagnostic is a single error or warning produced by the engine.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Summary  string
	Detail   string

	// NodeID, when non-empty, names the node whose evaluation produced
	// this diagnostic (set for KindNode).
	NodeID string

	// Stack, when non-empty, is the captured stack trace for an
	// unexpected panic recovered from user code (spec §7 propagation).
	Stack string

	// Wrapped is the underlying Go error, if any.
	Wrapped error
}

func (d *Diagnostic) Error() string {
	if d.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", d.Kind, d.Summary, d.Detail)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Summary)
}

func (d *Diagnostic) Unwrap() error { return d.Wrapped }

// Diagnostics is an accumulator of Diagnostic values. The zero value is an
// empty, usable Diagnostics.
type Diagnostics []*Diagnostic

// Append adds one or more diagnostics (or plain errors, which are wrapped as
// KindNone errors) to the receiver and returns the result. Nil values and
// empty Diagnostics are no-ops, so Append can always be called unconditionally:
//
//	diags = diags.Append(maybeFailingStep())
func (d Diagnostics) Append(items ...any) Diagnostics {
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case *Diagnostic:
			if v != nil {
				d = append(d, v)
			}
		case Diagnostics:
			d = append(d, v...)
		case error:
			d = append(d, &Diagnostic{Severity: Error, Summary: v.Error(), Wrapped: v})
		default:
			panic(fmt.Sprintf("diag.Diagnostics.Append: unsupported type %T", item))
		}
	}
	return d
}

// HasErrors reports whether any accumulated diagnostic is at Error severity.
func (d Diagnostics) HasErrors() bool {
	for _, diag := range d {
		if diag.Severity == Error {
			return true
		}
	}
	return false
}

// Err returns the receiver as an error (a diagsError listing every
// diagnostic) if it has any errors,
// or nil otherwise. Useful at API boundaries that want a plain `error`.
func (d Diagnostics) Err() error {
	if !d.HasErrors() {
		return nil
	}
	return diagsError(d)
}

type diagsError Diagnostics

func (e diagsError) Error() string {
	switch len(e) {
	case 0:
		return "no errors"
	case 1:
		return e[0].Error()
	default:
		s := fmt.Sprintf("%d errors:", len(e))
		for _, d := range e {
			s += "\n  - " + d.Error()
		}
		return s
	}
}

// PlanError builds a KindPlan Diagnostic.
func PlanError(summary string, a ...any) *Diagnostic {
	return &Diagnostic{Severity: Error, Kind: KindPlan, Summary: fmt.Sprintf(summary, a...)}
}

// TypeMismatch builds a KindTypeMismatch Diagnostic.
func TypeMismatch(summary string, a ...any) *Diagnostic {
	return &Diagnostic{Severity: Error, Kind: KindTypeMismatch, Summary: fmt.Sprintf(summary, a...)}
}

// NodeError builds a KindNode Diagnostic attributed to nodeID.
func NodeError(nodeID string, err error) *Diagnostic {
	return &Diagnostic{Severity: Error, Kind: KindNode, NodeID: nodeID, Summary: err.Error(), Wrapped: err}
}

// PushError builds a KindPush Diagnostic: a push sender was called after
// engine stop (spec §7).
func PushError(summary string, a ...any) *Diagnostic {
	return &Diagnostic{Severity: Error, Kind: KindPush, Summary: fmt.Sprintf(summary, a...)}
}

// ServiceError builds a KindService Diagnostic (always a PlanError per
// spec §7: "service not registered for a referenced path. PlanError.").
func ServiceError(summary string, a ...any) *Diagnostic {
	return &Diagnostic{Severity: Error, Kind: KindPlan, Summary: fmt.Sprintf(summary, a...)}
}
