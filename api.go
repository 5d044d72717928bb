// Package rtexpr is the public surface of the numeric expression engine: a
// Pratt-parsed, arena-allocated AST and an iterative, allocation-free
// evaluator meant to run inside a hard-real-time control loop.
//
// Two entry points cover the two ways the engine is used. EvalString parses
// and evaluates one expression against a Context in a single call — the
// "legacy" path for occasional or setup-time evaluation, not the hot loop.
// Batch is the steady-state façade: it owns an arena, a set of parsed
// expressions, an indexed parameter vector, and a single reused Evaluator,
// so that the hot path costs only parameter writes, one evaluation pass,
// and result reads.
//
// Every exported type here is a thin alias or a small wrapper over an
// internal package; internal/batch, internal/rtcontext and internal/errors
// remain the implementation, this package only fixes the public names and
// re-exposes the subset of their surface a host is meant to call directly.
package rtexpr

import (
	"github.com/rtexpr/rtexpr/internal/arena"
	"github.com/rtexpr/rtexpr/internal/batch"
	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/evaluator"
	"github.com/rtexpr/rtexpr/internal/parser"
	"github.com/rtexpr/rtexpr/internal/registry"
	"github.com/rtexpr/rtexpr/internal/rtcontext"
	"github.com/rtexpr/rtexpr/internal/telemetry"
)

// Context is the name-resolution environment an expression evaluates
// against: variables, constants, arrays, attribute groups and functions,
// optionally chained to a parent.
type Context = rtcontext.Context

// NewContext constructs a root Context with an empty, owned function
// registry.
func NewContext() *Context {
	return rtcontext.New()
}

// NativeFunc is a host-supplied callback: a contiguous scalar argument
// slice in, one scalar out. Must not block.
type NativeFunc = registry.NativeFunc

// UserFunc is a NativeFunc that also receives opaque per-registration
// user data.
type UserFunc = registry.UserFunc

// Batch is the caller-owned grouping of an arena, parsed expressions, an
// indexed parameter vector, a result vector, and a reused Evaluator — the
// object a host constructs once and drives at up to 1 kHz.
type Batch = batch.Batch

// NewBatch constructs a Batch with the engine's default arena pool
// capacities. rec may be nil to disable allocation telemetry.
func NewBatch(rec *telemetry.Recorder) *Batch {
	return batch.New(rec)
}

// NewBatchWithCapacity constructs a Batch with explicit arena pool
// capacities, for a host that wants to size memory precisely for its
// expression set.
func NewBatchWithCapacity(nodeCap, nodePtrCap, stringBytes int, rec *telemetry.Recorder) *Batch {
	return batch.NewWithCapacity(nodeCap, nodePtrCap, stringBytes, rec)
}

// Recorder accumulates the allocation/free counters described in the
// engine's telemetry interface. A nil *Recorder disables instrumentation
// at zero cost.
type Recorder = telemetry.Recorder

// NewRecorder constructs an enabled Recorder.
func NewRecorder() *Recorder {
	return &telemetry.Recorder{}
}

// Snapshot is a point-in-time copy of a Recorder's counters.
type Snapshot = telemetry.Snapshot

// DeltaSnapshot returns the counter-wise difference between two snapshots
// (BytesCurrent and BytesPeak are taken from after as they stand), used to
// assert zero allocation between a warm-up call and teardown.
func DeltaSnapshot(before, after Snapshot) Snapshot {
	return telemetry.Delta(before, after)
}

// Error is the engine's single error type: a Kind, a numeric Code matching
// the external ABI's status ranges, and minimal context.
type Error = errors.Error

// Kind classifies a failure into the engine's error taxonomy.
type Kind = errors.Kind

const (
	KindSyntax   = errors.KindSyntax
	KindCapacity = errors.KindCapacity
	KindName     = errors.KindName
	KindArity    = errors.KindArity
	KindBounds   = errors.KindBounds
	KindHandle   = errors.KindHandle
	KindInternal = errors.KindInternal
)

// EvalString parses source and evaluates it once against ctx, with no
// parameter overrides and no reused Evaluator state. It allocates a
// throwaway arena with the default pool capacities and is not meant for the 1 kHz
// hot loop — use Batch for that. EvalString and Batch are required to
// agree bit-exactly on successful inputs; see agreement_test.go.
func EvalString(source string, ctx *Context) (float64, error) {
	a := arena.NewDefault(nil)
	root, err := parser.Parse(source, a)
	if err != nil {
		return 0, err
	}
	ev := evaluator.New(a)
	return ev.Eval(root, ctx)
}
