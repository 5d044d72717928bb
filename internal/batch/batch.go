// Package batch implements the hot-loop facade: an arena, a set of parsed
// expressions, a dense indexed parameter vector, a dense result vector, and
// a single reused Evaluator, all behind one handle protected against
// use-after-free by a validity magic word.
package batch

import (
	"math"

	"github.com/rtexpr/rtexpr/internal/arena"
	"github.com/rtexpr/rtexpr/internal/ast"
	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/evaluator"
	"github.com/rtexpr/rtexpr/internal/limits"
	"github.com/rtexpr/rtexpr/internal/parser"
	"github.com/rtexpr/rtexpr/internal/rtcontext"
	"github.com/rtexpr/rtexpr/internal/telemetry"
)

const (
	magicAlive uint32 = 0xba7c4001
	magicFreed uint32 = 0
)

// Batch is the hot-path handle. The zero value is not usable; construct
// with New or NewWithCapacity.
type Batch struct {
	magic uint32

	a  *arena.Arena
	ev *evaluator.Evaluator

	paramNames  [][]byte
	paramValues []float64

	exprSources []string
	exprRoots   []*ast.Node
	results     []float64

	localFns []localExprFn

	boundParent *rtcontext.Context
	boundCtx    *rtcontext.Context

	// ov is the Overrides table installed ahead of the Context chain on
	// every Evaluate call. It is a field, not a value built per call,
	// because a freshly allocated *Overrides would escape to the heap
	// through Evaluator.overrides and defeat the zero-steady-state-
	// allocation guarantee (see internal/evaluator.Overrides).
	ov evaluator.Overrides

	stopOnFirstError bool
}

type localExprFn struct {
	name   string
	params []string
	body   string
}

// New constructs a Batch with the arena's default pool capacities.
func New(rec *telemetry.Recorder) *Batch {
	return newBatch(arena.NewDefault(rec))
}

// NewWithCapacity constructs a Batch with explicit arena pool capacities,
// for a host that wants to size memory precisely for its expression set.
func NewWithCapacity(nodeCap, nodePtrCap, stringBytes int, rec *telemetry.Recorder) *Batch {
	return newBatch(arena.New(nodeCap, nodePtrCap, stringBytes, rec))
}

func newBatch(a *arena.Arena) *Batch {
	return &Batch{magic: magicAlive, a: a, ev: evaluator.New(a)}
}

// SetStopOnFirstError selects evaluate's failure mode: true stops at the
// first expression that fails, false (the default) records NaN for a
// failed expression and continues with the rest.
func (b *Batch) SetStopOnFirstError(stop bool) {
	b.stopOnFirstError = stop
}

func (b *Batch) checkValid() error {
	if b.magic == magicFreed {
		return errors.InvalidHandle()
	}
	return nil
}

// AddVariable appends name to the indexed parameter vector with initial as
// its starting value, and returns its index. Duplicate names are rejected;
// so is a name past the engine's MaxVariables ceiling, keeping the
// parameter vector subject to the same fixed-capacity discipline as a
// Context's own variable table.
func (b *Batch) AddVariable(name string, initial float64) (int, error) {
	if err := b.checkValid(); err != nil {
		return 0, err
	}
	nb := []byte(name)
	for _, n := range b.paramNames {
		if string(n) == string(nb) {
			return 0, errors.New(errors.KindName, "parameter", "duplicate parameter %q", name)
		}
	}
	if len(b.paramNames) >= limits.MaxVariables {
		return 0, errors.Capacity("variables")
	}
	b.paramNames = append(b.paramNames, nb)
	b.paramValues = append(b.paramValues, initial)
	return len(b.paramNames) - 1, nil
}

// AddExpression parses source into the batch's arena, stores it, appends a
// zero result slot, and returns the expression's index.
func (b *Batch) AddExpression(source string) (int, error) {
	if err := b.checkValid(); err != nil {
		return 0, err
	}
	root, err := parser.Parse(source, b.a)
	if err != nil {
		return 0, err
	}
	b.exprSources = append(b.exprSources, source)
	b.exprRoots = append(b.exprRoots, root)
	b.results = append(b.results, 0)
	return len(b.exprRoots) - 1, nil
}

// AddExpressionFunction registers a batch-local expression-defined
// function: one available during this batch's evaluate calls regardless of
// what Context is passed in, alongside whatever that Context itself
// resolves. params is the function's ordered formal parameter list. The
// body is parsed lazily, on first call, the same as any other
// expression-defined function.
func (b *Batch) AddExpressionFunction(name string, params []string, body string) error {
	if err := b.checkValid(); err != nil {
		return err
	}
	b.localFns = append(b.localFns, localExprFn{name: name, params: params, body: body})
	b.boundCtx = nil // force re-binding so the new function is visible
	return nil
}

// SetParam writes the parameter at index — O(1).
func (b *Batch) SetParam(index int, value float64) error {
	if err := b.checkValid(); err != nil {
		return err
	}
	if index < 0 || index >= len(b.paramValues) {
		return errors.ArrayBounds("parameters", index, len(b.paramValues))
	}
	b.paramValues[index] = value
	return nil
}

// SetParamByName writes the named parameter's value.
func (b *Batch) SetParamByName(name string, value float64) error {
	if err := b.checkValid(); err != nil {
		return err
	}
	for i, n := range b.paramNames {
		if string(n) == name {
			b.paramValues[i] = value
			return nil
		}
	}
	return errors.UnknownVariable(name)
}

// bind returns a Context wrapping ctx with this batch's local
// expression-defined functions registered, rebuilding the wrapper only when
// ctx's identity changes or a new local function was added since.
func (b *Batch) bind(ctx *rtcontext.Context) (*rtcontext.Context, error) {
	if b.boundCtx != nil && b.boundParent == ctx {
		return b.boundCtx, nil
	}
	child := ctx.Child()
	for _, fn := range b.localFns {
		if err := child.RegisterExpressionFunction(fn.name, fn.params, fn.body); err != nil {
			return nil, err
		}
	}
	b.boundParent = ctx
	b.boundCtx = child
	return child, nil
}

// Evaluate runs every stored expression against ctx (plus this batch's own
// parameter vector, consulted first) in registration order, writing each
// result into its result slot. A failing expression's slot gets NaN; the
// batch then either continues (default) or returns the failure immediately,
// per SetStopOnFirstError.
func (b *Batch) Evaluate(ctx *rtcontext.Context) error {
	if err := b.checkValid(); err != nil {
		return err
	}
	bound, err := b.bind(ctx)
	if err != nil {
		return err
	}
	b.ov.Names = b.paramNames
	b.ov.Values = b.paramValues
	for i, root := range b.exprRoots {
		v, err := b.ev.EvalWithOverrides(root, bound, &b.ov)
		if err != nil {
			b.results[i] = math.NaN()
			if b.stopOnFirstError {
				return err
			}
			continue
		}
		b.results[i] = v
	}
	return nil
}

// GetResult reads the result slot for expression index — O(1).
func (b *Batch) GetResult(index int) (float64, error) {
	if err := b.checkValid(); err != nil {
		return 0, err
	}
	if index < 0 || index >= len(b.results) {
		return 0, errors.ArrayBounds("results", index, len(b.results))
	}
	return b.results[index], nil
}

// Clear resets the arena (invalidating every parsed expression and compiled
// expression-function body) and empties the parameter and expression
// indexes. The Evaluator is retained and has its caches invalidated, since
// they may hold pointers into the memory the arena reset just reclaimed.
func (b *Batch) Clear() error {
	if err := b.checkValid(); err != nil {
		return err
	}
	b.a.Reset()
	b.ev.InvalidateCaches()
	b.paramNames = b.paramNames[:0]
	b.paramValues = b.paramValues[:0]
	b.exprSources = nil
	b.exprRoots = b.exprRoots[:0]
	b.results = b.results[:0]
	b.boundCtx = nil
	b.boundParent = nil
	b.ov = evaluator.Overrides{}
	return nil
}

// IsValid reports whether the handle is still usable (true) or has been
// freed (false).
func (b *Batch) IsValid() bool {
	return b.magic == magicAlive
}

// Free tears the batch down and marks the handle invalid. Calling Free on
// an already-freed batch is a no-op, never a double-free.
func (b *Batch) Free() {
	if b.magic == magicFreed {
		return
	}
	b.magic = magicFreed
	b.a = nil
	b.ev = nil
	b.paramNames = nil
	b.paramValues = nil
	b.exprSources = nil
	b.exprRoots = nil
	b.results = nil
	b.localFns = nil
	b.boundCtx = nil
	b.boundParent = nil
	b.ov = evaluator.Overrides{}
}
