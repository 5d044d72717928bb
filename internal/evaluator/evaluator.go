// Package evaluator implements the iterative, explicit-stack tree walker
// that reduces an arena AST to a scalar. It never recurses in Go: every
// pending action — "evaluate this subtree", "combine these two operands",
// "collect the next function argument" — is a frame on a fixed-capacity
// operation stack, so expression nesting depth is bounded by a constant
// instead of the Go call stack. An Evaluator is constructed once per Batch
// and reused for every subsequent evaluation; Reset is O(1) and allocates
// nothing.
package evaluator

import (
	"math"

	"github.com/rtexpr/rtexpr/internal/arena"
	"github.com/rtexpr/rtexpr/internal/ast"
	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/limits"
	"github.com/rtexpr/rtexpr/internal/parser"
	"github.com/rtexpr/rtexpr/internal/registry"
	"github.com/rtexpr/rtexpr/internal/rtcontext"
)

// opKind tags which action an operation-stack frame performs when popped.
type opKind uint8

const (
	opEval opKind = iota
	opApplyUnary
	opCompleteBinary
	opShortCircuit
	opCompleteLogical
	opCollectArgs
	opApplyFunction
	opPopContext
	opConditional
	opLookupVariable
	opAccessArray
	opAccessAttribute
)

// opFrame is the evaluator's own flat tagged union, one variant per table
// entry in the state machine; which fields matter depends on kind. This
// mirrors ast.Node's flat-struct design for the same reason: a frame must
// live in a preallocated array slot, not behind an interface.
type opFrame struct {
	kind opKind
	ctx  *rtcontext.Context

	node *ast.Node // Eval; CollectArgs (the Function node, for its Args slice)

	op ast.Op // ApplyUnary, CompleteBinary

	rightNode *ast.Node // ShortCircuit: right operand, evaluated only if not short-circuited
	isAnd     bool       // ShortCircuit, CompleteLogical: And vs Or

	name      []byte          // ApplyFunction: function name
	pos       errors.Position // ApplyFunction: call-site position, for a stack frame on error
	arity     int             // ApplyFunction: total argument count
	argsStart int             // CollectArgs, ApplyFunction: base offset into the argument buffer
	collected int             // CollectArgs: how many arguments have been filled so far

	thenNode *ast.Node // Conditional
	elseNode *ast.Node // Conditional

	varName  []byte // LookupVariable, AccessArray
	attrBase []byte // AccessAttribute
	attrKey  []byte // AccessAttribute
}

// Overrides is the per-evaluation parameter-override table a Batch installs
// ahead of its own Context so that LookupVariable checks it first. A plain
// Evaluator.Eval call (no Batch involved) passes a nil Overrides, which
// simply falls through to Context resolution — the same path the override
// table would otherwise shadow.
type Overrides struct {
	Names  [][]byte
	Values []float64
}

// Lookup scans the override table for name.
func (o *Overrides) Lookup(name []byte) (float64, bool) {
	if o == nil {
		return 0, false
	}
	for i, n := range o.Names {
		if string(n) == string(name) {
			return o.Values[i], true
		}
	}
	return 0, false
}

// Evaluator holds every buffer described in the data model's "Evaluator
// state" section: an operation stack, a value stack, a shared argument
// buffer, a context stack, and two name-keyed caches. The stacks and the
// argument buffer are sized once at construction and never grow; a
// context-stack slot's Context is allocated the first time its depth is
// reached, and each cache gains an entry the first time a function name is
// resolved or compiled.
type Evaluator struct {
	arena *arena.Arena

	opStack []opFrame
	opTop   int

	valStack []float64
	valTop   int

	argBuf []float64
	argTop int

	// ctxStack is both the context-depth counter (ctxTop) and a pool of
	// reusable child Context objects, one per depth, rebound in place on
	// every expression-defined-function call instead of being replaced by a
	// freshly allocated Context (see Context.Rebind). A slot is nil until
	// its depth is reached for the first time.
	ctxStack []*rtcontext.Context
	ctxTop   int

	// callNames and callPos mirror ctxStack one-for-one: callNames[i]/
	// callPos[i] record the callee name and call-site position of the
	// expression-defined-function call that pushed ctxStack[i]. Kept
	// as raw []byte/Position, never converted to a string, so recording
	// them costs nothing on the call path — conversion only happens in
	// attachTrace, when an error is actually escaping.
	callNames [][]byte
	callPos   []errors.Position

	overrides *Overrides

	resolvedCache map[string]registry.Resolved
	compiledCache map[string]*ast.Node
	cacheVersion  uint64
}

// New constructs an Evaluator bound to a. The arena is where lazily-parsed
// expression-function bodies are compiled, so it must outlive the
// Evaluator (a Batch owns both and guarantees this).
func New(a *arena.Arena) *Evaluator {
	return &Evaluator{
		arena:         a,
		opStack:       make([]opFrame, limits.MaxStackDepth),
		valStack:      make([]float64, limits.MaxValueStackDepth),
		argBuf:        make([]float64, limits.MaxArgBuffer),
		ctxStack:      make([]*rtcontext.Context, limits.MaxContextStackDepth),
		callNames:     make([][]byte, limits.MaxContextStackDepth),
		callPos:       make([]errors.Position, limits.MaxContextStackDepth),
		resolvedCache: make(map[string]registry.Resolved),
		compiledCache: make(map[string]*ast.Node),
	}
}

// reset rewinds every buffer to empty without touching capacities — the
// hot-path reuse step. Buffer contents below the old top are left as-is;
// they carry no destructors and are overwritten before they are read again.
func (ev *Evaluator) reset() {
	ev.opTop = 0
	ev.valTop = 0
	ev.argTop = 0
	ev.ctxTop = 0
	ev.overrides = nil
}

// InvalidateCaches drops both name caches unconditionally. A Batch calls
// this after resetting its arena: any compiled expression-function body
// cached here points into memory the arena reset just invalidated.
func (ev *Evaluator) InvalidateCaches() {
	clear(ev.resolvedCache)
	clear(ev.compiledCache)
}

// invalidateIfStale drops both name caches when ctx's registry has mutated
// since they were populated — the mechanism by which
// Context.UnregisterExpressionFunction (and any new registration) is
// observed without the evaluator holding a reference into the registry.
func (ev *Evaluator) invalidateIfStale(ctx *rtcontext.Context) {
	v := ctx.RegistryVersion()
	if v != ev.cacheVersion {
		clear(ev.resolvedCache)
		clear(ev.compiledCache)
		ev.cacheVersion = v
	}
}

// Eval evaluates root against ctx with no parameter overrides — the path
// used when an expression is evaluated directly against a Context, outside
// of a Batch.
func (ev *Evaluator) Eval(root *ast.Node, ctx *rtcontext.Context) (float64, error) {
	return ev.EvalWithOverrides(root, ctx, nil)
}

// EvalWithOverrides evaluates root against ctx, consulting ov before the
// Context chain for every variable lookup. A Batch uses this with its
// indexed parameter vector as ov.
func (ev *Evaluator) EvalWithOverrides(root *ast.Node, ctx *rtcontext.Context, ov *Overrides) (float64, error) {
	ev.reset()
	ev.overrides = ov
	ev.invalidateIfStale(ctx)
	if err := ev.pushOp(opFrame{kind: opEval, node: root, ctx: ctx}); err != nil {
		return 0, err
	}
	return ev.run()
}

func (ev *Evaluator) run() (float64, error) {
	for ev.opTop > 0 {
		frame := ev.popOp()
		if err := ev.step(frame); err != nil {
			return 0, ev.attachTrace(err)
		}
	}
	if ev.valTop != 1 {
		return 0, errors.Internal("evaluation ended with %d values on the value stack, want 1", ev.valTop)
	}
	return ev.valStack[0], nil
}

func (ev *Evaluator) pushOp(f opFrame) error {
	if ev.opTop >= len(ev.opStack) {
		return errors.Capacity("call_depth")
	}
	ev.opStack[ev.opTop] = f
	ev.opTop++
	return nil
}

func (ev *Evaluator) popOp() opFrame {
	ev.opTop--
	return ev.opStack[ev.opTop]
}

func (ev *Evaluator) pushVal(v float64) error {
	if ev.valTop >= len(ev.valStack) {
		return errors.Capacity("arena")
	}
	ev.valStack[ev.valTop] = v
	ev.valTop++
	return nil
}

func (ev *Evaluator) popVal() float64 {
	ev.valTop--
	return ev.valStack[ev.valTop]
}

func (ev *Evaluator) peekVal() float64 {
	return ev.valStack[ev.valTop-1]
}

func (ev *Evaluator) setPeekVal(v float64) {
	ev.valStack[ev.valTop-1] = v
}

func (ev *Evaluator) reserveArgs(n int) (int, error) {
	if ev.argTop+n > len(ev.argBuf) {
		return 0, errors.Capacity("arena")
	}
	start := ev.argTop
	ev.argTop += n
	return start, nil
}

// pushBoundCtx binds names to values in the pooled child context at the
// current depth — allocating that slot's Context once, the first time this
// depth is ever reached, and rebinding it in place on every call thereafter
// — then pushes the depth. This is the expression-defined-function call
// path's replacement for parent.Child() plus a SetParameter loop: Rebind
// reuses the slot's backing arrays instead of growing a fresh Context from
// nil on every call.
func (ev *Evaluator) pushBoundCtx(parent *rtcontext.Context, name []byte, pos errors.Position, names [][]byte, values []float64) (*rtcontext.Context, error) {
	if ev.ctxTop >= len(ev.ctxStack) {
		return nil, errors.Capacity("call_depth")
	}
	slot := ev.ctxStack[ev.ctxTop]
	if slot == nil {
		slot = rtcontext.NewScratch()
		ev.ctxStack[ev.ctxTop] = slot
	}
	slot.Rebind(parent, names, values)
	ev.callNames[ev.ctxTop] = name
	ev.callPos[ev.ctxTop] = pos
	ev.ctxTop++
	return slot, nil
}

// attachTrace builds a StackTrace from the expression-defined-function calls
// still active when err escaped run's loop and attaches it, so a failure
// inside a deeply nested call (e.g. a bad argument several fact(n-1) levels
// down) reports the whole chain, not just the innermost frame. Building the
// trace converts each []byte callee name to a string, which only happens
// here, on the error path — never on a successful call.
func (ev *Evaluator) attachTrace(err error) error {
	e, ok := err.(*errors.Error)
	if !ok || ev.ctxTop == 0 {
		return err
	}
	trace := make(errors.StackTrace, ev.ctxTop)
	for i := 0; i < ev.ctxTop; i++ {
		trace[i] = errors.StackFrame{FunctionName: string(ev.callNames[i]), Pos: ev.callPos[i]}
	}
	return e.WithTrace(trace)
}

// truthy is the engine's boolean coercion: zero and NaN are false,
// everything else is true.
func truthy(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (ev *Evaluator) step(f opFrame) error {
	switch f.kind {
	case opEval:
		return ev.stepEval(f.node, f.ctx)
	case opApplyUnary:
		return ev.stepApplyUnary(f.op)
	case opCompleteBinary:
		return ev.stepCompleteBinary(f.op)
	case opShortCircuit:
		return ev.stepShortCircuit(f)
	case opCompleteLogical:
		return ev.stepCompleteLogical(f.isAnd)
	case opCollectArgs:
		return ev.stepCollectArgs(f)
	case opApplyFunction:
		return ev.stepApplyFunction(f)
	case opPopContext:
		ev.ctxTop--
		return nil
	case opConditional:
		return ev.stepConditional(f)
	case opLookupVariable:
		return ev.stepLookupVariable(f.varName, f.ctx)
	case opAccessArray:
		return ev.stepAccessArray(f.varName, f.ctx)
	case opAccessAttribute:
		return ev.stepAccessAttribute(f.attrBase, f.attrKey, f.ctx)
	default:
		return errors.Internal("unknown operation frame kind %d", f.kind)
	}
}

func (ev *Evaluator) stepEval(n *ast.Node, ctx *rtcontext.Context) error {
	switch n.Kind {
	case ast.Constant:
		return ev.pushVal(n.Num)

	case ast.Variable:
		return ev.pushOp(opFrame{kind: opLookupVariable, varName: n.Name, ctx: ctx})

	case ast.Array:
		if err := ev.pushOp(opFrame{kind: opAccessArray, varName: n.Name, ctx: ctx}); err != nil {
			return err
		}
		return ev.pushOp(opFrame{kind: opEval, node: n.Index, ctx: ctx})

	case ast.Attribute:
		return ev.pushOp(opFrame{kind: opAccessAttribute, attrBase: n.Name, attrKey: n.Attr, ctx: ctx})

	case ast.UnaryOp:
		if err := ev.pushOp(opFrame{kind: opApplyUnary, op: n.Op}); err != nil {
			return err
		}
		return ev.pushOp(opFrame{kind: opEval, node: n.Left, ctx: ctx})

	case ast.BinaryOp:
		if err := ev.pushOp(opFrame{kind: opCompleteBinary, op: n.Op}); err != nil {
			return err
		}
		if err := ev.pushOp(opFrame{kind: opEval, node: n.Right, ctx: ctx}); err != nil {
			return err
		}
		return ev.pushOp(opFrame{kind: opEval, node: n.Left, ctx: ctx})

	case ast.LogicalOp:
		if err := ev.pushOp(opFrame{kind: opShortCircuit, rightNode: n.Right, isAnd: n.Op == ast.OpAnd, ctx: ctx}); err != nil {
			return err
		}
		return ev.pushOp(opFrame{kind: opEval, node: n.Left, ctx: ctx})

	case ast.Conditional:
		if err := ev.pushOp(opFrame{kind: opConditional, thenNode: n.Then, elseNode: n.Else, ctx: ctx}); err != nil {
			return err
		}
		return ev.pushOp(opFrame{kind: opEval, node: n.Cond, ctx: ctx})

	case ast.Function:
		return ev.stepEvalFunction(n, ctx)

	default:
		return errors.Internal("unknown node kind %d", n.Kind)
	}
}

func (ev *Evaluator) stepEvalFunction(n *ast.Node, ctx *rtcontext.Context) error {
	argsStart, err := ev.reserveArgs(len(n.Args))
	if err != nil {
		return err
	}
	if err := ev.pushOp(opFrame{kind: opApplyFunction, name: n.Name, pos: n.Pos, arity: len(n.Args), argsStart: argsStart, ctx: ctx}); err != nil {
		return err
	}
	if len(n.Args) == 0 {
		return nil
	}
	if err := ev.pushOp(opFrame{kind: opCollectArgs, node: n, argsStart: argsStart, collected: 0, ctx: ctx}); err != nil {
		return err
	}
	return ev.pushOp(opFrame{kind: opEval, node: n.Args[0], ctx: ctx})
}

func (ev *Evaluator) stepApplyUnary(op ast.Op) error {
	v := ev.popVal()
	switch op {
	case ast.OpNeg:
		return ev.pushVal(-v)
	case ast.OpPos:
		return ev.pushVal(v)
	case ast.OpNot:
		return ev.pushVal(boolVal(!truthy(v)))
	default:
		return errors.Internal("unknown unary operator %d", op)
	}
}

func (ev *Evaluator) stepCompleteBinary(op ast.Op) error {
	right := ev.popVal()
	left := ev.popVal()
	switch op {
	case ast.OpAdd:
		return ev.pushVal(left + right)
	case ast.OpSub:
		return ev.pushVal(left - right)
	case ast.OpMul:
		return ev.pushVal(left * right)
	case ast.OpDiv:
		return ev.pushVal(left / right)
	case ast.OpMod:
		return ev.pushVal(math.Mod(left, right))
	case ast.OpPow:
		return ev.pushVal(math.Pow(left, right))
	case ast.OpLt:
		return ev.pushVal(boolVal(left < right))
	case ast.OpLe:
		return ev.pushVal(boolVal(left <= right))
	case ast.OpGt:
		return ev.pushVal(boolVal(left > right))
	case ast.OpGe:
		return ev.pushVal(boolVal(left >= right))
	case ast.OpEq:
		return ev.pushVal(boolVal(left == right))
	case ast.OpNe:
		return ev.pushVal(boolVal(left != right))
	default:
		return errors.Internal("unknown binary operator %d", op)
	}
}

func (ev *Evaluator) stepShortCircuit(f opFrame) error {
	left := ev.peekVal()
	if f.isAnd {
		if !truthy(left) {
			ev.setPeekVal(0)
			return nil
		}
	} else {
		if truthy(left) {
			ev.setPeekVal(1)
			return nil
		}
	}
	if err := ev.pushOp(opFrame{kind: opCompleteLogical, isAnd: f.isAnd}); err != nil {
		return err
	}
	return ev.pushOp(opFrame{kind: opEval, node: f.rightNode, ctx: f.ctx})
}

func (ev *Evaluator) stepCompleteLogical(isAnd bool) error {
	right := ev.popVal()
	left := ev.popVal()
	if isAnd {
		return ev.pushVal(boolVal(truthy(left) && truthy(right)))
	}
	return ev.pushVal(boolVal(truthy(left) || truthy(right)))
}

func (ev *Evaluator) stepCollectArgs(f opFrame) error {
	v := ev.popVal()
	ev.argBuf[f.argsStart+f.collected] = v
	collected := f.collected + 1
	if collected == len(f.node.Args) {
		return nil
	}
	if err := ev.pushOp(opFrame{kind: opCollectArgs, node: f.node, argsStart: f.argsStart, collected: collected, ctx: f.ctx}); err != nil {
		return err
	}
	return ev.pushOp(opFrame{kind: opEval, node: f.node.Args[collected], ctx: f.ctx})
}

func (ev *Evaluator) stepApplyFunction(f opFrame) error {
	args := ev.argBuf[f.argsStart : f.argsStart+f.arity]
	resolved, ok := ev.resolveFunction(f.name, f.ctx)
	ev.argTop = f.argsStart
	if !ok {
		return errors.UnknownFunction(string(f.name))
	}
	switch resolved.Kind {
	case registry.KindNativeFunc:
		if f.arity != resolved.Native.Arity {
			return errors.ArityMismatch(string(f.name), resolved.Native.Arity, f.arity)
		}
		return ev.pushVal(resolved.Native.Fn(args))

	case registry.KindUserFunc:
		if f.arity != resolved.User.Arity {
			return errors.ArityMismatch(string(f.name), resolved.User.Arity, f.arity)
		}
		return ev.pushVal(resolved.User.Fn(resolved.User.UserData, args))

	case registry.KindExprFunc:
		if f.arity != len(resolved.Expr.Params) {
			return errors.ArityMismatch(string(f.name), len(resolved.Expr.Params), f.arity)
		}
		body, err := ev.compileExprFunc(f.name, resolved.Expr)
		if err != nil {
			return err
		}
		child, err := ev.pushBoundCtx(f.ctx, f.name, f.pos, resolved.Expr.ParamNames, args)
		if err != nil {
			return err
		}
		if err := ev.pushOp(opFrame{kind: opPopContext}); err != nil {
			return err
		}
		return ev.pushOp(opFrame{kind: opEval, node: body, ctx: child})

	default:
		return errors.UnknownFunction(string(f.name))
	}
}

func (ev *Evaluator) stepConditional(f opFrame) error {
	cond := ev.popVal()
	if truthy(cond) {
		return ev.pushOp(opFrame{kind: opEval, node: f.thenNode, ctx: f.ctx})
	}
	return ev.pushOp(opFrame{kind: opEval, node: f.elseNode, ctx: f.ctx})
}

func (ev *Evaluator) stepLookupVariable(name []byte, ctx *rtcontext.Context) error {
	if v, ok := ev.overrides.Lookup(name); ok {
		return ev.pushVal(v)
	}
	if v, ok := ctx.GetVariable(name); ok {
		return ev.pushVal(v)
	}
	return errors.UnknownVariable(string(name))
}

func (ev *Evaluator) stepAccessArray(name []byte, ctx *rtcontext.Context) error {
	idxVal := ev.popVal()
	values, ok := ctx.GetArray(name)
	if !ok {
		return errors.UnknownArray(string(name))
	}
	if idxVal < 0 {
		return errors.ArrayBounds(string(name), int(idxVal), len(values))
	}
	idx := int(math.Trunc(idxVal))
	if idx >= len(values) {
		return errors.ArrayBounds(string(name), idx, len(values))
	}
	return ev.pushVal(values[idx])
}

func (ev *Evaluator) stepAccessAttribute(base, key []byte, ctx *rtcontext.Context) error {
	v, ok := ctx.GetAttribute(base, key)
	if !ok {
		return errors.UnknownAttribute(string(base), string(key))
	}
	return ev.pushVal(v)
}

// resolveFunction looks up name against the per-Evaluator resolution cache
// before falling through to ctx's registry chain. name comes straight from
// the arena-backed AST node (opFrame.name); on the cache-hit path — every
// call after a function's first — name is only ever used as a map-index
// expression (resolvedCache[string(name)]), the one place the Go compiler
// elides the []byte-to-string copy, so a repeated call allocates nothing.
// Only the first call for a given name, which must consult ctx.ResolveFunction
// and populate the cache, pays for a real conversion.
func (ev *Evaluator) resolveFunction(name []byte, ctx *rtcontext.Context) (registry.Resolved, bool) {
	if r, ok := ev.resolvedCache[string(name)]; ok {
		return r, true
	}
	r, ok := ctx.ResolveFunction(string(name))
	if ok {
		ev.resolvedCache[string(name)] = r
	}
	return r, ok
}

// compileExprFunc mirrors resolveFunction's cache-then-populate shape for
// lazily parsed expression-function bodies, with the same allocation
// profile: free on a cache hit, one conversion on the first call per name.
func (ev *Evaluator) compileExprFunc(name []byte, ef registry.ExprFunc) (*ast.Node, error) {
	if n, ok := ev.compiledCache[string(name)]; ok {
		return n, nil
	}
	n, err := parser.Parse(ef.Body, ev.arena)
	if err != nil {
		return nil, err
	}
	ev.compiledCache[string(name)] = n
	return n, nil
}
