// Package registry implements FunctionRegistry: an owned mapping from
// function name to one of three descriptor kinds (native, expression-
// defined, user), shared cheaply between a Context and its children via a
// single pointer, and copy-on-write so that a child's own registrations
// never leak into its parent's.
package registry

import (
	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/limits"
)

// NativeFunc is a host-supplied callback: a contiguous scalar argument
// slice in, one scalar out. It must not block — the evaluator calls it
// synchronously on the caller's thread.
type NativeFunc func(args []float64) float64

// UserFunc is equivalent to NativeFunc but carries an opaque user-data
// value alongside the call, for hosts that need per-registration state
// without a Go closure.
type UserFunc func(userData any, args []float64) float64

// Native describes a native function descriptor.
type Native struct {
	Arity int
	Fn    NativeFunc
}

// User describes a user-callback function descriptor.
type User struct {
	Arity    int
	UserData any
	Fn       UserFunc
}

// ExprFunc describes an expression-defined function: its formal parameter
// names and the source text of its body. The body is parsed lazily by the
// evaluator on first call and cached there, not here — a registry may be
// shared by several (batch, arena) pairs, each of which needs its own
// compiled copy.
//
// ParamNames mirrors Params as byte slices, computed once at registration
// time. The evaluator binds a call's arguments into a pooled child context
// once per invocation; it needs the parameter names as []byte (Context's
// own currency) and must not convert Params []string to []byte on every
// call, since that would reintroduce a per-call allocation on the
// expression-defined-function hot path Params []string exists for.
type ExprFunc struct {
	Params     []string
	ParamNames [][]byte
	Body       string
}

// Registry is the owned, versioned map from name to descriptor. The zero
// value is not usable for registration; construct with New. Version
// increments on every mutation, so an Evaluator caching resolutions can
// detect staleness cheaply (see internal/evaluator).
type Registry struct {
	native  map[string]Native
	user    map[string]User
	expr    map[string]ExprFunc
	version uint64
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		native: make(map[string]Native),
		user:   make(map[string]User),
		expr:   make(map[string]ExprFunc),
	}
}

// Clone returns a private copy whose maps may be mutated independently of
// the receiver — the copy-on-write step a Context takes before its first
// mutating registration after Child.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		native:  make(map[string]Native, len(r.native)),
		user:    make(map[string]User, len(r.user)),
		expr:    make(map[string]ExprFunc, len(r.expr)),
		version: r.version,
	}
	for k, v := range r.native {
		c.native[k] = v
	}
	for k, v := range r.user {
		c.user[k] = v
	}
	for k, v := range r.expr {
		c.expr[k] = v
	}
	return c
}

// Version reports the current mutation counter, for cache invalidation.
func (r *Registry) Version() uint64 { return r.version }

func validateName(name string) error {
	if len(name) == 0 || len(name) > limits.MaxFunctionNameLen {
		return errors.New(errors.KindCapacity, "functions", "function name %q exceeds %d bytes", name, limits.MaxFunctionNameLen)
	}
	return nil
}

// RegisterNative installs a native function descriptor.
func (r *Registry) RegisterNative(name string, arity int, fn NativeFunc) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, exists := r.native[name]; !exists && len(r.native) >= limits.MaxNativeFunctions {
		return errors.Capacity("native_functions")
	}
	r.native[name] = Native{Arity: arity, Fn: fn}
	r.version++
	return nil
}

// RegisterUser installs a user-callback function descriptor.
func (r *Registry) RegisterUser(name string, arity int, userData any, fn UserFunc) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, exists := r.user[name]; !exists && len(r.user) >= limits.MaxUserFunctions {
		return errors.Capacity("functions")
	}
	r.user[name] = User{Arity: arity, UserData: userData, Fn: fn}
	r.version++
	return nil
}

// RegisterExpr installs an expression-defined function descriptor, storing
// only its parameter list and body source; nothing is parsed here.
func (r *Registry) RegisterExpr(name string, params []string, body string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, exists := r.expr[name]; !exists && len(r.expr) >= limits.MaxExpressionFunctions {
		return errors.Capacity("functions")
	}
	paramNames := make([][]byte, len(params))
	for i, p := range params {
		paramNames[i] = []byte(p)
	}
	r.expr[name] = ExprFunc{Params: params, ParamNames: paramNames, Body: body}
	r.version++
	return nil
}

// UnregisterExpr removes an expression-defined function. Callers that
// cache a compiled body by name (the Evaluator) must observe the version
// bump and drop any stale cache entry for name.
func (r *Registry) UnregisterExpr(name string) {
	if _, ok := r.expr[name]; ok {
		delete(r.expr, name)
		r.version++
	}
}

// Kind tags which descriptor variant Lookup resolved to.
type Kind int

const (
	KindNone Kind = iota
	KindExprFunc
	KindNativeFunc
	KindUserFunc
)

// Resolved is the result of a successful Lookup.
type Resolved struct {
	Kind   Kind
	Expr   ExprFunc
	Native Native
	User   User
}

// Lookup resolves name within this one registry only (no parent chain —
// that is the Context's job), honoring the in-registry precedence
// expression-defined > native > user.
func (r *Registry) Lookup(name string) (Resolved, bool) {
	if e, ok := r.expr[name]; ok {
		return Resolved{Kind: KindExprFunc, Expr: e}, true
	}
	if n, ok := r.native[name]; ok {
		return Resolved{Kind: KindNativeFunc, Native: n}, true
	}
	if u, ok := r.user[name]; ok {
		return Resolved{Kind: KindUserFunc, User: u}, true
	}
	return Resolved{}, false
}
