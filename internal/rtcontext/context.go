// Package rtcontext implements Context: the name-resolution environment an
// Evaluator runs an expression against. A Context owns small fixed-capacity
// tables for variables, constants, arrays and attribute groups, and shares
// a *registry.Registry with its children until one of them registers a
// function of its own, at which point that child takes a private
// copy-on-write copy.
package rtcontext

import (
	"bytes"

	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/limits"
	"github.com/rtexpr/rtexpr/internal/registry"
)

type namedArray struct {
	name   []byte
	values []float64
}

type attrGroup struct {
	base  []byte
	keys  [][]byte
	vals  []float64
}

// Context is the name-resolution environment. The zero value is not
// usable; construct with New or Child.
type Context struct {
	parent *Context

	varNames  [][]byte
	varValues []float64

	constNames  [][]byte
	constValues []float64

	arrays []namedArray
	attrs  []attrGroup

	reg      *registry.Registry
	regOwned bool
}

// New constructs a root Context with an empty, owned registry.
func New() *Context {
	return &Context{reg: registry.New(), regOwned: true}
}

// Child constructs a Context whose parent is c. The child shares c's
// registry by pointer (cheap — no copy) until the child itself registers or
// unregisters a function, at which point it clones the registry first.
func (c *Context) Child() *Context {
	return &Context{parent: c, reg: c.reg}
}

// NewScratch constructs an unbound Context meant only to be installed via
// Rebind before use — it carries no registry of its own and resolves
// nothing until bound. The evaluator's pooled context-stack slots use this
// once per depth instead of Child, since a pooled slot's parent (and
// therefore its borrowed registry) changes on every call it serves.
func NewScratch() *Context {
	return &Context{}
}

// Rebind reinitializes c in place as a child of parent with exactly the
// variable bindings named by names (bound to the corresponding values),
// reusing c's existing backing arrays instead of allocating fresh ones once
// they have grown to fit the widest call c has ever served. names is not
// copied — callers must pass byte slices that outlive the call, such as a
// FunctionRegistry's interned parameter names — only values are copied.
//
// This is the evaluator's allocation-free replacement for Child plus a
// SetParameter loop on the expression-defined-function call path: Child
// allocates a new *Context every call, and SetParameter defensively copies
// and length-checks each name, neither of which the hot path can afford.
func (c *Context) Rebind(parent *Context, names [][]byte, values []float64) {
	c.parent = parent
	c.reg = parent.reg
	c.regOwned = false
	c.varNames = append(c.varNames[:0], names...)
	c.varValues = append(c.varValues[:0], values...)
	c.constNames = c.constNames[:0]
	c.constValues = c.constValues[:0]
	c.arrays = c.arrays[:0]
	c.attrs = c.attrs[:0]
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > limits.MaxVariableNameLen {
		return errors.New(errors.KindCapacity, "variables", "name %q exceeds %d bytes", name, limits.MaxVariableNameLen)
	}
	return nil
}

func indexOfName(names [][]byte, name []byte) int {
	for i, n := range names {
		if bytes.Equal(n, name) {
			return i
		}
	}
	return -1
}

// SetParameter creates or updates a mutable variable in this Context's own
// table (never the parent's).
func (c *Context) SetParameter(name string, value float64) error {
	if err := validateName(name); err != nil {
		return err
	}
	nb := []byte(name)
	if i := indexOfName(c.varNames, nb); i >= 0 {
		c.varValues[i] = value
		return nil
	}
	if len(c.varNames) >= limits.MaxVariables {
		return errors.Capacity("variables")
	}
	c.varNames = append(c.varNames, nb)
	c.varValues = append(c.varValues, value)
	return nil
}

// SetConstant installs an immutable constant in this Context's own table.
// Constants and variables share one resolution namespace but live in
// separate tables so a constant can never be overwritten by SetParameter.
func (c *Context) SetConstant(name string, value float64) error {
	if err := validateName(name); err != nil {
		return err
	}
	nb := []byte(name)
	if indexOfName(c.constNames, nb) >= 0 {
		return errors.New(errors.KindName, "constant", "constant %q already registered", name)
	}
	if len(c.constNames) >= limits.MaxConstants {
		return errors.Capacity("variables")
	}
	c.constNames = append(c.constNames, nb)
	c.constValues = append(c.constValues, value)
	return nil
}

// SetArray installs or replaces a named array in this Context's own table.
func (c *Context) SetArray(name string, values []float64) error {
	if err := validateName(name); err != nil {
		return err
	}
	nb := []byte(name)
	for i := range c.arrays {
		if bytes.Equal(c.arrays[i].name, nb) {
			c.arrays[i].values = values
			return nil
		}
	}
	if len(c.arrays) >= limits.MaxArrays {
		return errors.Capacity("variables")
	}
	c.arrays = append(c.arrays, namedArray{name: nb, values: values})
	return nil
}

// SetAttribute installs or replaces one key within a named attribute group
// (e.g. SetAttribute("sensor", "temperature", 21.5) for sensor.temperature).
func (c *Context) SetAttribute(base, key string, value float64) error {
	if err := validateName(base); err != nil {
		return err
	}
	bb, kb := []byte(base), []byte(key)
	for i := range c.attrs {
		if !bytes.Equal(c.attrs[i].base, bb) {
			continue
		}
		if j := indexOfName(c.attrs[i].keys, kb); j >= 0 {
			c.attrs[i].vals[j] = value
			return nil
		}
		c.attrs[i].keys = append(c.attrs[i].keys, kb)
		c.attrs[i].vals = append(c.attrs[i].vals, value)
		return nil
	}
	if len(c.attrs) >= limits.MaxAttributeGroups {
		return errors.Capacity("variables")
	}
	c.attrs = append(c.attrs, attrGroup{base: bb, keys: [][]byte{kb}, vals: []float64{value}})
	return nil
}

// GetVariable resolves name against this Context's own variable and
// constant tables, then its parent chain, root last.
func (c *Context) GetVariable(name []byte) (float64, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if i := indexOfName(ctx.varNames, name); i >= 0 {
			return ctx.varValues[i], true
		}
		if i := indexOfName(ctx.constNames, name); i >= 0 {
			return ctx.constValues[i], true
		}
	}
	return 0, false
}

// GetArray resolves a named array against this Context's own table, then
// its parent chain.
func (c *Context) GetArray(name []byte) ([]float64, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		for i := range ctx.arrays {
			if bytes.Equal(ctx.arrays[i].name, name) {
				return ctx.arrays[i].values, true
			}
		}
	}
	return nil, false
}

// GetAttribute resolves base.key against this Context's own table, then its
// parent chain.
func (c *Context) GetAttribute(base, key []byte) (float64, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		for i := range ctx.attrs {
			if !bytes.Equal(ctx.attrs[i].base, base) {
				continue
			}
			if j := indexOfName(ctx.attrs[i].keys, key); j >= 0 {
				return ctx.attrs[i].vals[j], true
			}
		}
	}
	return 0, false
}

// own returns c's registry, cloning it first (copy-on-write) if c does not
// yet hold a private copy.
func (c *Context) own() *registry.Registry {
	if !c.regOwned {
		c.reg = c.reg.Clone()
		c.regOwned = true
	}
	return c.reg
}

// RegisterNativeFunction installs a native callback in this Context's own
// (owned, copy-on-write) registry.
func (c *Context) RegisterNativeFunction(name string, arity int, fn registry.NativeFunc) error {
	return c.own().RegisterNative(name, arity, fn)
}

// RegisterUserFunction installs a user callback in this Context's own
// registry.
func (c *Context) RegisterUserFunction(name string, arity int, userData any, fn registry.UserFunc) error {
	return c.own().RegisterUser(name, arity, userData, fn)
}

// RegisterExpressionFunction installs an expression-defined function body
// in this Context's own registry. Compilation is deferred to first call.
func (c *Context) RegisterExpressionFunction(name string, params []string, body string) error {
	return c.own().RegisterExpr(name, params, body)
}

// UnregisterExpressionFunction removes an expression-defined function from
// this Context's own registry. Any Evaluator caching a compiled body for
// name must observe the registry's Version() change and drop it.
func (c *Context) UnregisterExpressionFunction(name string) {
	c.own().UnregisterExpr(name)
}

// ResolveFunction resolves name against this Context's own registry, then
// its parent chain, honoring child-before-parent and (within one registry)
// expression-defined > native > user.
func (c *Context) ResolveFunction(name string) (registry.Resolved, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if r, ok := ctx.reg.Lookup(name); ok {
			return r, true
		}
	}
	return registry.Resolved{}, false
}

// RegistryVersion returns the version of c's own registry; parent
// registries are not consulted. Used by the evaluator to validate a cached
// resolution cheaply without repeating the chain walk.
func (c *Context) RegistryVersion() uint64 {
	return c.reg.Version()
}

// Parent returns c's parent Context, or nil for a root.
func (c *Context) Parent() *Context { return c.parent }
