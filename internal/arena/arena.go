// Package arena implements the engine's bump allocator: the single owner of
// every AST node and interned byte string produced by a parse. An Arena is
// sized once at construction; it never reaches back to the process
// allocator afterwards. Reset reclaims everything in O(1) by rewinding three
// cursors, invalidating every reference handed out since the last reset.
//
// A raw byte-oriented bump allocator handing back void* would require
// unsafe pointer casts to hand back typed AST nodes in Go. Instead this
// arena specializes into three preallocated, fixed-capacity pools — one of
// ast.Node values, one of *ast.Node for function argument lists, one of
// bytes for interned names — which gives the same
// O(1)-allocate/O(1)-reset behavior without unsafe code.
package arena

import (
	"github.com/rtexpr/rtexpr/internal/ast"
	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/telemetry"
)

// Default pool capacities, sized for a typical embedded build with a
// modest expression set. batch.NewWithCapacity lets a caller override these
// with explicit pool capacities; see internal/batch.
const (
	DefaultNodeCapacity    = 2048
	DefaultNodePtrCapacity = 4096
	DefaultStringBytes     = 16 * 1024
)

// Arena owns all memory for one or more parses until Reset or the arena is
// dropped. The zero value is not usable; construct with New.
type Arena struct {
	nodes    []ast.Node
	nodePtrs []*ast.Node
	strings  []byte

	telemetry *telemetry.Recorder
}

// New constructs an Arena with the given pool capacities. rec may be nil to
// disable telemetry.
func New(nodeCap, nodePtrCap, stringBytes int, rec *telemetry.Recorder) *Arena {
	a := &Arena{
		nodes:     make([]ast.Node, 0, nodeCap),
		nodePtrs:  make([]*ast.Node, 0, nodePtrCap),
		strings:   make([]byte, 0, stringBytes),
		telemetry: rec,
	}
	total := nodeCap*nodeSize + nodePtrCap*ptrSize + stringBytes
	a.telemetry.RecordAlloc(total)
	return a
}

// NewDefault constructs an Arena using the package's default capacities.
func NewDefault(rec *telemetry.Recorder) *Arena {
	return New(DefaultNodeCapacity, DefaultNodePtrCapacity, DefaultStringBytes, rec)
}

const (
	nodeSize = 128 // representative size of ast.Node for telemetry purposes
	ptrSize  = 8
)

// AllocNode copies n into the node pool and returns a stable pointer to the
// copy, valid until the next Reset. Returns CapacityExceeded("arena") if the
// node pool is full.
func (a *Arena) AllocNode(n ast.Node) (*ast.Node, error) {
	if len(a.nodes) == cap(a.nodes) {
		return nil, errors.Capacity("arena")
	}
	a.nodes = append(a.nodes, n)
	return &a.nodes[len(a.nodes)-1], nil
}

// AllocStr copies b into the arena's string pool and returns an immutable
// slice view over the copy. Returns CapacityExceeded("arena") if the string
// pool is full.
func (a *Arena) AllocStr(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(a.strings)+len(b) > cap(a.strings) {
		return nil, errors.Capacity("arena")
	}
	start := len(a.strings)
	a.strings = append(a.strings, b...)
	return a.strings[start : start+len(b) : start+len(b)], nil
}

// NodeListBuilder accumulates a Function node's arguments into the arena's
// node-pointer pool, then Freeze()s them into an immutable, contiguous,
// source-ordered slice — the arena-owned growable sequence described for
// function argument lists.
type NodeListBuilder struct {
	arena *Arena
	start int
}

// NewNodeList starts accumulating a new argument list.
func (a *Arena) NewNodeList() *NodeListBuilder {
	return &NodeListBuilder{arena: a, start: len(a.nodePtrs)}
}

// Append adds one node reference to the list being built.
func (b *NodeListBuilder) Append(n *ast.Node) error {
	if len(b.arena.nodePtrs) == cap(b.arena.nodePtrs) {
		return errors.Capacity("arena")
	}
	b.arena.nodePtrs = append(b.arena.nodePtrs, n)
	return nil
}

// Freeze returns the accumulated list as an immutable slice. The builder
// must not be used again afterwards.
func (b *NodeListBuilder) Freeze() []*ast.Node {
	return b.arena.nodePtrs[b.start:len(b.arena.nodePtrs):len(b.arena.nodePtrs)]
}

// Reset invalidates every reference handed out since construction (or the
// previous Reset) and sets usage back to zero. The caller must guarantee
// nothing still holds a reference into this arena.
func (a *Arena) Reset() {
	freed := len(a.nodes)*nodeSize + len(a.nodePtrs)*ptrSize + len(a.strings)
	a.nodes = a.nodes[:0]
	a.nodePtrs = a.nodePtrs[:0]
	a.strings = a.strings[:0]
	a.telemetry.RecordFree(freed)
}

// BytesUsed reports current high-water usage across all pools, for
// telemetry and capacity-planning purposes.
func (a *Arena) BytesUsed() int {
	return len(a.nodes)*nodeSize + len(a.nodePtrs)*ptrSize + len(a.strings)
}

// NodeCap, NodePtrCap and StringCap report the fixed pool capacities.
func (a *Arena) NodeCap() int     { return cap(a.nodes) }
func (a *Arena) NodePtrCap() int  { return cap(a.nodePtrs) }
func (a *Arena) StringCap() int   { return cap(a.strings) }
func (a *Arena) NodeLen() int     { return len(a.nodes) }
func (a *Arena) NodePtrLen() int  { return len(a.nodePtrs) }
func (a *Arena) StringLen() int   { return len(a.strings) }
