package arena

import (
	"errors"
	"testing"

	"github.com/rtexpr/rtexpr/internal/ast"
	rterrors "github.com/rtexpr/rtexpr/internal/errors"
)

func TestAllocNodeStableAcrossFurtherAllocs(t *testing.T) {
	a := New(4, 4, 64, nil)
	n1, err := a.AllocNode(ast.Node{Kind: ast.Constant, Num: 1})
	if err != nil {
		t.Fatalf("AllocNode: %v", err)
	}
	if _, err := a.AllocNode(ast.Node{Kind: ast.Constant, Num: 2}); err != nil {
		t.Fatalf("AllocNode: %v", err)
	}
	if n1.Num != 1 {
		t.Fatalf("n1 corrupted by later alloc: got %v", n1.Num)
	}
}

func TestAllocNodeCapacityExceeded(t *testing.T) {
	a := New(1, 1, 8, nil)
	if _, err := a.AllocNode(ast.Node{Kind: ast.Constant}); err != nil {
		t.Fatalf("first alloc should succeed: %v", err)
	}
	_, err := a.AllocNode(ast.Node{Kind: ast.Constant})
	if !errors.Is(err, rterrors.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestAllocStrCopiesAndIsStable(t *testing.T) {
	a := New(1, 1, 4, nil)
	src := []byte("abcd")
	got, err := a.AllocStr(src)
	if err != nil {
		t.Fatalf("AllocStr: %v", err)
	}
	src[0] = 'z'
	if string(got) != "abcd" {
		t.Fatalf("arena string aliased caller's slice: got %q", got)
	}
}

func TestAllocStrCapacityExceeded(t *testing.T) {
	a := New(1, 1, 2, nil)
	_, err := a.AllocStr([]byte("abc"))
	if !errors.Is(err, rterrors.ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestResetReclaimsAllPools(t *testing.T) {
	a := New(2, 2, 8, nil)
	if _, err := a.AllocNode(ast.Node{Kind: ast.Constant}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AllocStr([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if a.BytesUsed() == 0 {
		t.Fatal("expected nonzero usage before reset")
	}
	a.Reset()
	if a.NodeLen() != 0 || a.NodePtrLen() != 0 || a.StringLen() != 0 {
		t.Fatal("reset did not zero pool lengths")
	}
	// Capacities survive reset; a fresh allocation must succeed again.
	if _, err := a.AllocNode(ast.Node{Kind: ast.Constant}); err != nil {
		t.Fatalf("alloc after reset: %v", err)
	}
}

func TestNodeListBuilderFreezesSourceOrder(t *testing.T) {
	a := New(8, 8, 8, nil)
	n0, _ := a.AllocNode(ast.Node{Kind: ast.Constant, Num: 0})
	n1, _ := a.AllocNode(ast.Node{Kind: ast.Constant, Num: 1})
	n2, _ := a.AllocNode(ast.Node{Kind: ast.Constant, Num: 2})

	b := a.NewNodeList()
	for _, n := range []*ast.Node{n0, n1, n2} {
		if err := b.Append(n); err != nil {
			t.Fatal(err)
		}
	}
	got := b.Freeze()
	if len(got) != 3 || got[0].Num != 0 || got[1].Num != 1 || got[2].Num != 2 {
		t.Fatalf("unexpected frozen list: %+v", got)
	}
}
