package registry

import (
	"testing"

	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/limits"
)

func TestLookupPrecedenceExprOverNativeOverUser(t *testing.T) {
	r := New()
	if err := r.RegisterUser("f", 0, nil, func(_ any, _ []float64) float64 { return 1 }); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterNative("f", 0, func(_ []float64) float64 { return 2 }); err != nil {
		t.Fatal(err)
	}
	resolved, ok := r.Lookup("f")
	if !ok || resolved.Kind != KindNativeFunc {
		t.Fatalf("native should shadow user, got kind=%v ok=%v", resolved.Kind, ok)
	}

	if err := r.RegisterExpr("f", []string{"x"}, "x"); err != nil {
		t.Fatal(err)
	}
	resolved, ok = r.Lookup("f")
	if !ok || resolved.Kind != KindExprFunc {
		t.Fatalf("expression-defined should shadow native, got kind=%v ok=%v", resolved.Kind, ok)
	}
}

func TestRegisterNativeCapacityExceeded(t *testing.T) {
	r := New()
	for i := 0; i < limits.MaxNativeFunctions; i++ {
		name := nthName(i)
		if err := r.RegisterNative(name, 0, func(_ []float64) float64 { return 0 }); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	err := r.RegisterNative(nthName(limits.MaxNativeFunctions), 0, func(_ []float64) float64 { return 0 })
	if err == nil {
		t.Fatal("expected CapacityExceeded, got nil")
	}
	if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindCapacity {
		t.Fatalf("expected KindCapacity, got %v", err)
	}
}

func TestRegisterOverwriteSameNameDoesNotConsumeExtraCapacity(t *testing.T) {
	r := New()
	for i := 0; i < limits.MaxNativeFunctions; i++ {
		if err := r.RegisterNative(nthName(i), 0, func(_ []float64) float64 { return 0 }); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if err := r.RegisterNative(nthName(0), 1, func(_ []float64) float64 { return 1 }); err != nil {
		t.Fatalf("overwrite existing name should not hit capacity: %v", err)
	}
}

func TestUnregisterExprBumpsVersion(t *testing.T) {
	r := New()
	v0 := r.Version()
	if err := r.RegisterExpr("f", nil, "1"); err != nil {
		t.Fatal(err)
	}
	v1 := r.Version()
	if v1 == v0 {
		t.Fatal("Version did not change after RegisterExpr")
	}
	r.UnregisterExpr("f")
	v2 := r.Version()
	if v2 == v1 {
		t.Fatal("Version did not change after UnregisterExpr")
	}
	if _, ok := r.Lookup("f"); ok {
		t.Fatal("f should no longer resolve after UnregisterExpr")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := New()
	if err := r.RegisterNative("f", 0, func(_ []float64) float64 { return 1 }); err != nil {
		t.Fatal(err)
	}
	c := r.Clone()
	if err := c.RegisterNative("g", 0, func(_ []float64) float64 { return 2 }); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Lookup("g"); ok {
		t.Fatal("mutation of clone leaked into original registry")
	}
	if _, ok := c.Lookup("f"); !ok {
		t.Fatal("clone should still resolve names present at clone time")
	}
}

func nthName(i int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	if i < len(alphabet) {
		return string(alphabet[i])
	}
	return string(alphabet[i%len(alphabet)]) + string(alphabet[(i/len(alphabet))%len(alphabet)])
}
