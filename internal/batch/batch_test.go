package batch

import (
	"math"
	"testing"

	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/rtcontext"
)

func TestBatchAddVariableRejectsDuplicate(t *testing.T) {
	b := New(nil)
	defer b.Free()
	if _, err := b.AddVariable("x", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddVariable("x", 2); err == nil {
		t.Fatal("expected DuplicateParameter error, got nil")
	}
}

func TestBatchSetParamAndEvaluate(t *testing.T) {
	b := New(nil)
	defer b.Free()
	ix, err := b.AddVariable("x", 2)
	if err != nil {
		t.Fatal(err)
	}
	ex, err := b.AddExpression("x * x")
	if err != nil {
		t.Fatal(err)
	}
	ctx := rtcontext.New()
	if err := b.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	v, err := b.GetResult(ex)
	if err != nil {
		t.Fatal(err)
	}
	if v != 4 {
		t.Fatalf("got %v, want 4", v)
	}

	if err := b.SetParam(ix, 5); err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	v, _ = b.GetResult(ex)
	if v != 25 {
		t.Fatalf("got %v, want 25", v)
	}
}

func TestBatchSetParamByName(t *testing.T) {
	b := New(nil)
	defer b.Free()
	if _, err := b.AddVariable("x", 1); err != nil {
		t.Fatal(err)
	}
	ex, err := b.AddExpression("x + 1")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetParamByName("x", 9); err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(rtcontext.New()); err != nil {
		t.Fatal(err)
	}
	v, _ := b.GetResult(ex)
	if v != 10 {
		t.Fatalf("got %v, want 10", v)
	}
}

func TestBatchContinuesOnErrorByDefault(t *testing.T) {
	b := New(nil)
	defer b.Free()
	okIdx, err := b.AddExpression("1 + 1")
	if err != nil {
		t.Fatal(err)
	}
	badIdx, err := b.AddExpression("unknown_var")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(rtcontext.New()); err != nil {
		t.Fatalf("Evaluate should not stop on first error by default: %v", err)
	}
	v, _ := b.GetResult(okIdx)
	if v != 2 {
		t.Fatalf("got %v, want 2", v)
	}
	bad, _ := b.GetResult(badIdx)
	if !math.IsNaN(bad) {
		t.Fatalf("failed expression result = %v, want NaN", bad)
	}
}

func TestBatchStopOnFirstErrorMode(t *testing.T) {
	b := New(nil)
	defer b.Free()
	b.SetStopOnFirstError(true)
	if _, err := b.AddExpression("unknown_var"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddExpression("1 + 1"); err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(rtcontext.New()); err == nil {
		t.Fatal("expected Evaluate to stop on first error, got nil")
	}
}

func TestBatchExpressionFunctionLazyCompilation(t *testing.T) {
	b := New(nil)
	defer b.Free()
	if err := b.AddExpressionFunction("sq", []string{"x"}, "x*x"); err != nil {
		t.Fatal(err)
	}
	ex, err := b.AddExpression("sq(4) + sq(3)")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(rtcontext.New()); err != nil {
		t.Fatal(err)
	}
	v, _ := b.GetResult(ex)
	if v != 25 {
		t.Fatalf("got %v, want 25", v)
	}
}

func TestBatchHandleSafety(t *testing.T) {
	b := New(nil)
	if _, err := b.AddVariable("x", 1); err != nil {
		t.Fatal(err)
	}
	b.Free()
	if b.IsValid() {
		t.Fatal("IsValid() should be false after Free")
	}
	if _, err := b.AddVariable("y", 1); err == nil {
		t.Fatal("expected InvalidHandle after Free, got nil")
	} else if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindHandle {
		t.Fatalf("expected KindHandle, got %v", err)
	}
	if err := b.Evaluate(rtcontext.New()); err == nil {
		t.Fatal("expected InvalidHandle calling Evaluate on a freed batch")
	}

	// A second Free must be a no-op, never a double-free.
	b.Free()
}

func TestBatchClearIsIdempotentAcrossRebuild(t *testing.T) {
	run := func() float64 {
		b := New(nil)
		defer b.Free()
		if _, err := b.AddVariable("x", 3); err != nil {
			t.Fatal(err)
		}
		ex, err := b.AddExpression("x * x + 1")
		if err != nil {
			t.Fatal(err)
		}
		if err := b.Evaluate(rtcontext.New()); err != nil {
			t.Fatal(err)
		}
		v, _ := b.GetResult(ex)
		return v
	}

	first := run()

	b := New(nil)
	defer b.Free()
	if _, err := b.AddVariable("x", 3); err != nil {
		t.Fatal(err)
	}
	ex, err := b.AddExpression("x * x + 1")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(rtcontext.New()); err != nil {
		t.Fatal(err)
	}
	before, _ := b.GetResult(ex)

	if err := b.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddVariable("x", 3); err != nil {
		t.Fatal(err)
	}
	ex2, err := b.AddExpression("x * x + 1")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(rtcontext.New()); err != nil {
		t.Fatal(err)
	}
	after, _ := b.GetResult(ex2)

	if before != after || after != first {
		t.Fatalf("rebuild after Clear gave %v, want bit-identical %v (first %v)", after, before, first)
	}
}

func TestBatchDuplicateDetectionSurvivesClear(t *testing.T) {
	b := New(nil)
	defer b.Free()
	if _, err := b.AddVariable("x", 1); err != nil {
		t.Fatal(err)
	}
	if err := b.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddVariable("x", 1); err != nil {
		t.Fatalf("x should be re-addable after Clear: %v", err)
	}
	if _, err := b.AddVariable("x", 2); err == nil {
		t.Fatal("expected duplicate error for x added twice after Clear")
	}
}

func TestBatchVariableCapacityExceeded(t *testing.T) {
	b := New(nil)
	defer b.Free()
	for i := 0; ; i++ {
		name := string(rune('a' + i%26))
		if i >= 26 {
			name += string(rune('a' + i/26))
		}
		_, err := b.AddVariable(name, 0)
		if err != nil {
			if e, ok := err.(*errors.Error); ok && e.Kind == errors.KindCapacity {
				return
			}
			t.Fatalf("unexpected error: %v", err)
		}
		if i > 1000 {
			t.Fatal("expected CapacityExceeded well before 1000 variables")
		}
	}
}

func TestBatchGetResultBounds(t *testing.T) {
	b := New(nil)
	defer b.Free()
	if _, err := b.GetResult(0); err == nil {
		t.Fatal("expected ArrayBounds for empty batch, got nil")
	}
}
