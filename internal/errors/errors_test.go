package errors

import (
	stderrors "errors"
	"testing"
)

func TestIsMatchesSentinelByKindOnly(t *testing.T) {
	err := UnknownVariable("x")
	if !stderrors.Is(err, ErrName) {
		t.Fatal("UnknownVariable should satisfy errors.Is(err, ErrName)")
	}
	if stderrors.Is(err, ErrBounds) {
		t.Fatal("UnknownVariable must not satisfy errors.Is(err, ErrBounds)")
	}
}

func TestCodeRangesMatchExternalABI(t *testing.T) {
	cases := []struct {
		err  *Error
		want func(code int32) bool
	}{
		{InvalidHandle(), func(c int32) bool { return c == -5 }},
		{NullHandle(), func(c int32) bool { return c == -1 }},
		{Capacity("variables"), func(c int32) bool { return c >= -19 && c <= -10 }},
		{Syntax("ExpectedPrimary", Position{}, "boom"), func(c int32) bool { return c >= 1 && c <= 99 }},
		{UnknownVariable("x"), func(c int32) bool { return c >= 100 && c <= 199 }},
		{ArityMismatch("f", 1, 2), func(c int32) bool { return c >= 100 && c <= 199 }},
		{ArrayBounds("xs", 5, 3), func(c int32) bool { return c >= 100 && c <= 199 }},
	}
	for _, tc := range cases {
		if !tc.want(tc.err.Code()) {
			t.Errorf("%s: code %d out of expected range", tc.err.Kind, tc.err.Code())
		}
	}
}

func TestFormatFallsBackWithoutSource(t *testing.T) {
	err := UnknownFunction("f")
	if got := err.Format(); got != err.Error() {
		t.Fatalf("Format() without source = %q, want Error() = %q", got, err.Error())
	}
}

func TestFormatRendersCaretWithSource(t *testing.T) {
	src := "1 + @"
	err := Syntax("ExpectedPrimary", Position{Line: 1, Column: 5, Offset: 4}, "unexpected token").WithSource(src, Position{Line: 1, Column: 5, Offset: 4})
	out := err.Format()
	if out == err.Error() {
		t.Fatal("Format() should differ from Error() once source is attached")
	}
}
