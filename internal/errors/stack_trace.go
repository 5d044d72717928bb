package errors

import (
	"fmt"
	"strings"
)

// StackFrame represents one active expression-defined-function call at the
// moment an evaluation failed: the callee's name and the call-site position
// in its caller's source. It exists purely for diagnostics — the evaluator
// never consults it to make control-flow decisions, only builds one and
// attaches it to the error that is about to escape (see
// internal/evaluator's attachTrace).
type StackFrame struct {
	FunctionName string
	Pos          Position
}

// String renders a frame as "name [line: N, column: M]".
func (sf StackFrame) String() string {
	return fmt.Sprintf("%s [line: %d, column: %d]", sf.FunctionName, sf.Pos.Line, sf.Pos.Column)
}

// StackTrace is a sequence of frames, oldest first.
type StackTrace []StackFrame

// String renders the trace most-recent-call-first, one frame per line.
func (st StackTrace) String() string {
	if len(st) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := len(st) - 1; i >= 0; i-- {
		sb.WriteString(st[i].String())
		if i > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Depth returns the number of frames in the stack.
func (st StackTrace) Depth() int {
	return len(st)
}
