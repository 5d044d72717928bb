// Package errors implements the engine's tagged error model: every fallible
// operation returns a *Error carrying a Kind, a numeric code matching the
// external ABI's status ranges, and minimal context. Formatting with source
// context and a caret follows the same layout the engine has always used for
// compiler diagnostics.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a failure into one of the taxonomy's seven buckets.
type Kind int

const (
	// KindNone is the zero value; never attached to a real *Error.
	KindNone Kind = iota
	KindSyntax
	KindCapacity
	KindName
	KindArity
	KindBounds
	KindHandle
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "Syntax"
	case KindCapacity:
		return "Capacity"
	case KindName:
		return "Name"
	case KindArity:
		return "Arity"
	case KindBounds:
		return "Bounds"
	case KindHandle:
		return "Handle"
	case KindInternal:
		return "Internal"
	default:
		return "None"
	}
}

// Well-known sentinel errors. Callers compare with errors.Is; Error.Is makes
// every *Error with a matching Kind equal to its sentinel, independent of
// message or context.
var (
	ErrSyntax   = &Error{Kind: KindSyntax}
	ErrCapacity = &Error{Kind: KindCapacity}
	ErrName     = &Error{Kind: KindName}
	ErrArity    = &Error{Kind: KindArity}
	ErrBounds   = &Error{Kind: KindBounds}
	ErrHandle   = &Error{Kind: KindHandle}
	ErrInternal = &Error{Kind: KindInternal}
)

// Position is a zero-allocation source location: line/column are rune
// counts from the start of the line, Offset is a byte offset into source.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Error is the engine's single error type. It never wraps the standard
// library's error chain beyond Is support; no panic/recover crosses a
// package boundary in this engine.
type Error struct {
	Kind    Kind
	Message string
	Context string // e.g. "variables", "call_depth", a function or variable name
	Pos     Position
	Source  string     // original source text, for Format's caret rendering
	Trace   StackTrace // expression-defined-function call chain active when the error occurred, outermost first
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Context != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Kind, msg, e.Context)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	if len(e.Trace) == 0 {
		return msg
	}
	return fmt.Sprintf("%s\nStack trace:\n%s", msg, e.Trace.String())
}

// WithTrace attaches the call stack active at the moment the error occurred.
// It returns e for chaining.
func (e *Error) WithTrace(trace StackTrace) *Error {
	e.Trace = trace
	return e
}

// Is reports whether target is a sentinel of the same Kind, so callers can
// write errors.Is(err, errors.ErrBounds) without caring about message text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Code maps Kind (plus, for capacity/parse/eval errors, the specific
// failure) onto the external status-code ranges from the engine's ABI:
//
//	0        success
//	-1       null handle
//	-5       invalid/freed handle
//	-10..-19 capacity exceeded
//	1..99    parse errors
//	100..199 evaluation errors
func (e *Error) Code() int32 {
	switch e.Kind {
	case KindHandle:
		if e.Context == "null" {
			return -1
		}
		return -5
	case KindCapacity:
		return -10 - capacitySubcode(e.Context)
	case KindSyntax:
		return 1 + syntaxSubcode(e.Context)
	case KindName, KindArity, KindBounds, KindInternal:
		return 100 + evalSubcode(e.Kind, e.Context)
	default:
		return 0
	}
}

func capacitySubcode(context string) int32 {
	switch context {
	case "variables":
		return 0
	case "functions", "native_functions":
		return 1
	case "arena":
		return 2
	case "call_depth":
		return 3
	default:
		return 9
	}
}

func syntaxSubcode(context string) int32 {
	switch context {
	case "UnknownToken":
		return 0
	case "InvalidNumber":
		return 1
	case "ExpectedPrimary":
		return 2
	case "UnclosedParen":
		return 3
	case "UnclosedBracket":
		return 4
	case "ExpectedColon":
		return 5
	case "TrailingTokens":
		return 6
	case "UnexpectedComma":
		return 7
	default:
		return 50
	}
}

func evalSubcode(kind Kind, context string) int32 {
	switch kind {
	case KindName:
		switch context {
		case "array":
			return 2
		case "attribute":
			return 3
		case "function":
			return 4
		default:
			return 0 // unknown variable
		}
	case KindArity:
		return 10
	case KindBounds:
		return 20
	case KindInternal:
		return 90
	default:
		return 99
	}
}

// New constructs a plain *Error with no source context.
func New(kind Kind, context, format string, args ...any) *Error {
	return &Error{Kind: kind, Context: context, Message: fmt.Sprintf(format, args...)}
}

// WithSource attaches source text and a position so Format can render a
// caret; it returns e for chaining.
func (e *Error) WithSource(source string, pos Position) *Error {
	e.Source = source
	e.Pos = pos
	return e
}

// Format renders the error with a source line and a caret pointing at the
// failing column, the same layout used for parse-time diagnostics. Falls
// back to Error() when no source was attached.
func (e *Error) Format() string {
	if e.Source == "" {
		return e.Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at line %d, column %d\n", e.Kind, e.Pos.Line, e.Pos.Column)

	line := sourceLine(e.Source, e.Pos.Line)
	if line != "" {
		prefix := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(prefix)+e.Pos.Column-1))
		sb.WriteString("^\n")
	}
	sb.WriteString(e.Message)
	if len(e.Trace) > 0 {
		sb.WriteString("\nStack trace:\n")
		sb.WriteString(e.Trace.String())
	}
	return sb.String()
}

func sourceLine(source string, lineNum int) string {
	if lineNum < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// Syntax, Capacity, Name, Arity, Bounds, Handle and Internal are
// convenience constructors matching the taxonomy in the engine's error
// handling design.
func Syntax(context string, pos Position, format string, args ...any) *Error {
	e := New(KindSyntax, context, format, args...)
	e.Pos = pos
	return e
}

func Capacity(what string) *Error {
	return New(KindCapacity, what, "capacity exceeded: %s", what)
}

func UnknownVariable(name string) *Error {
	return New(KindName, "variable", "unknown variable %q", name)
}

func UnknownArray(name string) *Error {
	return New(KindName, "array", "unknown array %q", name)
}

func UnknownAttribute(base, attr string) *Error {
	return New(KindName, "attribute", "unknown attribute %q.%q", base, attr)
}

func UnknownFunction(name string) *Error {
	return New(KindName, "function", "unknown function %q", name)
}

func ArityMismatch(name string, want, got int) *Error {
	return New(KindArity, name, "function %q expects %d argument(s), got %d", name, want, got)
}

func ArrayBounds(name string, index, length int) *Error {
	return New(KindBounds, name, "index %d out of bounds for array %q of length %d", index, name, length)
}

func InvalidHandle() *Error {
	return New(KindHandle, "freed", "operation on a freed or invalid handle")
}

func NullHandle() *Error {
	return New(KindHandle, "null", "operation on a null handle")
}

func Internal(format string, args ...any) *Error {
	return New(KindInternal, "", format, args...)
}
