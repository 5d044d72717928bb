// Package limits centralizes the fixed-capacity constants referenced by the
// Context, FunctionRegistry, and Evaluator. Keeping them in one place makes
// it obvious what a host needs to change (and recompile) to raise a given
// ceiling — none of these are runtime-configurable, by design: every bound
// in this package exists so the engine never reaches back to the process
// allocator once a Batch is constructed.
package limits

const (
	// MaxVariables is the number of distinct variable names one Context's
	// own variable table may hold (not counting its parent chain).
	MaxVariables = 64

	// MaxConstants is the number of immutable constants one Context's own
	// constant table may hold.
	MaxConstants = 32

	// MaxArrays is the number of named arrays one Context's own array
	// table may hold.
	MaxArrays = 16

	// MaxAttributeGroups is the number of distinct attribute base names one
	// Context's own attribute table may hold.
	MaxAttributeGroups = 16

	// MaxNativeFunctions bounds a FunctionRegistry's native-function table.
	MaxNativeFunctions = 64

	// MaxUserFunctions bounds a FunctionRegistry's user-function table.
	MaxUserFunctions = 32

	// MaxExpressionFunctions bounds a FunctionRegistry's expression-defined
	// function table.
	MaxExpressionFunctions = 32

	// MaxVariableNameLen is the longest accepted variable/array/attribute
	// name, in bytes.
	MaxVariableNameLen = 32

	// MaxFunctionNameLen is the longest accepted function name, in bytes.
	MaxFunctionNameLen = 24

	// MaxStackDepth bounds the evaluator's operation stack (and therefore
	// expression nesting depth and expression-function recursion depth).
	MaxStackDepth = 256

	// MaxValueStackDepth bounds the evaluator's value stack.
	MaxValueStackDepth = 64

	// MaxArgBuffer bounds the evaluator's shared function-argument buffer.
	MaxArgBuffer = 32

	// MaxContextStackDepth bounds the evaluator's context stack, used for
	// expression-defined function invocations.
	MaxContextStackDepth = 256
)
