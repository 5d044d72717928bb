package config

import (
	"math"
	"testing"
)

const yamlSpec = `
variables:
  - name: x
    initial: 2
  - name: y
    initial: 3
expressions:
  - "x + y"
  - "square(x)"
functions:
  - name: square
    params: [a]
    body: "a * a"
stop_on_first_error: true
`

func TestParseYAMLDecodesFullSpec(t *testing.T) {
	spec, err := ParseYAML([]byte(yamlSpec))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(spec.Variables) != 2 || spec.Variables[0].Name != "x" || spec.Variables[0].Initial != 2 {
		t.Fatalf("variables decoded wrong: %+v", spec.Variables)
	}
	if len(spec.Expressions) != 2 || spec.Expressions[1] != "square(x)" {
		t.Fatalf("expressions decoded wrong: %+v", spec.Expressions)
	}
	if len(spec.Functions) != 1 || spec.Functions[0].Name != "square" || spec.Functions[0].Params[0] != "a" {
		t.Fatalf("functions decoded wrong: %+v", spec.Functions)
	}
	if !spec.StopOnFirstError {
		t.Fatal("expected stop_on_first_error true")
	}
}

const jsonSpec = `{
  "variables": [{"name": "x", "initial": 2}, {"name": "y", "initial": 3}],
  "expressions": ["x + y", "square(x)"],
  "functions": [{"name": "square", "params": ["a"], "body": "a * a"}],
  "stop_on_first_error": false
}`

func TestParseJSONDecodesFullSpec(t *testing.T) {
	spec, err := ParseJSON([]byte(jsonSpec))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(spec.Variables) != 2 || spec.Variables[1].Name != "y" || spec.Variables[1].Initial != 3 {
		t.Fatalf("variables decoded wrong: %+v", spec.Variables)
	}
	if len(spec.Expressions) != 2 {
		t.Fatalf("expressions decoded wrong: %+v", spec.Expressions)
	}
	if spec.StopOnFirstError {
		t.Fatal("expected stop_on_first_error false")
	}
}

func TestParseJSONRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseJSON([]byte("not json")); err == nil {
		t.Fatal("expected an error for invalid json")
	}
}

func TestBuildEvaluatesInRegistrationOrder(t *testing.T) {
	spec, err := ParseYAML([]byte(yamlSpec))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	b, err := spec.Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer b.Free()

	ctx := NewContext()
	if err := b.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	got0, err := b.GetResult(0)
	if err != nil {
		t.Fatalf("GetResult(0): %v", err)
	}
	if got0 != 5 {
		t.Fatalf("x + y = %v, want 5", got0)
	}

	got1, err := b.GetResult(1)
	if err != nil {
		t.Fatalf("GetResult(1): %v", err)
	}
	if got1 != 4 {
		t.Fatalf("square(x) = %v, want 4", got1)
	}
}

func TestBuildRejectsDuplicateVariable(t *testing.T) {
	spec := &BatchSpec{
		Variables: []VariableSpec{
			{Name: "x", Initial: 1},
			{Name: "x", Initial: 2},
		},
	}
	if _, err := spec.Build(nil); err == nil {
		t.Fatal("expected an error for duplicate variable name")
	}
}

func TestBuildPropagatesParseErrorOnBadExpression(t *testing.T) {
	spec := &BatchSpec{Expressions: []string{"1 + "}}
	if _, err := spec.Build(nil); err == nil {
		t.Fatal("expected a parse error to surface from Build")
	}
}

func TestBuildStopOnFirstErrorFlowsThroughToEvaluate(t *testing.T) {
	spec := &BatchSpec{
		Expressions:      []string{"unknownVar", "1 + 1"},
		StopOnFirstError: true,
	}
	b, err := spec.Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer b.Free()

	ctx := NewContext()
	if err := b.Evaluate(ctx); err == nil {
		t.Fatal("expected Evaluate to stop on the first failing expression")
	}

	// The second slot was never reached, and the first holds NaN.
	got, err := b.GetResult(0)
	if err != nil {
		t.Fatalf("GetResult(0): %v", err)
	}
	if !math.IsNaN(got) {
		t.Fatalf("GetResult(0) = %v, want NaN", got)
	}
}
