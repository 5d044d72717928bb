// Package config decodes a BatchSpec — the host-facing description of a
// Batch's variables, expressions and expression-defined functions — from
// YAML or JSON. It exists so a host integration test or the cmd/rtexpr CLI
// can build a Batch from one descriptor file instead of hand-assembled Go,
// the same way a script runner loads a program from a file on disk rather
// than from inline source.
//
// YAML decoding goes through github.com/goccy/go-yaml, an ambient
// configuration format choice. The JSON path is kept
// separate and uses github.com/tidwall/gjson for traversal (and
// github.com/tidwall/sjson from the same package family for the CLI's
// "set one field in an existing descriptor" editing command) rather than
// encoding/json, for hosts that hand-edit JSON descriptors with jq-like
// tooling and expect gjson path syntax to work against the same file.
package config

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"

	"github.com/rtexpr/rtexpr/internal/batch"
	"github.com/rtexpr/rtexpr/internal/rtcontext"
	"github.com/rtexpr/rtexpr/internal/telemetry"
)

// VariableSpec describes one entry in a BatchSpec's variable list.
type VariableSpec struct {
	Name    string  `yaml:"name" json:"name"`
	Initial float64 `yaml:"initial" json:"initial"`
}

// FunctionSpec describes one batch-local expression-defined function.
type FunctionSpec struct {
	Name   string   `yaml:"name" json:"name"`
	Params []string `yaml:"params" json:"params"`
	Body   string   `yaml:"body" json:"body"`
}

// BatchSpec is the decoded form of a batch descriptor: a set of named
// initial-valued parameters, a list of expressions to evaluate in order,
// and any expression-defined functions the expressions call.
type BatchSpec struct {
	Variables   []VariableSpec `yaml:"variables" json:"variables"`
	Expressions []string       `yaml:"expressions" json:"expressions"`
	Functions   []FunctionSpec `yaml:"functions" json:"functions"`

	// StopOnFirstError selects the batch's evaluate failure mode.
	StopOnFirstError bool `yaml:"stop_on_first_error" json:"stop_on_first_error"`
}

// ParseYAML decodes a BatchSpec from YAML source.
func ParseYAML(src []byte) (*BatchSpec, error) {
	var spec BatchSpec
	if err := yaml.Unmarshal(src, &spec); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return &spec, nil
}

// ParseJSON decodes a BatchSpec from JSON source using gjson, for hosts
// that prefer JSON descriptors over YAML. Each field is read independently
// by gjson path, under the same names the YAML tags use ("variables",
// "expressions", "functions", "stop_on_first_error"); a missing field leaves
// the corresponding BatchSpec field empty, and unknown fields are ignored.
func ParseJSON(src []byte) (*BatchSpec, error) {
	if !gjson.ValidBytes(src) {
		return nil, fmt.Errorf("config: invalid json")
	}
	root := gjson.ParseBytes(src)

	var spec BatchSpec
	for _, v := range root.Get("variables").Array() {
		spec.Variables = append(spec.Variables, VariableSpec{
			Name:    v.Get("name").String(),
			Initial: v.Get("initial").Float(),
		})
	}
	for _, e := range root.Get("expressions").Array() {
		spec.Expressions = append(spec.Expressions, e.String())
	}
	for _, f := range root.Get("functions").Array() {
		var params []string
		for _, p := range f.Get("params").Array() {
			params = append(params, p.String())
		}
		spec.Functions = append(spec.Functions, FunctionSpec{
			Name:   f.Get("name").String(),
			Params: params,
			Body:   f.Get("body").String(),
		})
	}
	spec.StopOnFirstError = root.Get("stop_on_first_error").Bool()
	return &spec, nil
}

// Build constructs a Batch from spec: one AddVariable per VariableSpec, one
// AddExpressionFunction per FunctionSpec, then one AddExpression per
// expression source, in the descriptor's order (registration order is the
// batch's evaluation order). rec may be nil to disable telemetry.
func (spec *BatchSpec) Build(rec *telemetry.Recorder) (*batch.Batch, error) {
	b := batch.New(rec)
	b.SetStopOnFirstError(spec.StopOnFirstError)

	for _, v := range spec.Variables {
		if _, err := b.AddVariable(v.Name, v.Initial); err != nil {
			b.Free()
			return nil, fmt.Errorf("config: add variable %q: %w", v.Name, err)
		}
	}
	for _, f := range spec.Functions {
		if err := b.AddExpressionFunction(f.Name, f.Params, f.Body); err != nil {
			b.Free()
			return nil, fmt.Errorf("config: add expression function %q: %w", f.Name, err)
		}
	}
	for _, e := range spec.Expressions {
		if _, err := b.AddExpression(e); err != nil {
			b.Free()
			return nil, fmt.Errorf("config: add expression %q: %w", e, err)
		}
	}
	return b, nil
}

// NewContext constructs the empty root Context a CLI invocation evaluates
// spec's batch against. A host embedding the engine directly would instead
// pass its own Context, pre-populated with native functions.
func NewContext() *rtcontext.Context {
	return rtcontext.New()
}
