// Package expr implements the restricted expression language used by
// decision nodes.
//
// Expressions use HCL native syntax. The only variable in scope is
// `payload`, an object holding the message payload, and only a small set of
// pure functions may be called:
//
//	payload.count > 3 && lower(payload.state) == "ready"
//
// Anything else (other root variables, unknown functions) is rejected at
// Compile time, so a compiled Expression can be evaluated against any payload
// without side effects.
package expr

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// RootVariable is the single variable name an expression may reference.
const RootVariable = "payload"

var functions = map[string]function.Function{
	"abs":      stdlib.AbsoluteFunc,
	"ceil":     stdlib.CeilFunc,
	"floor":    stdlib.FloorFunc,
	"max":      stdlib.MaxFunc,
	"min":      stdlib.MinFunc,
	"lower":    stdlib.LowerFunc,
	"upper":    stdlib.UpperFunc,
	"length":   stdlib.LengthFunc,
	"strlen":   stdlib.StrlenFunc,
	"contains": stdlib.ContainsFunc,
	"coalesce": stdlib.CoalesceFunc,
	"lookup":   stdlib.LookupFunc,
}

// Expression is a compiled, validated expression.
type Expression struct {
	src  string
	expr hclsyntax.Expression
}

// Compile parses src and checks it only uses the payload variable and
// allow-listed functions.
func Compile(src string) (*Expression, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing expression %q: %w", src, diags)
	}

	for _, t := range parsed.Variables() {
		if t.RootName() != RootVariable {
			return nil, fmt.Errorf("expression %q references unknown variable %q; only %q is available", src, t.RootName(), RootVariable)
		}
	}
	for _, f := range calledFunctions(parsed) {
		if _, ok := functions[f]; !ok {
			return nil, fmt.Errorf("expression %q calls unsupported function %q", src, f)
		}
	}

	return &Expression{src: src, expr: parsed}, nil
}

// MustCompile is like Compile but panics on error. For tests and constants.
func MustCompile(src string) *Expression {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expression) String() string { return e.src }

// Value evaluates the expression against payload and returns the raw result.
func (e *Expression) Value(payload map[string]any) (cty.Value, error) {
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{RootVariable: ToCty(payload)},
		Functions: functions,
	}
	v, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluating %q: %w", e.src, diags)
	}
	return v, nil
}

// Evaluate evaluates the expression as a predicate.
func (e *Expression) Evaluate(payload map[string]any) (bool, error) {
	v, err := e.Value(payload)
	if err != nil {
		return false, err
	}
	if v.IsNull() || !v.IsKnown() {
		return false, fmt.Errorf("expression %q produced no value", e.src)
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("expression %q is not a boolean: %w", e.src, err)
	}
	return b.True(), nil
}
