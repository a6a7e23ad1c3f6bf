package compiler

import (
	"context"
	"testing"
	"time"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/function"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	b := attribute.NewLiveBroker(attribute.DefaultDefaults())
	require.NoError(t, b.RegisterAttributeFinder(attribute.FinderSpecification{
		FullyQualifiedName:     "env.ticks",
		IsEnvironmentAttribute: true,
	}, func(inv attribute.Invocation, args []value.Value) stream.Source[value.Value] {
		return stream.Once(value.NumberFromInt64(7))
	}))
	return &Env{Imports: map[string]string{}, Functions: function.NewBuiltinRegistry(), Attributes: b}
}

func lit(v value.Value) *ast.Literal { return &ast.Literal{Value: v} }

func TestConstantFoldsArithmetic(t *testing.T) {
	env := testEnv(t)
	expr := &ast.BinaryOp{Op: "+", Left: lit(value.NumberFromInt64(2)), Right: lit(value.NumberFromInt64(3))}
	c, err := Compile(expr, env)
	require.NoError(t, err)
	require.Equal(t, StratumConstant, c.Stratum())
	assert.True(t, c.Constant().Equal(value.NumberFromInt64(5)))
}

func TestFunctionCallFoldsWhenArgsConstant(t *testing.T) {
	env := testEnv(t)
	expr := &ast.FunctionCall{QualifiedName: []string{"standard", "upper"}, Arguments: []ast.Expression{lit(value.Text("hi"))}}
	c, err := Compile(expr, env)
	require.NoError(t, err)
	require.Equal(t, StratumConstant, c.Stratum())
	assert.Equal(t, "HI", c.Constant().AsText())
}

func TestUnknownFunctionIsCompileError(t *testing.T) {
	env := testEnv(t)
	expr := &ast.FunctionCall{QualifiedName: []string{"nope", "missing"}}
	_, err := Compile(expr, env)
	require.Error(t, err)
}

func TestVariableIsPure(t *testing.T) {
	env := testEnv(t)
	c, err := Compile(&ast.Variable{Name: "x"}, env)
	require.NoError(t, err)
	require.Equal(t, StratumPure, c.Stratum())
	ctx := evalctx.Context{}.WithVariable("x", value.NumberFromInt64(42))
	assert.True(t, c.ToPure()(ctx).Equal(value.NumberFromInt64(42)))
}

func TestLogicalAndShortCircuitsWithoutEvaluatingRight(t *testing.T) {
	env := testEnv(t)
	// right side would error if evaluated: 1 + "x" is a type error.
	right := &ast.BinaryOp{Op: "+", Left: lit(value.NumberFromInt64(1)), Right: lit(value.Text("x"))}
	expr := &ast.BinaryOp{Op: "&&", Left: lit(value.Bool(false)), Right: right}
	c, err := Compile(expr, env)
	require.NoError(t, err)
	require.Equal(t, StratumConstant, c.Stratum())
	assert.True(t, c.Constant().Equal(value.Bool(false)))
}

func TestAttributeReferenceIsStream(t *testing.T) {
	env := testEnv(t)
	expr := &ast.AttributeReference{QualifiedName: []string{"env", "ticks"}}
	c, err := Compile(expr, env)
	require.NoError(t, err)
	require.Equal(t, StratumStream, c.Stratum())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(ctx, c.ToStream()(evalctx.Context{}))
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(value.NumberFromInt64(7)))
}

func TestStepAccessKeyAndIndex(t *testing.T) {
	env := testEnv(t)
	obj := value.FromObject(value.NewObject(value.P("tags", value.Array(value.Text("a"), value.Text("b")))))
	expr := &ast.StepAccess{
		Base: lit(obj),
		Steps: []ast.Step{
			&ast.KeyStep{Key: "tags"},
			&ast.IndexStep{Index: 1},
		},
	}
	c, err := Compile(expr, env)
	require.NoError(t, err)
	require.Equal(t, StratumConstant, c.Stratum())
	assert.Equal(t, "b", c.Constant().AsText())
}

func TestConditionStepFiltersArray(t *testing.T) {
	env := testEnv(t)
	arr := value.Array(value.NumberFromInt64(1), value.NumberFromInt64(2), value.NumberFromInt64(3))
	predicate := &ast.BinaryOp{Op: ">", Left: &ast.Variable{Name: "@"}, Right: lit(value.NumberFromInt64(1))}
	expr := &ast.StepAccess{
		Base:  lit(arr),
		Steps: []ast.Step{&ast.ConditionStep{Predicate: predicate}},
	}
	c, err := Compile(expr, env)
	require.NoError(t, err)
	require.Equal(t, StratumPure, c.Stratum())
	got := c.ToPure()(evalctx.Context{})
	require.Equal(t, value.KindArray, got.Kind())
	assert.Len(t, got.AsArray(), 2)
}
