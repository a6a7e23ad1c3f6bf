package evaluator

import (
	"context"
	"testing"
	"time"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/combine"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/function"
	"github.com/sapl-run/sapl-core/schema"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv() *compiler.Env {
	return &compiler.Env{
		Imports:    map[string]string{},
		Functions:  function.NewBuiltinRegistry(),
		Attributes: attribute.NewLiveBroker(attribute.DefaultDefaults()),
		Schemas:    schema.NewRegistry(),
	}
}

func ruleWithTarget(entitlement ast.Entitlement, target ast.Expression) *ast.PolicyRule {
	return &ast.PolicyRule{Name: "r1", Entitlement: entitlement, Target: target}
}

func subscriptionCtx() evalctx.Context {
	sub := evalctx.NewSubscription(value.Text("alice"), value.Text("read"), value.Text("doc1"), value.Undefined())
	return evalctx.Context{Subscription: sub}
}

func TestEvaluateRulePermitsWhenTargetTrue(t *testing.T) {
	env := newEnv()
	rule := ruleWithTarget(ast.Permit, &ast.Literal{Value: value.Bool(true)})
	compiled, err := compiler.CompilePolicyRule(rule, env)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, EvaluateRule(compiled, subscriptionCtx()))
	require.Len(t, got, 1)
	assert.Equal(t, decision.Permit, got[0].Entitlement)
}

func TestEvaluateRuleNotApplicableWhenTargetFalse(t *testing.T) {
	env := newEnv()
	rule := ruleWithTarget(ast.Permit, &ast.Literal{Value: value.Bool(false)})
	compiled, err := compiler.CompilePolicyRule(rule, env)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, EvaluateRule(compiled, subscriptionCtx()))
	require.Len(t, got, 1)
	assert.Equal(t, decision.NotApplicable, got[0].Entitlement)
}

func TestEvaluateRuleConditionFalseIsNotApplicable(t *testing.T) {
	env := newEnv()
	rule := ruleWithTarget(ast.Permit, nil)
	rule.Body = []ast.Statement{ast.Condition{Expr: &ast.Literal{Value: value.Bool(false)}}}
	compiled, err := compiler.CompilePolicyRule(rule, env)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, EvaluateRule(compiled, subscriptionCtx()))
	require.Len(t, got, 1)
	assert.Equal(t, decision.NotApplicable, got[0].Entitlement)
}

func TestEvaluateRuleDuplicateVariableIsIndeterminate(t *testing.T) {
	env := newEnv()
	rule := ruleWithTarget(ast.Permit, nil)
	rule.Body = []ast.Statement{
		ast.ValueDefinition{Name: "x", Expr: &ast.Literal{Value: value.NumberFromInt64(1)}},
		ast.ValueDefinition{Name: "x", Expr: &ast.Literal{Value: value.NumberFromInt64(2)}},
	}
	compiled, err := compiler.CompilePolicyRule(rule, env)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, EvaluateRule(compiled, subscriptionCtx()))
	require.Len(t, got, 1)
	assert.Equal(t, decision.Indeterminate, got[0].Entitlement)
}

func TestEvaluatePolicySetDenyOverrides(t *testing.T) {
	env := newEnv()
	set := &ast.PolicySet{
		Name:      "s1",
		Algorithm: ast.DenyOverrides,
		Policies: []*ast.PolicyRule{
			ruleWithTarget(ast.Permit, &ast.Literal{Value: value.Bool(true)}),
			ruleWithTarget(ast.Deny, &ast.Literal{Value: value.Bool(true)}),
		},
	}
	compiled, err := compiler.CompilePolicySet(set, env)
	require.NoError(t, err)
	assert.Equal(t, combine.DenyOverrides(nil).Entitlement, decision.NotApplicable) // sanity on import

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, EvaluatePolicySet(compiled, subscriptionCtx()))
	require.NotEmpty(t, got)
	assert.Equal(t, decision.Deny, got[len(got)-1].Entitlement)
}
