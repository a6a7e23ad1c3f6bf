package dispatch

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
	"github.com/sapl-run/sapl-core/prp"
	"github.com/sapl-run/sapl-core/schema"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snapshot prp.MatchingDocuments
}

func (s staticSource) RetrievePolicies(evalctx.Subscription) stream.Source[prp.MatchingDocuments] {
	return stream.Once(s.snapshot)
}

func compileRule(t *testing.T, entitlement ast.Entitlement, target value.Value) *compiler.CompiledPolicyRule {
	t.Helper()
	env := &compiler.Env{
		Imports:    map[string]string{},
		Functions:  function.NewBuiltinRegistry(),
		Attributes: attribute.NewLiveBroker(attribute.DefaultDefaults()),
		Schemas:    schema.NewRegistry(),
	}
	rule := &ast.PolicyRule{Name: "r", Entitlement: entitlement, Target: &ast.Literal{Value: target}}
	c, err := compiler.CompilePolicyRule(rule, env)
	require.NoError(t, err)
	return c
}

func TestDispatchCombinesAndDeduplicates(t *testing.T) {
	permit := compileRule(t, ast.Permit, value.Bool(true))
	source := staticSource{snapshot: prp.MatchingDocuments{Matches: []prp.CompiledPolicy{permit}, TotalDocuments: 1}}

	d := NewDispatcher()
	sub := evalctx.NewSubscription(value.Text("alice"), value.Text("read"), value.Text("doc1"), value.Undefined())
	ctx := evalctx.Context{Subscription: sub}

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, d.Dispatch(ctx, source, combine.DenyOverrides))

	require.Len(t, got, 1)
	assert.Equal(t, decision.Permit, got[0].Entitlement)
	assert.Equal(t, Subscribed, d.State())
}

func TestDispatchEmptySnapshotIsNotApplicable(t *testing.T) {
	source := staticSource{snapshot: prp.MatchingDocuments{}}
	d := NewDispatcher()
	ctx := evalctx.Context{Subscription: evalctx.NewSubscription(value.Undefined(), value.Undefined(), value.Undefined(), value.Undefined())}

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, d.Dispatch(ctx, source, combine.DenyOverrides))

	require.Len(t, got, 1)
	assert.Equal(t, decision.NotApplicable, got[0].Entitlement)
}

func TestDispatchMarksIndeterminateOnConflict(t *testing.T) {
	env := &compiler.Env{
		Imports:    map[string]string{},
		Functions:  function.NewBuiltinRegistry(),
		Attributes: attribute.NewLiveBroker(attribute.DefaultDefaults()),
		Schemas:    schema.NewRegistry(),
	}
	onlyOne := &ast.PolicySet{
		Name:      "s",
		Algorithm: ast.OnlyOneApplicable,
		Policies: []*ast.PolicyRule{
			{Name: "p1", Entitlement: ast.Permit, Target: &ast.Literal{Value: value.Bool(true)}},
			{Name: "p2", Entitlement: ast.Deny, Target: &ast.Literal{Value: value.Bool(true)}},
		},
	}
	compiled, err := compiler.CompilePolicySet(onlyOne, env)
	require.NoError(t, err)

	source := staticSource{snapshot: prp.MatchingDocuments{Matches: []prp.CompiledPolicy{compiled}, TotalDocuments: 1}}
	d := NewDispatcher()
	ctx := evalctx.Context{Subscription: evalctx.NewSubscription(value.Undefined(), value.Undefined(), value.Undefined(), value.Undefined())}

	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := stream.Collect(cctx, d.Dispatch(ctx, source, combine.DenyOverrides))

	require.NotEmpty(t, got)
	assert.Equal(t, decision.Indeterminate, got[len(got)-1].Entitlement)
	assert.Equal(t, SubscribedIndeterminate, d.State())
}
