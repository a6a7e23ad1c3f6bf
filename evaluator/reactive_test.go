package evaluator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// TestEvaluateRuleReactsToLiveAttributeInBodyCondition demonstrates that a
// condition (not the target) reading a live, multi-emission attribute
// re-triggers the decision stream as that attribute changes, rather than
// being sampled once at the moment the target first holds.
func TestEvaluateRuleReactsToLiveAttributeInBodyCondition(t *testing.T) {
	env := newEnv()
	brokers := env.Attributes.(*attribute.LiveBroker)

	tick := make(chan value.Value)
	require.NoError(t, brokers.RegisterAttributeFinder(attribute.FinderSpecification{
		FullyQualifiedName:     "clock.isOpen",
		IsEnvironmentAttribute: true,
	}, func(inv attribute.Invocation, args []value.Value) stream.Source[value.Value] {
		return func(ctx context.Context) <-chan value.Value {
			out := make(chan value.Value)
			go func() {
				defer close(out)
				for {
					select {
					case v, ok := <-tick:
						if !ok {
							return
						}
						select {
						case out <- v:
						case <-ctx.Done():
							return
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return out
		}
	}))

	rule := ruleWithTarget(ast.Permit, &ast.Literal{Value: value.Bool(true)})
	rule.Body = []ast.Statement{
		ast.Condition{Expr: &ast.AttributeReference{QualifiedName: []string{"clock", "isOpen"}}},
	}
	compiled, err := compiler.CompilePolicyRule(rule, env)
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	decisions := EvaluateRule(compiled, subscriptionCtx())(cctx)

	tick <- value.Bool(true)
	first := <-decisions
	assert.Equal(t, decision.Permit, first.Entitlement)

	tick <- value.Bool(false)
	second := <-decisions
	assert.Equal(t, decision.NotApplicable, second.Entitlement)

	tick <- value.Bool(true)
	third := <-decisions
	assert.Equal(t, decision.Permit, third.Entitlement)
}
