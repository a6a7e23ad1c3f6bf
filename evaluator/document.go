package evaluator

import (
	"context"
	"fmt"

	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/stream"
)

// Evaluate dispatches a compiler.CompiledDocument to EvaluateRule or
// EvaluatePolicySet by its concrete type, giving callers that hold a
// PRP-retrieved document a single entry point regardless of which kind it
// turned out to be.
func Evaluate(doc compiler.CompiledDocument, ctx evalctx.Context) stream.Source[decision.Decision] {
	switch d := doc.(type) {
	case *compiler.CompiledPolicyRule:
		return EvaluateRule(d, ctx)
	case *compiler.CompiledPolicySet:
		return EvaluatePolicySet(d, ctx)
	default:
		return func(cctx context.Context) <-chan decision.Decision {
			out := make(chan decision.Decision, 1)
			out <- decision.IndeterminateDecision(fmt.Sprintf("evaluator: unknown document type %T", doc))
			close(out)
			return out
		}
	}
}
