package evaluator

import (
	"context"

	"github.com/sapl-run/sapl-core/combine"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/stream"
)

// EvaluatePolicySet produces a live Decision stream for a compiled policy
// set: its own schema and target gate contained-policy evaluation. Local
// variable definitions are resolved reactively, the same as a rule's body —
// a later re-emission from a variable's expression rebinds the scope and
// re-runs contained-policy evaluation under it — and the contained policies
// are then combined reactively for the duration of that target tick using
// Algorithm.
func EvaluatePolicySet(set *compiler.CompiledPolicySet, ctx evalctx.Context) stream.Source[decision.Decision] {
	algo := combine.Select(set.Algorithm)
	return func(cctx context.Context) <-chan decision.Decision {
		out := make(chan decision.Decision)
		go func() {
			defer close(out)
			if gate := validateSchemas(set.Schemas, ctx); gate != nil {
				sendOrDone(cctx, out, *gate)
				return
			}

			cctx2, cancelAll := context.WithCancel(cctx)
			defer cancelAll()
			var childCancel context.CancelFunc

			for tv := range set.Target.ToStream()(ctx)(cctx2) {
				if childCancel != nil {
					childCancel()
					childCancel = nil
				}
				switch {
				case tv.IsError():
					if !sendOrDone(cctx, out, decision.IndeterminateDecision(tv.ErrorMessage())) {
						return
					}
					continue
				case !tv.IsBool():
					if !sendOrDone(cctx, out, decision.IndeterminateDecision("target expression must evaluate to a boolean")) {
						return
					}
					continue
				case !tv.AsBool():
					if !sendOrDone(cctx, out, decision.NotApplicableDecision()) {
						return
					}
					continue
				}

				childCtx, cancel := context.WithCancel(cctx2)
				childCancel = cancel
				childSrc := reactiveChain(set.Variables, ctx, func(localCtx evalctx.Context) stream.Source[decision.Decision] {
					return evaluateContainedPolicies(set.Policies, localCtx, algo)
				})
				childOut := childSrc(childCtx)
				if !forwardUntilReplaced(cctx, childCtx, out, childOut) {
					return
				}
			}
		}()
		return out
	}
}

// forwardUntilReplaced relays childOut to out until it closes (the target
// re-fired and replaced it) or the outer context is done.
func forwardUntilReplaced(cctx, childCtx context.Context, out chan<- decision.Decision, childOut <-chan decision.Decision) bool {
	for {
		select {
		case d, ok := <-childOut:
			if !ok {
				return true
			}
			if !sendOrDone(cctx, out, d) {
				return false
			}
		case <-childCtx.Done():
			return true
		case <-cctx.Done():
			return false
		}
	}
}

// evaluateContainedPolicies combines a policy set's contained policies
// reactively: every policy's own Decision stream stays subscribed for the
// lifetime of the returned stream, and the set re-aggregates via algo
// whenever any one of them re-emits.
func evaluateContainedPolicies(policies []*compiler.CompiledPolicyRule, ctx evalctx.Context, algo combine.Algorithm) stream.Source[decision.Decision] {
	if len(policies) == 0 {
		return stream.Once(decision.NotApplicableDecision())
	}
	srcs := make([]stream.Source[decision.Decision], len(policies))
	for i, p := range policies {
		srcs[i] = EvaluateRule(p, ctx)
	}
	combined := stream.CombineLatest(srcs...)
	aggregated := stream.Map(combined, algo)
	return stream.Distinct(aggregated, decision.Decision.Equal)
}
