// Package evaluator walks a compiler.CompiledPolicyRule or
// compiler.CompiledPolicySet against an evalctx.Context, producing a live
// stream of decision.Decision values that updates as the attributes or
// variables the policy depends on change.
package evaluator

import (
	"context"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// EvaluateRule produces a live Decision stream for a single compiled
// policy. Schema violations are checked once, up front, against the
// subscription in ctx. The target then drives re-evaluation at the
// coarsest grain; for as long as one target tick holds, the rule's body,
// obligation, advice, and transform are themselves evaluated reactively, so
// a live attribute read only inside a condition or an obligation still
// re-triggers the decision stream without waiting for the target to change.
func EvaluateRule(rule *compiler.CompiledPolicyRule, ctx evalctx.Context) stream.Source[decision.Decision] {
	return func(cctx context.Context) <-chan decision.Decision {
		out := make(chan decision.Decision)
		go func() {
			defer close(out)
			if gate := validateSchemas(rule.Schemas, ctx); gate != nil {
				sendOrDone(cctx, out, *gate)
				return
			}

			cctx2, cancelAll := context.WithCancel(cctx)
			defer cancelAll()
			var childCancel context.CancelFunc

			for tv := range rule.Target.ToStream()(ctx)(cctx2) {
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
				childOut := evaluateRuleBody(rule, ctx)(childCtx)
				if !forwardUntilReplaced(cctx, childCtx, out, childOut) {
					return
				}
			}
		}()
		return out
	}
}

// evaluateRuleBody resolves the rule's value definitions and conditions in
// order, reactively: each statement keeps its live stream open, and a later
// re-emission re-runs everything downstream of it, down to the final
// obligation/advice/transform outcome.
func evaluateRuleBody(rule *compiler.CompiledPolicyRule, ctx evalctx.Context) stream.Source[decision.Decision] {
	return reactiveChain(rule.Body, ctx, func(localCtx evalctx.Context) stream.Source[decision.Decision] {
		return ruleOutcomeStream(rule, localCtx)
	})
}

// optionalOutcome distinguishes "this rule has no obligation/advice/
// transform expression" from "the expression evaluated to Undefined",
// since compiler.Compiled has no nil-safe stream form of its own.
type optionalOutcome struct {
	present bool
	value   value.Value
}

// optionalStream lifts an optional compiled expression (nil when the rule
// declares no obligation/advice/transform clause) into a Source that
// reacts to every one of its live emissions, instead of being sampled once.
func optionalStream(c *compiler.Compiled, ctx evalctx.Context) stream.Source[optionalOutcome] {
	if c == nil {
		return stream.Once(optionalOutcome{})
	}
	return stream.Map(c.ToStream()(ctx), func(v value.Value) optionalOutcome {
		return optionalOutcome{present: true, value: v}
	})
}

// ruleOutcomeStream combines the rule's obligation, advice, and transform
// clauses — independent of each other but each potentially live — into the
// terminal Decision for the current target/body scope, re-emitting
// whenever any one of the three changes.
func ruleOutcomeStream(rule *compiler.CompiledPolicyRule, ctx evalctx.Context) stream.Source[decision.Decision] {
	combined := stream.CombineLatest(
		optionalStream(rule.Obligation, ctx),
		optionalStream(rule.Advice, ctx),
		optionalStream(rule.Transform, ctx),
	)
	return stream.Map(combined, func(vs []optionalOutcome) decision.Decision {
		return decisionFromOutcome(rule.Entitlement, vs[0], vs[1], vs[2])
	})
}

func decisionFromOutcome(entitlement ast.Entitlement, obligation, advice, transform optionalOutcome) decision.Decision {
	if obligation.present && obligation.value.IsError() {
		return decision.IndeterminateDecision(obligation.value.ErrorMessage())
	}
	if advice.present && advice.value.IsError() {
		return decision.IndeterminateDecision(advice.value.ErrorMessage())
	}
	if transform.present && transform.value.IsError() {
		return decision.IndeterminateDecision(transform.value.ErrorMessage())
	}

	var obligations []value.Value
	if obligation.present {
		obligations = asMulti(obligation.value)
	}
	var advices []value.Value
	if advice.present {
		advices = asMulti(advice.value)
	}
	var resource *value.Value
	if transform.present {
		v := transform.value
		resource = &v
	}

	return decision.Decision{
		Entitlement: mapEntitlement(entitlement),
		Obligations: obligations,
		Advice:      advices,
		Resource:    resource,
	}
}

// asMulti expands an obligation/advice expression's result into the list
// form a Decision carries: an Array literal contributes one entry per
// element, anything else contributes itself as the sole entry.
func asMulti(v value.Value) []value.Value {
	if v.Kind() == value.KindArray {
		return v.AsArray()
	}
	return []value.Value{v}
}

func sendOrDone(cctx context.Context, out chan<- decision.Decision, d decision.Decision) bool {
	select {
	case out <- d:
		return true
	case <-cctx.Done():
		return false
	}
}

func mapEntitlement(e ast.Entitlement) decision.Entitlement {
	if e == ast.Permit {
		return decision.Permit
	}
	return decision.Deny
}
