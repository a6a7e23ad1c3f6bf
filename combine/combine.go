// Package combine implements the six ways a PolicySet aggregates the
// Decisions of its contained policies into a single Decision.
package combine

import (
	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/decision"
)

// Algorithm reduces an ordered list of child Decisions to one aggregate
// Decision. Order matters: obligations and advice are concatenated in the
// order their contributing decisions appear in the input slice.
type Algorithm func(decisions []decision.Decision) decision.Decision

// DenyOverrides: any Deny wins outright; otherwise any Indeterminate wins;
// otherwise any Permit wins; otherwise NotApplicable.
func DenyOverrides(decisions []decision.Decision) decision.Decision {
	return priorityReduce(decisions, []decision.Entitlement{decision.Deny, decision.Indeterminate, decision.Permit})
}

// PermitOverrides: any Permit wins outright; otherwise any Indeterminate
// wins; otherwise any Deny wins; otherwise NotApplicable.
func PermitOverrides(decisions []decision.Decision) decision.Decision {
	return priorityReduce(decisions, []decision.Entitlement{decision.Permit, decision.Indeterminate, decision.Deny})
}

// FirstApplicable returns the first decision in document order that is not
// NotApplicable, carrying only that decision's obligations/advice/resource
// — earlier NotApplicable decisions contribute nothing.
func FirstApplicable(decisions []decision.Decision) decision.Decision {
	for _, d := range decisions {
		if d.Entitlement != decision.NotApplicable {
			return d
		}
	}
	return decision.NotApplicableDecision()
}

// OnlyOneApplicable requires exactly one non-NotApplicable decision among
// the children; more than one is itself an Indeterminate ("conflicting
// policies"), matching the algorithm's purpose of enforcing mutual
// exclusivity between a PolicySet's policies.
func OnlyOneApplicable(decisions []decision.Decision) decision.Decision {
	var applicable *decision.Decision
	for i := range decisions {
		if decisions[i].Entitlement == decision.NotApplicable {
			continue
		}
		if applicable != nil {
			return decision.IndeterminateDecision("more than one policy was applicable under only-one-applicable")
		}
		d := decisions[i]
		applicable = &d
	}
	if applicable == nil {
		return decision.NotApplicableDecision()
	}
	return *applicable
}

// DenyUnlessPermit: Permit only if at least one child Permits; every other
// combination of Deny/Indeterminate/NotApplicable resolves to Deny. This
// algorithm never produces NotApplicable; it produces Indeterminate only when
// more than one permitting child transforms the resource.
func DenyUnlessPermit(decisions []decision.Decision) decision.Decision {
	for _, d := range decisions {
		if d.Entitlement == decision.Permit {
			return aggregateSameEntitlement(decisions, decision.Permit)
		}
	}
	return decision.Decision{Entitlement: decision.Deny}
}

// PermitUnlessDeny: Deny only if at least one child Denies; every other
// combination resolves to Permit. This algorithm never produces
// NotApplicable; it produces Indeterminate only when more than one denying
// child transforms the resource.
func PermitUnlessDeny(decisions []decision.Decision) decision.Decision {
	for _, d := range decisions {
		if d.Entitlement == decision.Deny {
			return aggregateSameEntitlement(decisions, decision.Deny)
		}
	}
	return decision.Decision{Entitlement: decision.Permit}
}

func priorityReduce(decisions []decision.Decision, priority []decision.Entitlement) decision.Decision {
	for _, want := range priority {
		if want == decision.NotApplicable {
			continue
		}
		if agg, ok := aggregateIfAny(decisions, want); ok {
			return agg
		}
	}
	return decision.NotApplicableDecision()
}

func aggregateIfAny(decisions []decision.Decision, want decision.Entitlement) (decision.Decision, bool) {
	var found bool
	for _, d := range decisions {
		if d.Entitlement == want {
			found = true
			break
		}
	}
	if !found {
		return decision.Decision{}, false
	}
	return aggregateSameEntitlement(decisions, want), true
}

// Select maps a document's Algorithm to its implementing function, for
// callers holding an ast.Algorithm rather than constructing one directly
// (a compiled policy set, or a top-level algorithm read from configuration
// via ast.ParseAlgorithm).
func Select(a ast.Algorithm) Algorithm {
	switch a {
	case ast.DenyOverrides:
		return DenyOverrides
	case ast.PermitOverrides:
		return PermitOverrides
	case ast.FirstApplicable:
		return FirstApplicable
	case ast.OnlyOneApplicable:
		return OnlyOneApplicable
	case ast.DenyUnlessPermit:
		return DenyUnlessPermit
	case ast.PermitUnlessDeny:
		return PermitUnlessDeny
	default:
		return DenyOverrides
	}
}

// aggregateSameEntitlement concatenates obligations/advice from every
// decision matching entitlement, in document order, and carries the
// transformed resource if exactly one contributing decision set it —
// more than one is an Indeterminate per the "ambiguous transformation"
// rule.
func aggregateSameEntitlement(decisions []decision.Decision, entitlement decision.Entitlement) decision.Decision {
	out := decision.Decision{Entitlement: entitlement}
	var transformed int
	for _, d := range decisions {
		if d.Entitlement != entitlement {
			continue
		}
		out.Obligations = append(out.Obligations, d.Obligations...)
		out.Advice = append(out.Advice, d.Advice...)
		if d.Resource != nil {
			out.Resource = d.Resource
			transformed++
		}
	}
	if transformed > 1 {
		return decision.IndeterminateDecision("more than one contributing decision transformed the resource")
	}
	return out
}
