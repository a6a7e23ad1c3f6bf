// Package decision defines the Decision value every PolicyRule and
// PolicySet evaluation produces; the same type carries the combined
// decision a subscription is ultimately notified with.
package decision

import "github.com/sapl-run/sapl-core/value"

// Entitlement is the outcome of evaluating one policy or policy set.
type Entitlement int

const (
	NotApplicable Entitlement = iota
	Indeterminate
	Permit
	Deny
)

func (e Entitlement) String() string {
	switch e {
	case NotApplicable:
		return "notApplicable"
	case Indeterminate:
		return "indeterminate"
	case Permit:
		return "permit"
	default:
		return "deny"
	}
}

// Decision is one policy's (or policy set's) evaluation result: an
// entitlement plus whatever obligations, advice, and resource
// transformation it contributed. NotApplicable and Indeterminate decisions
// never carry obligations, advice, or a transformed resource.
type Decision struct {
	Entitlement Entitlement
	Obligations []value.Value
	Advice      []value.Value
	Resource    *value.Value
	Reason      string // diagnostic only, never part of Equal
}

// NotApplicableDecision is the zero-obligation "this policy does not apply"
// result.
func NotApplicableDecision() Decision { return Decision{Entitlement: NotApplicable} }

// IndeterminateDecision wraps an evaluation failure (a type error, an
// unresolvable schema, a duplicate variable name) into a Decision.
func IndeterminateDecision(reason string) Decision {
	return Decision{Entitlement: Indeterminate, Reason: reason}
}

// Equal implements the structural-equality rule the dispatcher's dedup
// layer needs: two Decisions are equal when their entitlement, obligations,
// advice, and transformed resource all compare equal. Reason is
// diagnostic-only and excluded.
func (d Decision) Equal(other Decision) bool {
	if d.Entitlement != other.Entitlement {
		return false
	}
	if !equalSlice(d.Obligations, other.Obligations) {
		return false
	}
	if !equalSlice(d.Advice, other.Advice) {
		return false
	}
	switch {
	case d.Resource == nil && other.Resource == nil:
		return true
	case d.Resource == nil || other.Resource == nil:
		return false
	default:
		return d.Resource.Equal(*other.Resource)
	}
}

func equalSlice(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
