package combine

import (
	"testing"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
)

func TestDenyOverrides(t *testing.T) {
	ds := []decision.Decision{
		{Entitlement: decision.Permit},
		{Entitlement: decision.Deny},
		{Entitlement: decision.NotApplicable},
	}
	assert.Equal(t, decision.Deny, DenyOverrides(ds).Entitlement)
}

func TestPermitOverrides(t *testing.T) {
	ds := []decision.Decision{
		{Entitlement: decision.Deny},
		{Entitlement: decision.Permit},
	}
	assert.Equal(t, decision.Permit, PermitOverrides(ds).Entitlement)
}

func TestFirstApplicableSkipsNotApplicable(t *testing.T) {
	ds := []decision.Decision{
		{Entitlement: decision.NotApplicable},
		{Entitlement: decision.Deny},
		{Entitlement: decision.Permit},
	}
	assert.Equal(t, decision.Deny, FirstApplicable(ds).Entitlement)
}

func TestOnlyOneApplicableConflict(t *testing.T) {
	ds := []decision.Decision{
		{Entitlement: decision.Permit},
		{Entitlement: decision.Deny},
	}
	got := OnlyOneApplicable(ds)
	assert.Equal(t, decision.Indeterminate, got.Entitlement)
}

func TestOnlyOneApplicableSingleWinner(t *testing.T) {
	ds := []decision.Decision{
		{Entitlement: decision.NotApplicable},
		{Entitlement: decision.Permit},
	}
	assert.Equal(t, decision.Permit, OnlyOneApplicable(ds).Entitlement)
}

func TestDenyUnlessPermit(t *testing.T) {
	assert.Equal(t, decision.Deny, DenyUnlessPermit([]decision.Decision{{Entitlement: decision.Indeterminate}}).Entitlement)
	assert.Equal(t, decision.Permit, DenyUnlessPermit([]decision.Decision{{Entitlement: decision.Permit}, {Entitlement: decision.Deny}}).Entitlement)
}

func TestPermitUnlessDeny(t *testing.T) {
	assert.Equal(t, decision.Permit, PermitUnlessDeny([]decision.Decision{{Entitlement: decision.Indeterminate}}).Entitlement)
	assert.Equal(t, decision.Deny, PermitUnlessDeny([]decision.Decision{{Entitlement: decision.Permit}, {Entitlement: decision.Deny}}).Entitlement)
}

func TestAmbiguousTransformIsIndeterminate(t *testing.T) {
	r1 := value.Text("a")
	r2 := value.Text("b")
	ds := []decision.Decision{
		{Entitlement: decision.Permit, Resource: &r1},
		{Entitlement: decision.Permit, Resource: &r2},
	}
	got := PermitOverrides(ds)
	assert.Equal(t, decision.Indeterminate, got.Entitlement)
}

func TestObligationsConcatenateInOrder(t *testing.T) {
	ds := []decision.Decision{
		{Entitlement: decision.Permit, Obligations: []value.Value{value.Text("first")}},
		{Entitlement: decision.Permit, Obligations: []value.Value{value.Text("second")}},
	}
	got := PermitOverrides(ds)
	require := assert.New(t)
	require.Len(got.Obligations, 2)
	require.True(got.Obligations[0].Equal(value.Text("first")))
	require.True(got.Obligations[1].Equal(value.Text("second")))
}

func TestSelectMapsOverridesAlgorithms(t *testing.T) {
	ds := []decision.Decision{{Entitlement: decision.Deny}, {Entitlement: decision.Permit}}
	assert.Equal(t, decision.Deny, Select(ast.DenyOverrides)(ds).Entitlement)
	assert.Equal(t, decision.Permit, Select(ast.PermitOverrides)(ds).Entitlement)
}

func TestSelectFallsBackToDenyOverridesForUnknown(t *testing.T) {
	ds := []decision.Decision{{Entitlement: decision.Deny}}
	assert.Equal(t, decision.Deny, Select(ast.Algorithm(99))(ds).Entitlement)
}
