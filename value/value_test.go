package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualityBasics(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.True(t, Undefined().Equal(Undefined()))
	assert.False(t, Undefined().Equal(Null()))
	assert.True(t, Text("a").Equal(Text("a")))
	assert.False(t, Text("a").Equal(Text("b")))
	assert.True(t, NumberFromInt64(3).Equal(NumberFromString("3")))
}

func TestErrorsCompareByReferenceOnly(t *testing.T) {
	e1 := Errorf("boom")
	e2 := Errorf("boom")
	assert.False(t, e1.Equal(e2), "two distinct Errors with identical messages must not compare equal")
	assert.True(t, e1.Equal(e1))
}

func TestArrayObjectEquality(t *testing.T) {
	a := Array(NumberFromInt64(1), Text("x"))
	b := Array(NumberFromInt64(1), Text("x"))
	assert.True(t, a.Equal(b))

	o1 := FromObject(NewObject(P("a", NumberFromInt64(1)), P("b", Text("y"))))
	o2 := FromObject(NewObject(P("b", Text("y")), P("a", NumberFromInt64(1))))
	assert.True(t, o1.Equal(o2), "object equality must not depend on insertion order")
}

func TestDivisionByZeroYieldsError(t *testing.T) {
	r := Divide(NumberFromInt64(4), NumberFromInt64(0))
	assert.True(t, r.IsError())
}

func TestArithmeticShortCircuitsOnError(t *testing.T) {
	e := Errorf("upstream failure")
	r := Add(e, NumberFromInt64(1))
	require.True(t, r.IsError())
	assert.True(t, r.Equal(e))
}

func TestRoundTripJSON(t *testing.T) {
	o := FromObject(NewObject(
		P("n", NumberFromInt64(42)),
		P("s", Text("hi")),
		P("arr", Array(Bool(true), Null())),
	))
	j, err := o.ToJSON()
	require.NoError(t, err)
	back := FromJSON(j)
	assert.True(t, o.Equal(back))
}

func TestUndefinedRejectedAtJSONBoundary(t *testing.T) {
	_, err := Undefined().ToJSON()
	assert.Error(t, err)

	// ... but silently dropped as an absent object field.
	o := FromObject(NewObject(P("present", NumberFromInt64(1)), P("missing", Undefined())))
	j, err := o.ToJSON()
	require.NoError(t, err)
	m := j.(map[string]any)
	_, ok := m["missing"]
	assert.False(t, ok)
}

func TestToJsonForValidationNeverFails(t *testing.T) {
	v := Array(Undefined(), Errorf("bad"), NumberFromInt64(1))
	out := v.ToJsonForValidation()
	assert.NotNil(t, out)
}
