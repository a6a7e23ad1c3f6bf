package evaluator

import (
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/value"
)

type fakeValidator struct{ err error }

func (f fakeValidator) Validate(value.Value) error { return f.err }

func TestValidateSchemasPassesWhenEveryValidatorSucceeds(t *testing.T) {
	schemas := []compiler.CompiledSchema{{Element: "resource", Validator: fakeValidator{}}}
	assert.Nil(t, validateSchemas(schemas, subscriptionCtx()))
}

func TestValidateSchemasYieldsNotApplicableOnValidationMismatch(t *testing.T) {
	mismatch := &jsonschema.ValidationError{Message: "classification: value must be one of the enum values"}
	schemas := []compiler.CompiledSchema{{Element: "resource", Validator: fakeValidator{err: mismatch}}}

	gate := validateSchemas(schemas, subscriptionCtx())
	require.NotNil(t, gate)
	assert.Equal(t, decision.NotApplicable, gate.Entitlement)
}

func TestValidateSchemasYieldsIndeterminateWhenValidatorItselfFails(t *testing.T) {
	schemas := []compiler.CompiledSchema{{Element: "resource", Validator: fakeValidator{err: errors.New("schema compiler: internal failure")}}}

	gate := validateSchemas(schemas, subscriptionCtx())
	require.NotNil(t, gate)
	assert.Equal(t, decision.Indeterminate, gate.Entitlement)
}
