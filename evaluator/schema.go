package evaluator

import (
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/decision"
	"github.com/sapl-run/sapl-core/evalctx"
)

// validateSchemas checks every "where schema ... enforced" clause against
// the subscription element it gates. Schema enforcement is evaluated once
// against the subscription that opened the evaluation, not reactively:
// subject/action/resource/environment documents are fixed for the lifetime
// of a subscription even though attributes read from within them are not.
//
// It returns nil when every schema conforms, so the caller proceeds to the
// rest of the body. A non-nil return is the terminal decision for the gate:
// a resource that does not conform to its schema is not-applicable, not
// indeterminate — indeterminate is reserved for the validator itself
// failing to evaluate the schema (a malformed document, an internal error).
func validateSchemas(schemas []compiler.CompiledSchema, ctx evalctx.Context) *decision.Decision {
	for _, s := range schemas {
		el := ctx.Subscription.Element(s.Element)
		err := s.Validator.Validate(el)
		if err == nil {
			continue
		}
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			d := decision.NotApplicableDecision()
			return &d
		}
		d := decision.IndeterminateDecision(fmt.Sprintf("schema validator error on %s: %s", s.Element, err))
		return &d
	}
	return nil
}
