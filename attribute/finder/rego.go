// Package finder collects reference attribute.Finder implementations. The
// Rego finder prepares and evaluates a github.com/open-policy-agent/opa/rego
// query to source a single attribute value, demonstrating that an external
// policy system composes as just another finder behind the broker.
package finder

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// NewRegoFinder compiles src once at registration time and returns a Finder
// that evaluates query against an input object built from the attribute's
// arguments (positionally named arg0, arg1, ...), emitting one Value and
// closing — a one-shot lookup, the shape withPolling in the broker exists
// to turn into a recurring attribute if the caller sets PollInterval.
func NewRegoFinder(src, query string) (attribute.Finder, error) {
	ctx := context.Background()
	r := rego.New(rego.Query(query), rego.Module("attribute.rego", src))
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("finder/rego: compile %q: %w", query, err)
	}
	return func(inv attribute.Invocation, args []value.Value) stream.Source[value.Value] {
		return func(ctx context.Context) <-chan value.Value {
			out := make(chan value.Value, 1)
			go func() {
				defer close(out)
				input := map[string]any{}
				for i, a := range args {
					input[fmt.Sprintf("arg%d", i)] = a.ToJsonForValidation()
				}
				results, err := prepared.Eval(ctx, rego.EvalInput(input))
				if err != nil {
					out <- value.Errorf("finder/rego: eval %s: %v", inv.FullyQualifiedName, err)
					return
				}
				if len(results) == 0 || len(results[0].Expressions) == 0 {
					out <- value.Undefined()
					return
				}
				out <- value.FromJSON(results[0].Expressions[0].Value)
			}()
			return out
		}
	}, nil
}
