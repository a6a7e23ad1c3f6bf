// Package schema compiles and caches JSON Schema documents used by "where
// schema ... enforced" clauses, backed by github.com/google/jsonschema-go so
// the engine validates subscription elements against the same draft-2020-12
// semantics the rest of the ecosystem uses rather than a hand-rolled
// validator.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/sapl-run/sapl-core/value"
)

// Validator checks a subscription element against one compiled schema.
type Validator interface {
	Validate(v value.Value) error
}

// resolvedSchema adapts a *jsonschema.Resolved to Validator.
type resolvedSchema struct {
	resolved *jsonschema.Resolved
}

func (r *resolvedSchema) Validate(v value.Value) error {
	return r.resolved.Validate(v.ToJsonForValidation())
}

// Registry compiles schema object literals into Validators and caches them
// by source location, so a policy evaluated many times over a long-lived
// subscription does not recompile its schema clause on every reactive
// re-evaluation.
type Registry struct {
	mu    sync.Mutex
	byLoc map[value.SourceLocation]Validator
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byLoc: make(map[value.SourceLocation]Validator)}
}

// Compile resolves the JSON Schema literal at loc (an object value.Value,
// already compiled from a constant schema expression) into a Validator,
// caching the result under loc. A "$ref" anywhere in the document is
// rejected: schema expressions must be self-contained at compile time.
func (reg *Registry) Compile(loc value.SourceLocation, literal value.Value) (Validator, error) {
	reg.mu.Lock()
	if v, ok := reg.byLoc[loc]; ok {
		reg.mu.Unlock()
		return v, nil
	}
	reg.mu.Unlock()

	if literal.Kind() != value.KindObject {
		return nil, fmt.Errorf("schema: %s: schema expression must be a constant object literal", loc)
	}
	raw, err := json.Marshal(literal.ToJsonForValidation())
	if err != nil {
		return nil, fmt.Errorf("schema: %s: marshal schema literal: %w", loc, err)
	}
	if containsRef(raw) {
		return nil, fmt.Errorf("schema: %s: \"$ref\" is not permitted in a schema expression", loc)
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("schema: %s: invalid JSON Schema: %w", loc, err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: resolve: %w", loc, err)
	}
	v := &resolvedSchema{resolved: resolved}

	reg.mu.Lock()
	reg.byLoc[loc] = v
	reg.mu.Unlock()
	return v, nil
}

func containsRef(raw []byte) bool {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return walkForRef(probe)
}

func walkForRef(node any) bool {
	switch n := node.(type) {
	case map[string]any:
		if _, ok := n["$ref"]; ok {
			return true
		}
		for _, v := range n {
			if walkForRef(v) {
				return true
			}
		}
	case []any:
		for _, v := range n {
			if walkForRef(v) {
				return true
			}
		}
	}
	return false
}
