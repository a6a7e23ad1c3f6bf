// Package attribute implements the attribute broker: it routes
// "<library.name>" lookups to registered finders, multicasts each live
// upstream to every current subscriber sharing the same invocation
// fingerprint, and layers grace-period teardown, freshness TTL, polling,
// initial-value timeout and per-invocation backoff on top.
package attribute

import (
	"strconv"

	"github.com/sapl-run/sapl-core/value"
)

// Variadic marks a FinderSpecification's InnerArity as accepting any number
// of positional arguments.
const Variadic = -1

// Validator checks one argument (or the entity) against a finder's declared
// shape. A nil Validator accepts anything.
type Validator func(value.Value) error

// FinderSpecification immutably describes one registered attribute finder:
// its name, entity/argument shape, and environment-attribute flag.
type FinderSpecification struct {
	FullyQualifiedName   string
	IsEnvironmentAttribute bool
	InnerArity           int // >=0, or Variadic
	TakesVariables       bool
	EntityValidator      Validator
	ParameterValidators  []Validator
}

func (s FinderSpecification) validateEntity(entity *value.Value) error {
	if s.IsEnvironmentAttribute {
		return nil
	}
	if s.EntityValidator == nil {
		return nil
	}
	var v value.Value
	if entity != nil {
		v = *entity
	} else {
		v = value.Undefined()
	}
	return s.EntityValidator(v)
}

func (s FinderSpecification) validateArguments(args []value.Value) error {
	if s.InnerArity != Variadic && len(args) != s.InnerArity {
		return &arityError{s.FullyQualifiedName, s.InnerArity, len(args)}
	}
	if len(s.ParameterValidators) == 0 {
		return nil
	}
	for i, a := range args {
		var v Validator
		if s.InnerArity == Variadic {
			// a single validator is repeated for every variadic argument;
			// more than one is applied positionally, clamped to the last.
			idx := i
			if idx >= len(s.ParameterValidators) {
				idx = len(s.ParameterValidators) - 1
			}
			v = s.ParameterValidators[idx]
		} else if i < len(s.ParameterValidators) {
			v = s.ParameterValidators[i]
		}
		if v == nil {
			continue
		}
		if err := v(a); err != nil {
			return err
		}
	}
	return nil
}

type arityError struct {
	name     string
	expected int
	got      int
}

func (e *arityError) Error() string {
	return "attribute " + e.name + ": expected " + strconv.Itoa(e.expected) + " arguments, got " + strconv.Itoa(e.got)
}
