// Package evalctx defines EvaluationContext, the per-subscription
// environment every PureOperator and StreamOperator evaluates against.
package evalctx

import (
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/function"
	"github.com/sapl-run/sapl-core/value"
)

// Subscription is the four-document authorization request. Any field may
// be value.Undefined(); an absent Environment defaults to an empty Object.
type Subscription struct {
	Subject     value.Value
	Action      value.Value
	Resource    value.Value
	Environment value.Value
}

// NewSubscription normalizes a raw subscription, applying the
// absent-environment default.
func NewSubscription(subject, action, resource, environment value.Value) Subscription {
	if environment.IsUndefined() {
		environment = value.FromObject(value.NewObject())
	}
	return Subscription{Subject: subject, Action: action, Resource: resource, Environment: environment}
}

// Element returns one of the four subscription documents by name
// ("subject"|"action"|"resource"|"environment"), or Undefined for an
// unrecognized name.
func (s Subscription) Element(name string) value.Value {
	switch name {
	case "subject":
		return s.Subject
	case "action":
		return s.Action
	case "resource":
		return s.Resource
	case "environment":
		return s.Environment
	default:
		return value.Undefined()
	}
}

// Context is owned by the evaluation of exactly one subscription, carrying
// identifiers for diagnostics, the
// subscription itself, the pure/stream collaborator brokers, the current
// local-variable scope, and the imports in effect.
type Context struct {
	PdpID           string
	ConfigurationID string
	EvaluationID    string
	Subscription    Subscription
	FunctionBroker  function.Broker
	AttributeBroker attribute.Broker
	LocalVariables  map[string]value.Value
	Imports         map[string]string // simple name -> fully qualified name
}

// WithVariable returns a new Context with name bound to val in local scope,
// leaving the receiver untouched — local variables "flow downward through
// nested scopes; never mutated in place.
func (c Context) WithVariable(name string, val value.Value) Context {
	next := make(map[string]value.Value, len(c.LocalVariables)+1)
	for k, v := range c.LocalVariables {
		next[k] = v
	}
	next[name] = val
	c.LocalVariables = next
	return c
}

// Variable resolves a local variable, returning Undefined if unbound.
func (c Context) Variable(name string) value.Value {
	if v, ok := c.LocalVariables[name]; ok {
		return v
	}
	return value.Undefined()
}

// ResolveImport maps a simple name used in an expression to the fully
// qualified name it was imported under, returning (name, false) unchanged
// if there is no import for it (so an already-qualified reference passes
// through).
func (c Context) ResolveImport(simpleName string) (string, bool) {
	fq, ok := c.Imports[simpleName]
	if !ok {
		return simpleName, false
	}
	return fq, true
}
