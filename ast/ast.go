// Package ast defines the sealed SAPL document/expression hierarchy that an
// (out-of-scope) grammar/parser produces and the compiler package consumes.
// Every node carries a value.SourceLocation for diagnostics and coverage.
package ast

import (
	"fmt"

	"github.com/sapl-run/sapl-core/value"
)

// Node is implemented by every AST node.
type Node interface {
	Location() value.SourceLocation
}

// Document is either a PolicySet or a PolicyRule at the top level of a
// compilation unit.
type Document interface {
	Node
	documentNode()
}

// Entitlement is the terminal decision a PolicyRule commits to before
// obligation/advice/transform evaluation.
type Entitlement int

const (
	Permit Entitlement = iota
	Deny
)

func (e Entitlement) String() string {
	if e == Permit {
		return "permit"
	}
	return "deny"
}

// Algorithm names one of the six combining algorithms a PolicySet may use
// to aggregate the decisions of its contained policies.
type Algorithm int

const (
	DenyOverrides Algorithm = iota
	PermitOverrides
	FirstApplicable
	OnlyOneApplicable
	DenyUnlessPermit
	PermitUnlessDeny
)

// ParseAlgorithm maps a combining algorithm's canonical name to its
// Algorithm constant, for callers that read an algorithm choice from
// configuration or a document format rather than constructing it directly.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "denyOverrides", "":
		return DenyOverrides, nil
	case "permitOverrides":
		return PermitOverrides, nil
	case "firstApplicable":
		return FirstApplicable, nil
	case "onlyOneApplicable":
		return OnlyOneApplicable, nil
	case "denyUnlessPermit":
		return DenyUnlessPermit, nil
	case "permitUnlessDeny":
		return PermitUnlessDeny, nil
	default:
		return 0, fmt.Errorf("ast: unknown combining algorithm %q", name)
	}
}

// Import is a single qualified-name import, optionally aliased. A Wildcard
// import (Alias == "*") brings every function/attribute of a library into
// scope; compiling two imports that collide (explicit vs. wildcard, or two
// explicit imports under the same simple name) is a compile error.
type Import struct {
	Loc     value.SourceLocation
	Parts   []string // qualified name parts, last is the simple name
	Alias   string   // "" -> use simple name; "*" -> wildcard
}

func (i Import) Location() value.SourceLocation { return i.Loc }

// PolicySet groups ordered Policies under one combining Algorithm, with an
// optional target expression, local variable definitions evaluated in
// order before any contained policy, and optional schema enforcement
// expressions.
type PolicySet struct {
	Loc         value.SourceLocation
	Name        string
	Algorithm   Algorithm
	Imports     []Import
	Target      Expression // nil means "always matches"
	Variables   []ValueDefinition
	Policies    []*PolicyRule
	Schemas     []SchemaExpression
}

func (p *PolicySet) Location() value.SourceLocation { return p.Loc }
func (p *PolicySet) documentNode()                  {}

// PolicyRule is a single permit/deny policy: target, body statements, and
// optional obligation/advice/transformation expressions.
type PolicyRule struct {
	Loc         value.SourceLocation
	Name        string
	Entitlement Entitlement
	Imports     []Import
	Target      Expression
	Body        []Statement
	Obligation  Expression
	Advice      Expression
	Transform   Expression
	Schemas     []SchemaExpression
}

func (p *PolicyRule) Location() value.SourceLocation { return p.Loc }
func (p *PolicyRule) documentNode()                  {}

// SchemaExpression is a `where schema <expr> enforced` clause; it must
// compile to a constant object literal without "$ref".
type SchemaExpression struct {
	Loc     value.SourceLocation
	Element string // "subject" | "action" | "resource" | "environment"
	Schema  Expression
}

func (s SchemaExpression) Location() value.SourceLocation { return s.Loc }

// Statement is either a ValueDefinition or a Condition inside a policy body.
type Statement interface {
	Node
	statementNode()
}

// ValueDefinition introduces a local variable bound to the result of an
// expression; a duplicate name within one body is a runtime
// "indeterminate", not a compile error.
type ValueDefinition struct {
	Loc  value.SourceLocation
	Name string
	Expr Expression
}

func (v ValueDefinition) Location() value.SourceLocation { return v.Loc }
func (v ValueDefinition) statementNode()                 {}

// Condition is a boolean expression statement.
type Condition struct {
	Loc  value.SourceLocation
	Expr Expression
}

func (c Condition) Location() value.SourceLocation { return c.Loc }
func (c Condition) statementNode()                 {}
