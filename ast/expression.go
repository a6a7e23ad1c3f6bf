package ast

import "github.com/sapl-run/sapl-core/value"

// Expression is the sealed expression hierarchy. Every concrete type below
// implements it.
type Expression interface {
	Node
	expressionNode()
}

type baseExpr struct{ Loc value.SourceLocation }

func (b baseExpr) Location() value.SourceLocation { return b.Loc }
func (baseExpr) expressionNode()                  {}

// Literal is a constant value appearing verbatim in source (null, true,
// false, numbers, strings, and array/object literals whose elements are
// themselves constant are folded by the compiler, not here — the AST keeps
// array/object literals as ArrayLiteral/ObjectLiteral so the compiler can
// decide per-element whether folding applies).
type Literal struct {
	baseExpr
	Value value.Value
}

// ArrayLiteral is `[ e1, e2, ... ]`.
type ArrayLiteral struct {
	baseExpr
	Elements []Expression
}

// ObjectLiteral is `{ "k": e, ... }`, keys given in source order.
type ObjectLiteral struct {
	baseExpr
	Keys   []string
	Values []Expression
}

// Variable references a local variable bound by a ValueDefinition, a policy
// set's variable block, or an attribute-finder `takesVariables` argument.
type Variable struct {
	baseExpr
	Name string
}

// SubscriptionElement references one of the four top-level subscription
// documents (subject/action/resource/environment).
type SubscriptionElement struct {
	baseExpr
	Element string
}

// AttributeReference is `<library.name>` or `entity.<library.name>`,
// optionally with call arguments and a variables map, matching
// AttributeFinderInvocation's shape.
type AttributeReference struct {
	baseExpr
	QualifiedName []string
	Entity        Expression // nil for environment attributes
	Arguments     []Expression
}

// FunctionCall is `library.name(args...)`.
type FunctionCall struct {
	baseExpr
	QualifiedName []string
	Arguments     []Expression
}

// UnaryOp is a prefix operator: "-", "!".
type UnaryOp struct {
	baseExpr
	Op      string
	Operand Expression
}

// BinaryOp is an infix operator: arithmetic, comparison, logical,
// string-concat. N-ary sums etc. are represented as left-folded chains of
// BinaryOp by the parser (out of scope); the compiler performs its own
// stratum lifting regardless of how deep the chain is.
type BinaryOp struct {
	baseExpr
	Op          string
	Left, Right Expression
}

// Condition-style ternary: `cond ? then : else`.
type Conditional struct {
	baseExpr
	Condition, Then, Else Expression
}

// StepAccess applies a sequence of path Steps to a base expression, e.g.
// `resource.owner.id` or `resource.tags[0]`.
type StepAccess struct {
	baseExpr
	Base  Expression
	Steps []Step
}

// Step is one element of a path navigation chain.
type Step interface {
	Node
	stepNode()
}

type baseStep struct{ Loc value.SourceLocation }

func (b baseStep) Location() value.SourceLocation { return b.Loc }
func (baseStep) stepNode()                        {}

// KeyStep is `.name`.
type KeyStep struct {
	baseStep
	Key string
}

// IndexStep is `[n]`, negative indices count from the end.
type IndexStep struct {
	baseStep
	Index int
}

// RecursiveDescentStep is `..name`, collecting every matching descendant.
type RecursiveDescentStep struct {
	baseStep
	Key string
}

// ConditionStep is `[?(@.field == value)]`, filtering array elements.
type ConditionStep struct {
	baseStep
	Predicate Expression
}

// WildcardStep is `.*` or `[*]`.
type WildcardStep struct {
	baseStep
}
