package compiler

import (
	"fmt"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/value"
)

var boolTrue = value.Bool(true)

// CompiledStatement is a compiled ValueDefinition or Condition from a policy
// body, kept in source order.
type CompiledStatement struct {
	IsValueDefinition bool
	Name              string // only meaningful when IsValueDefinition
	Expr              *Compiled
}

// CompiledPolicyRule is the compiled form of an ast.PolicyRule: every
// expression has already been resolved against its import table and lifted
// to its evaluation stratum.
type CompiledPolicyRule struct {
	Name        string
	Entitlement ast.Entitlement
	Target      *Compiled
	Body        []CompiledStatement
	Obligation  *Compiled
	Advice      *Compiled
	Transform   *Compiled
	Schemas     []CompiledSchema
}

// CompiledSchema pairs a compiled schema literal with the subscription
// element it gates.
type CompiledSchema struct {
	Element   string
	Validator Validator
}

// CompiledPolicySet is the compiled form of an ast.PolicySet.
type CompiledPolicySet struct {
	Name      string
	Algorithm ast.Algorithm
	Target    *Compiled
	Variables []CompiledStatement
	Policies  []*CompiledPolicyRule
	Schemas   []CompiledSchema
}

// CompiledDocument is either a *CompiledPolicyRule or a *CompiledPolicySet —
// the compiled form of an ast.Document, ready for evaluation.
type CompiledDocument interface {
	compiledDocumentNode()
}

func (*CompiledPolicyRule) compiledDocumentNode() {}
func (*CompiledPolicySet) compiledDocumentNode()  {}

// CompileDocument compiles a top-level ast.Document, dispatching to
// CompilePolicyRule or CompilePolicySet by its concrete type.
func CompileDocument(doc ast.Document, base *Env) (CompiledDocument, error) {
	switch d := doc.(type) {
	case *ast.PolicyRule:
		return CompilePolicyRule(d, base)
	case *ast.PolicySet:
		return CompilePolicySet(d, base)
	default:
		return nil, fmt.Errorf("compiler: unsupported document type %T", doc)
	}
}

// CompilePolicyRule compiles an ast.PolicyRule under the given base Env
// (already carrying broker collaborators); the rule's own Imports are
// merged on top, rule-local names shadowing the document's.
func CompilePolicyRule(rule *ast.PolicyRule, base *Env) (*CompiledPolicyRule, error) {
	env, err := withImports(base, rule.Imports)
	if err != nil {
		return nil, err
	}

	target, err := compileTargetOrTrue(rule.Target, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: rule %q target: %w", rule.Name, err)
	}

	body, err := compileStatements(rule.Body, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: rule %q body: %w", rule.Name, err)
	}

	obligation, err := compileOptional(rule.Obligation, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: rule %q obligation: %w", rule.Name, err)
	}
	advice, err := compileOptional(rule.Advice, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: rule %q advice: %w", rule.Name, err)
	}
	transform, err := compileOptional(rule.Transform, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: rule %q transform: %w", rule.Name, err)
	}

	schemas, err := compileSchemas(rule.Schemas, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: rule %q schema: %w", rule.Name, err)
	}

	return &CompiledPolicyRule{
		Name:        rule.Name,
		Entitlement: rule.Entitlement,
		Target:      target,
		Body:        body,
		Obligation:  obligation,
		Advice:      advice,
		Transform:   transform,
		Schemas:     schemas,
	}, nil
}

// CompilePolicySet compiles an ast.PolicySet and every policy it contains.
func CompilePolicySet(set *ast.PolicySet, base *Env) (*CompiledPolicySet, error) {
	env, err := withImports(base, set.Imports)
	if err != nil {
		return nil, err
	}

	target, err := compileTargetOrTrue(set.Target, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: policy set %q target: %w", set.Name, err)
	}

	variables, err := compileStatements(valueDefsAsStatements(set.Variables), env)
	if err != nil {
		return nil, fmt.Errorf("compiler: policy set %q variables: %w", set.Name, err)
	}

	schemas, err := compileSchemas(set.Schemas, env)
	if err != nil {
		return nil, fmt.Errorf("compiler: policy set %q schema: %w", set.Name, err)
	}

	policies := make([]*CompiledPolicyRule, len(set.Policies))
	for i, p := range set.Policies {
		cp, err := CompilePolicyRule(p, env)
		if err != nil {
			return nil, err
		}
		policies[i] = cp
	}

	return &CompiledPolicySet{
		Name:      set.Name,
		Algorithm: set.Algorithm,
		Target:    target,
		Variables: variables,
		Policies:  policies,
		Schemas:   schemas,
	}, nil
}

func withImports(base *Env, imports []ast.Import) (*Env, error) {
	if len(imports) == 0 {
		return base, nil
	}
	table, err := BuildImportTable(imports, base.Functions, base.Attributes)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(base.Imports)+len(table))
	for k, v := range base.Imports {
		merged[k] = v
	}
	for k, v := range table {
		merged[k] = v
	}
	next := *base
	next.Imports = merged
	return &next, nil
}

func compileTargetOrTrue(target ast.Expression, env *Env) (*Compiled, error) {
	if target == nil {
		return constantC(boolTrue), nil
	}
	return Compile(target, env)
}

func compileOptional(expr ast.Expression, env *Env) (*Compiled, error) {
	if expr == nil {
		return nil, nil
	}
	return Compile(expr, env)
}

func compileStatements(stmts []ast.Statement, env *Env) ([]CompiledStatement, error) {
	out := make([]CompiledStatement, len(stmts))
	for i, s := range stmts {
		switch st := s.(type) {
		case ast.ValueDefinition:
			c, err := Compile(st.Expr, env)
			if err != nil {
				return nil, err
			}
			out[i] = CompiledStatement{IsValueDefinition: true, Name: st.Name, Expr: c}
		case ast.Condition:
			c, err := Compile(st.Expr, env)
			if err != nil {
				return nil, err
			}
			out[i] = CompiledStatement{Expr: c}
		default:
			return nil, fmt.Errorf("compiler: unsupported statement type %T", s)
		}
	}
	return out, nil
}

func valueDefsAsStatements(defs []ast.ValueDefinition) []ast.Statement {
	out := make([]ast.Statement, len(defs))
	for i, d := range defs {
		out[i] = d
	}
	return out
}

func compileSchemas(schemas []ast.SchemaExpression, env *Env) ([]CompiledSchema, error) {
	if len(schemas) == 0 {
		return nil, nil
	}
	out := make([]CompiledSchema, 0, len(schemas))
	for _, s := range schemas {
		c, err := Compile(s.Schema, env)
		if err != nil {
			return nil, err
		}
		if c.Stratum() != StratumConstant {
			return nil, fmt.Errorf("compiler: %s: a schema expression must be a compile-time constant", s.Loc)
		}
		if env.Schemas == nil {
			return nil, fmt.Errorf("compiler: %s: schema enforcement requires a schema registry", s.Loc)
		}
		v, err := env.Schemas.Compile(s.Loc, c.Constant())
		if err != nil {
			return nil, err
		}
		out = append(out, CompiledSchema{Element: s.Element, Validator: v})
	}
	return out, nil
}
