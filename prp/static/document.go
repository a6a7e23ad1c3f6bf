package static

import (
	"encoding/json"
	"fmt"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/value"
)

// This file decodes policy documents from a small JSON expression format
// rather than SAPL source text: the retrieval pack carries no grammar or
// parser for the textual syntax, so the file-backed reference source reads
// an already-structured representation of the same AST the (out-of-scope)
// parser would otherwise build.

type documentJSON struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Entitlement string            `json:"entitlement,omitempty"`
	Algorithm   string            `json:"algorithm,omitempty"`
	Imports     []importJSON      `json:"imports,omitempty"`
	Target      json.RawMessage   `json:"target,omitempty"`
	Body        []json.RawMessage `json:"body,omitempty"`
	Variables   []valueDefJSON    `json:"variables,omitempty"`
	Obligation  json.RawMessage   `json:"obligation,omitempty"`
	Advice      json.RawMessage   `json:"advice,omitempty"`
	Transform   json.RawMessage   `json:"transform,omitempty"`
	Schemas     []schemaJSON      `json:"schemas,omitempty"`
	Policies    []documentJSON    `json:"policies,omitempty"`
}

type importJSON struct {
	Parts []string `json:"parts"`
	Alias string   `json:"alias,omitempty"`
}

type valueDefJSON struct {
	Name string          `json:"name"`
	Expr json.RawMessage `json:"expr"`
}

type statementJSON struct {
	ValueDefinition string          `json:"valueDefinition,omitempty"`
	Condition       json.RawMessage `json:"condition,omitempty"`
	Expr            json.RawMessage `json:"expr,omitempty"`
}

type schemaJSON struct {
	Element string          `json:"element"`
	Schema  json.RawMessage `json:"schema"`
}

type exprJSON struct {
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
	Name     json.RawMessage `json:"name,omitempty"` // string for variable, []string for attribute/call
	Element  string          `json:"element,omitempty"`
	Entity   json.RawMessage `json:"entity,omitempty"`
	Args     []json.RawMessage `json:"args,omitempty"`
	Op       string          `json:"op,omitempty"`
	Operand  json.RawMessage `json:"operand,omitempty"`
	Left     json.RawMessage `json:"left,omitempty"`
	Right    json.RawMessage `json:"right,omitempty"`
	Condition json.RawMessage `json:"condition,omitempty"`
	Then     json.RawMessage `json:"then,omitempty"`
	Else     json.RawMessage `json:"else,omitempty"`
	Elements []json.RawMessage `json:"elements,omitempty"`
	Keys     []string        `json:"keys,omitempty"`
	Values   []json.RawMessage `json:"values,omitempty"`
	Base     json.RawMessage `json:"base,omitempty"`
	Steps    []stepJSON      `json:"steps,omitempty"`
}

type stepJSON struct {
	Kind      string          `json:"kind"`
	Key       string          `json:"key,omitempty"`
	Index     int             `json:"index,omitempty"`
	Predicate json.RawMessage `json:"predicate,omitempty"`
}

func loc(document string) value.SourceLocation {
	return value.SourceLocation{DocumentName: document}
}

// decodeDocument parses one top-level policy document.
func decodeDocument(document string, data []byte) (ast.Document, error) {
	var d documentJSON
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("static: %s: %w", document, err)
	}
	return buildDocument(document, d)
}

func buildDocument(document string, d documentJSON) (ast.Document, error) {
	imports, err := buildImports(d.Imports)
	if err != nil {
		return nil, err
	}
	schemas, err := buildSchemas(document, d.Schemas)
	if err != nil {
		return nil, err
	}
	target, err := decodeOptionalExpr(document, d.Target)
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case "policyRule":
		entitlement, err := parseEntitlement(d.Entitlement)
		if err != nil {
			return nil, fmt.Errorf("static: %s: %w", document, err)
		}
		body, err := buildBody(document, d.Body)
		if err != nil {
			return nil, err
		}
		obligation, err := decodeOptionalExpr(document, d.Obligation)
		if err != nil {
			return nil, err
		}
		advice, err := decodeOptionalExpr(document, d.Advice)
		if err != nil {
			return nil, err
		}
		transform, err := decodeOptionalExpr(document, d.Transform)
		if err != nil {
			return nil, err
		}
		return &ast.PolicyRule{
			Loc:         loc(document),
			Name:        d.Name,
			Entitlement: entitlement,
			Imports:     imports,
			Target:      target,
			Body:        body,
			Obligation:  obligation,
			Advice:      advice,
			Transform:   transform,
			Schemas:     schemas,
		}, nil

	case "policySet":
		algo, err := parseAlgorithm(d.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("static: %s: %w", document, err)
		}
		vars := make([]ast.ValueDefinition, len(d.Variables))
		for i, v := range d.Variables {
			expr, err := decodeExpr(document, v.Expr)
			if err != nil {
				return nil, err
			}
			vars[i] = ast.ValueDefinition{Loc: loc(document), Name: v.Name, Expr: expr}
		}
		policies := make([]*ast.PolicyRule, len(d.Policies))
		for i, p := range d.Policies {
			p.Kind = "policyRule"
			doc, err := buildDocument(document, p)
			if err != nil {
				return nil, err
			}
			rule, ok := doc.(*ast.PolicyRule)
			if !ok {
				return nil, fmt.Errorf("static: %s: contained policy %q is not a policy rule", document, p.Name)
			}
			policies[i] = rule
		}
		return &ast.PolicySet{
			Loc:       loc(document),
			Name:      d.Name,
			Algorithm: algo,
			Imports:   imports,
			Target:    target,
			Variables: vars,
			Policies:  policies,
			Schemas:   schemas,
		}, nil

	default:
		return nil, fmt.Errorf("static: %s: unknown document kind %q", document, d.Kind)
	}
}

func buildImports(in []importJSON) ([]ast.Import, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]ast.Import, len(in))
	for i, im := range in {
		out[i] = ast.Import{Parts: im.Parts, Alias: im.Alias}
	}
	return out, nil
}

func buildSchemas(document string, in []schemaJSON) ([]ast.SchemaExpression, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]ast.SchemaExpression, len(in))
	for i, s := range in {
		expr, err := decodeExpr(document, s.Schema)
		if err != nil {
			return nil, err
		}
		out[i] = ast.SchemaExpression{Loc: loc(document), Element: s.Element, Schema: expr}
	}
	return out, nil
}

func buildBody(document string, in []json.RawMessage) ([]ast.Statement, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]ast.Statement, len(in))
	for i, raw := range in {
		var s statementJSON
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("static: %s: body[%d]: %w", document, i, err)
		}
		if s.ValueDefinition != "" {
			expr, err := decodeExpr(document, s.Expr)
			if err != nil {
				return nil, err
			}
			out[i] = ast.ValueDefinition{Loc: loc(document), Name: s.ValueDefinition, Expr: expr}
			continue
		}
		expr, err := decodeExpr(document, s.Condition)
		if err != nil {
			return nil, err
		}
		out[i] = ast.Condition{Loc: loc(document), Expr: expr}
	}
	return out, nil
}

func parseEntitlement(s string) (ast.Entitlement, error) {
	switch s {
	case "permit":
		return ast.Permit, nil
	case "deny":
		return ast.Deny, nil
	default:
		return 0, fmt.Errorf("unknown entitlement %q", s)
	}
}

func parseAlgorithm(s string) (ast.Algorithm, error) {
	return ast.ParseAlgorithm(s)
}

func decodeOptionalExpr(document string, raw json.RawMessage) (ast.Expression, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return decodeExpr(document, raw)
}

func decodeExpr(document string, raw json.RawMessage) (ast.Expression, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("static: %s: expected an expression, got none", document)
	}
	var e exprJSON
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("static: %s: %w", document, err)
	}
	l := loc(document)

	switch e.Type {
	case "literal":
		v, err := value.ParseJSON(e.Value)
		if err != nil {
			return nil, fmt.Errorf("static: %s: literal: %w", document, err)
		}
		n := &ast.Literal{Value: v}
		n.Loc = l
		return n, nil

	case "variable":
		name, err := decodeString(e.Name)
		if err != nil {
			return nil, err
		}
		n := &ast.Variable{Name: name}
		n.Loc = l
		return n, nil

	case "subscriptionElement":
		n := &ast.SubscriptionElement{Element: e.Element}
		n.Loc = l
		return n, nil

	case "attribute":
		name, err := decodeStrings(e.Name)
		if err != nil {
			return nil, err
		}
		entity, err := decodeOptionalExpr(document, e.Entity)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(document, e.Args)
		if err != nil {
			return nil, err
		}
		n := &ast.AttributeReference{QualifiedName: name, Entity: entity, Arguments: args}
		n.Loc = l
		return n, nil

	case "call":
		name, err := decodeStrings(e.Name)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(document, e.Args)
		if err != nil {
			return nil, err
		}
		n := &ast.FunctionCall{QualifiedName: name, Arguments: args}
		n.Loc = l
		return n, nil

	case "unary":
		operand, err := decodeExpr(document, e.Operand)
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryOp{Op: e.Op, Operand: operand}
		n.Loc = l
		return n, nil

	case "binary":
		left, err := decodeExpr(document, e.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(document, e.Right)
		if err != nil {
			return nil, err
		}
		n := &ast.BinaryOp{Op: e.Op, Left: left, Right: right}
		n.Loc = l
		return n, nil

	case "conditional":
		cond, err := decodeExpr(document, e.Condition)
		if err != nil {
			return nil, err
		}
		then, err := decodeExpr(document, e.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeExpr(document, e.Else)
		if err != nil {
			return nil, err
		}
		n := &ast.Conditional{Condition: cond, Then: then, Else: els}
		n.Loc = l
		return n, nil

	case "array":
		elems, err := decodeExprs(document, e.Elements)
		if err != nil {
			return nil, err
		}
		n := &ast.ArrayLiteral{Elements: elems}
		n.Loc = l
		return n, nil

	case "object":
		vals, err := decodeExprs(document, e.Values)
		if err != nil {
			return nil, err
		}
		n := &ast.ObjectLiteral{Keys: e.Keys, Values: vals}
		n.Loc = l
		return n, nil

	case "step":
		base, err := decodeExpr(document, e.Base)
		if err != nil {
			return nil, err
		}
		steps, err := decodeSteps(document, e.Steps)
		if err != nil {
			return nil, err
		}
		n := &ast.StepAccess{Base: base, Steps: steps}
		n.Loc = l
		return n, nil

	default:
		return nil, fmt.Errorf("static: %s: unknown expression type %q", document, e.Type)
	}
}

func decodeSteps(document string, in []stepJSON) ([]ast.Step, error) {
	out := make([]ast.Step, len(in))
	l := loc(document)
	for i, s := range in {
		switch s.Kind {
		case "key":
			n := &ast.KeyStep{Key: s.Key}
			n.Loc = l
			out[i] = n
		case "index":
			n := &ast.IndexStep{Index: s.Index}
			n.Loc = l
			out[i] = n
		case "recursive":
			n := &ast.RecursiveDescentStep{Key: s.Key}
			n.Loc = l
			out[i] = n
		case "wildcard":
			n := &ast.WildcardStep{}
			n.Loc = l
			out[i] = n
		case "condition":
			pred, err := decodeExpr(document, s.Predicate)
			if err != nil {
				return nil, err
			}
			n := &ast.ConditionStep{Predicate: pred}
			n.Loc = l
			out[i] = n
		default:
			return nil, fmt.Errorf("static: %s: unknown step kind %q", document, s.Kind)
		}
	}
	return out, nil
}

func decodeExprs(document string, in []json.RawMessage) ([]ast.Expression, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]ast.Expression, len(in))
	for i, raw := range in {
		e, err := decodeExpr(document, raw)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("static: expected a string: %w", err)
	}
	return s, nil
}

func decodeStrings(raw json.RawMessage) ([]string, error) {
	var s []string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("static: expected a string array: %w", err)
	}
	return s, nil
}
