package features

import (
	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/value"
)

// This file builds ast.Document fixtures directly rather than through any
// textual syntax: the retrieval pack carries no grammar or parser for
// policy source text, so scenario steps name a fixture by key and get back
// the document the scenario describes.

func subjectRole(op string, want value.Value) ast.Expression {
	return &ast.BinaryOp{
		Op:    op,
		Left:  step(&ast.SubscriptionElement{Element: "subject"}, "role"),
		Right: &ast.Literal{Value: want},
	}
}

func actionIs(name string) ast.Expression {
	return &ast.BinaryOp{
		Op:    "==",
		Left:  &ast.SubscriptionElement{Element: "action"},
		Right: &ast.Literal{Value: value.Text(name)},
	}
}

func and(exprs ...ast.Expression) ast.Expression {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = &ast.BinaryOp{Op: "&&", Left: out, Right: e}
	}
	return out
}

func step(base ast.Expression, key string) ast.Expression {
	return &ast.StepAccess{Base: base, Steps: []ast.Step{&ast.KeyStep{Key: key}}}
}

func fixtureDocument(key string) (ast.Document, bool) {
	switch key {
	case "deny-overrides-fixture":
		return &ast.PolicySet{
			Name:      key,
			Algorithm: ast.DenyOverrides,
			Policies: []*ast.PolicyRule{
				{Name: "allow-members", Entitlement: ast.Permit, Target: and(actionIs("read"), subjectRole("!=", value.Text("banned")))},
				{Name: "block-banned", Entitlement: ast.Deny, Target: subjectRole("==", value.Text("banned"))},
			},
		}, true

	case "first-applicable-fixture":
		return &ast.PolicySet{
			Name:      key,
			Algorithm: ast.FirstApplicable,
			Policies: []*ast.PolicyRule{
				{Name: "block-archive", Entitlement: ast.Deny, Target: actionIs("archive")},
				{Name: "allow-members", Entitlement: ast.Permit, Target: subjectRole("==", value.Text("member"))},
			},
		}, true

	case "only-one-fixture":
		return &ast.PolicySet{
			Name:      key,
			Algorithm: ast.OnlyOneApplicable,
			Policies: []*ast.PolicyRule{
				{Name: "allow-read", Entitlement: ast.Permit, Target: actionIs("read")},
				{Name: "allow-conflict-a", Entitlement: ast.Permit, Target: actionIs("conflict")},
				{Name: "allow-conflict-b", Entitlement: ast.Deny, Target: actionIs("conflict")},
			},
		}, true

	case "classified-resource-fixture":
		classificationSchema := value.FromObject(value.NewObject(
			value.P("type", value.Text("object")),
			value.P("required", value.Array(value.Text("classification"))),
			value.P("properties", value.FromObject(value.NewObject(
				value.P("classification", value.FromObject(value.NewObject(
					value.P("enum", value.Array(value.Text("public"), value.Text("internal"), value.Text("secret"))),
				))),
			))),
		))
		return &ast.PolicyRule{
			Name:        key,
			Entitlement: ast.Permit,
			Target:      actionIs("read"),
			Schemas: []ast.SchemaExpression{
				{Element: "resource", Schema: &ast.Literal{Value: classificationSchema}},
			},
		}, true

	default:
		return nil, false
	}
}
