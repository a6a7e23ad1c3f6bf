package features

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/combine"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/dispatch"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/function"
	"github.com/sapl-run/sapl-core/prp"
	"github.com/sapl-run/sapl-core/prp/static"
	"github.com/sapl-run/sapl-core/schema"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

type decisionScenario struct {
	source   prp.Source
	algo     combine.Algorithm
	decision string
}

func (d *decisionScenario) theDocumentFixture(key string) error {
	doc, ok := fixtureDocument(key)
	if !ok {
		return fmt.Errorf("no fixture registered for %q", key)
	}
	env := &compiler.Env{
		Imports:    map[string]string{},
		Functions:  function.NewBuiltinRegistry(),
		Attributes: attribute.NewLiveBroker(attribute.DefaultDefaults()),
		Schemas:    schema.NewRegistry(),
	}
	src, err := static.New([]ast.Document{doc}, env)
	if err != nil {
		return err
	}
	d.source = src
	if ps, ok := doc.(*ast.PolicySet); ok {
		d.algo = combine.Select(ps.Algorithm)
	} else {
		d.algo = combine.DenyOverrides
	}
	return nil
}

func (d *decisionScenario) thePolicySetCombinedWith(key, algoName string) error {
	if err := d.theDocumentFixture(key); err != nil {
		return err
	}
	algo, err := ast.ParseAlgorithm(algoName)
	if err != nil {
		return err
	}
	d.algo = combine.Select(algo)
	return nil
}

func (d *decisionScenario) thePolicyRule(key string) error {
	return d.theDocumentFixture(key)
}

func (d *decisionScenario) iSubscribeWithSubjectRoleActionResource(role, action, resource string) error {
	subject := value.FromObject(value.NewObject(value.P("role", value.Text(role))))
	return d.runSubscription(subject, value.Text(action), value.Text(resource))
}

func (d *decisionScenario) iSubscribeWithSubjectRoleActionResourceClassified(role, action, classification string) error {
	subject := value.FromObject(value.NewObject(value.P("role", value.Text(role))))
	resource := value.FromObject(value.NewObject(value.P("classification", value.Text(classification))))
	return d.runSubscription(subject, value.Text(action), resource)
}

func (d *decisionScenario) runSubscription(subject, action, resource value.Value) error {
	sub := evalctx.NewSubscription(subject, action, resource, value.Undefined())
	ctx := evalctx.Context{Subscription: sub}

	cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dispatcher := dispatch.NewDispatcher()
	got, ok := stream.First(cctx, dispatcher.Dispatch(ctx, d.source, d.algo))
	if !ok {
		return fmt.Errorf("no decision produced")
	}
	d.decision = got.Entitlement.String()
	return nil
}

func (d *decisionScenario) theDecisionShouldBe(want string) error {
	if d.decision != want {
		return fmt.Errorf("expected decision %q, got %q", want, d.decision)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	d := &decisionScenario{}
	ctx.Step(`^the policy set "([^"]*)" combined with "([^"]*)"$`, d.thePolicySetCombinedWith)
	ctx.Step(`^the policy rule "([^"]*)"$`, d.thePolicyRule)
	ctx.Step(`^I subscribe with subject role "([^"]*)" action "([^"]*)" resource "([^"]*)"$`, d.iSubscribeWithSubjectRoleActionResource)
	ctx.Step(`^I subscribe with subject role "([^"]*)" action "([^"]*)" resource classified "([^"]*)"$`, d.iSubscribeWithSubjectRoleActionResourceClassified)
	ctx.Step(`^the decision should be "([^"]*)"$`, d.theDecisionShouldBe)
}
