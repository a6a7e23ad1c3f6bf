// Package prp defines the Policy Retrieval Point collaborator: given a
// subscription, it yields the live set of compiled policy documents that
// apply to it. The dispatcher re-subscribes to every contained document
// whenever a new MatchingDocuments snapshot arrives.
package prp

import (
	"context"
	"fmt"

	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/stream"
)

// CompiledPolicy is whatever compiler.CompileDocument produced: a
// *compiler.CompiledPolicyRule or a *compiler.CompiledPolicySet.
type CompiledPolicy = compiler.CompiledDocument

// MatchingDocuments is one retrieval snapshot: the policies currently
// matching a subscription, and the total number of documents the retrieval
// point holds (regardless of match), surfaced for observability.
type MatchingDocuments struct {
	Matches        []CompiledPolicy
	TotalDocuments int
}

// Source retrieves the live, changing set of policies applicable to a
// subscription. Implementations back this with whatever storage a
// deployment uses — a database, a Git repository, a config service — by
// satisfying this interface; the dispatcher never depends on a concrete
// backend.
type Source interface {
	RetrievePolicies(sub evalctx.Subscription) stream.Source[MatchingDocuments]
}

// Loader builds a Source from config.
type Loader func(ctx context.Context) (Source, error)

// Plugin names one registered PRP backend.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a PRP backend plugin. Call from an init func in the
// package implementing the backend.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns every registered PRP backend name.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named PRP backend.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown policy retrieval point %q; valid: %v", name, Names())
}
