// Package static is a file-backed, in-memory reference implementation of
// prp.Source: it compiles a fixed set of policy documents once at startup
// and serves the same MatchingDocuments snapshot to every subscription,
// the way a local test fixture or single-node demo deployment would. A
// real backend swaps in by implementing prp.Source and registering under
// its own name, without the dispatcher needing to know the difference.
package static

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/config"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/prp"
	"github.com/sapl-run/sapl-core/stream"
)

// Source serves one static snapshot of compiled documents.
type Source struct {
	snapshot prp.MatchingDocuments
}

// New compiles docs under env and returns a Source that always reports
// the full set as matching, regardless of subscription: filtering happens
// inside each document's own target expression, not at the retrieval
// layer.
func New(docs []ast.Document, env *compiler.Env) (*Source, error) {
	compiled := make([]prp.CompiledPolicy, len(docs))
	for i, d := range docs {
		c, err := compiler.CompileDocument(d, env)
		if err != nil {
			return nil, fmt.Errorf("static: compiling %s: %w", d.Location(), err)
		}
		compiled[i] = c
	}
	return &Source{snapshot: prp.MatchingDocuments{Matches: compiled, TotalDocuments: len(compiled)}}, nil
}

// LoadDir reads every "*.json" file in dir, decodes it as a policy document,
// compiles the set under env, and returns a Source over the result. Files
// are read in lexical order so a fixture directory's evaluation order is
// stable and reproducible across runs.
func LoadDir(dir string, env *compiler.Env) (*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("static: reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]ast.Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("static: reading %s: %w", path, err)
		}
		doc, err := decodeDocument(path, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return New(docs, env)
}

// RetrievePolicies implements prp.Source. The snapshot never changes over
// the Source's lifetime, so the stream emits once and stays open rather
// than closing — a subscriber has no reason to treat it as exhausted.
func (s *Source) RetrievePolicies(_ evalctx.Subscription) stream.Source[prp.MatchingDocuments] {
	snapshot := s.snapshot
	return func(cctx context.Context) <-chan prp.MatchingDocuments {
		out := make(chan prp.MatchingDocuments, 1)
		out <- snapshot
		go func() {
			<-cctx.Done()
			close(out)
		}()
		return out
	}
}

func init() {
	prp.Register(prp.Plugin{
		Name: "static",
		Loader: func(ctx context.Context) (prp.Source, error) {
			dir := os.Getenv("SAPL_STATIC_POLICY_DIR")
			if cfg := config.FromContext(ctx); cfg != nil && cfg.StaticPolicyDir != "" {
				dir = cfg.StaticPolicyDir
			}
			if dir == "" {
				dir = "policies"
			}
			return LoadDir(dir, defaultEnvFromContext(ctx))
		},
	})
}
