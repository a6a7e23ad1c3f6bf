package static

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/config"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/function"
	"github.com/sapl-run/sapl-core/prp"
	"github.com/sapl-run/sapl-core/schema"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv() *compiler.Env {
	return &compiler.Env{
		Imports:    map[string]string{},
		Functions:  function.NewBuiltinRegistry(),
		Attributes: attribute.NewLiveBroker(attribute.DefaultDefaults()),
		Schemas:    schema.NewRegistry(),
	}
}

const ruleDocJSON = `{
	"kind": "policyRule",
	"name": "allow reads",
	"entitlement": "permit",
	"target": {
		"type": "binary",
		"op": "==",
		"left": {"type": "subscriptionElement", "element": "action"},
		"right": {"type": "literal", "value": "read"}
	}
}`

func TestDecodeDocumentPolicyRule(t *testing.T) {
	doc, err := decodeDocument("rule.json", []byte(ruleDocJSON))
	require.NoError(t, err)
	rule, ok := doc.(*ast.PolicyRule)
	require.True(t, ok)
	assert.Equal(t, "allow reads", rule.Name)
	assert.Equal(t, ast.Permit, rule.Entitlement)
}

func TestLoadDirCompilesAndServesSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "allow.json"), []byte(ruleDocJSON), 0o644))

	src, err := LoadDir(dir, testEnv())
	require.NoError(t, err)

	sub := evalctx.NewSubscription(value.Text("alice"), value.Text("read"), value.Text("doc1"), value.Undefined())
	cctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	got := stream.Collect(cctx, src.RetrievePolicies(sub))
	require.Len(t, got, 1)
	assert.Len(t, got[0].Matches, 1)
	assert.Equal(t, 1, got[0].TotalDocuments)
}

func TestDefaultEnvFromContextFallsBackWithoutConfig(t *testing.T) {
	env := defaultEnvFromContext(context.Background())
	require.NotNil(t, env)
	require.NotNil(t, env.Functions)
	require.NotNil(t, env.Attributes)
	require.NotNil(t, env.Schemas)
}

func TestDefaultEnvFromContextUsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AttributeInitialTimeout = 30 * time.Second
	ctx := config.WithContext(context.Background(), &cfg)

	env := defaultEnvFromContext(ctx)
	require.NotNil(t, env)
}

func TestStaticBackendIsRegistered(t *testing.T) {
	_, err := prp.Select("static")
	require.NoError(t, err)
}
