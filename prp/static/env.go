package static

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/attribute/finder"
	"github.com/sapl-run/sapl-core/attribute/rediscache"
	"github.com/sapl-run/sapl-core/compiler"
	"github.com/sapl-run/sapl-core/config"
	"github.com/sapl-run/sapl-core/function"
	"github.com/sapl-run/sapl-core/schema"
)

// defaultEnvFromContext builds the compiler.Env this backend compiles its
// fixture documents under, reading attribute broker tuning, the snapshot
// cache backend, and any Rego-backed attribute finders from the ambient
// config.Config if one was threaded onto ctx, and falling back to
// config.DefaultConfig otherwise.
func defaultEnvFromContext(ctx context.Context) *compiler.Env {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		dc := config.DefaultConfig()
		cfg = &dc
	}
	defaults := attribute.DefaultDefaults()
	if cfg.AttributeGracePeriod > 0 {
		defaults.GracePeriod = cfg.AttributeGracePeriod
	}
	if cfg.AttributeInitialTimeout > 0 {
		defaults.InitialTimeout = cfg.AttributeInitialTimeout
	}
	if cfg.AttributeBackoffBudget > 0 {
		defaults.BackoffBudget = cfg.AttributeBackoffBudget
	}

	broker := newAttributeBroker(cfg, defaults)
	if cfg.RegoFinderPolicyDir != "" {
		if err := registerRegoFinders(broker, cfg.RegoFinderPolicyDir); err != nil {
			broker = attribute.NewLiveBroker(defaults)
		}
	}

	return &compiler.Env{
		Imports:    map[string]string{},
		Functions:  function.NewBuiltinRegistry(),
		Attributes: broker,
		Schemas:    schema.NewRegistry(),
	}
}

// newAttributeBroker layers a cross-replica snapshot store under the
// broker's in-process cache when cfg selects one.
func newAttributeBroker(cfg *config.Config, defaults attribute.Defaults) *attribute.LiveBroker {
	switch cfg.AttributeCacheBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return attribute.NewLiveBroker(defaults)
		}
		client := redis.NewClient(opts)
		store := rediscache.New(client, "sapl:attr:")
		return attribute.NewLiveBrokerWithSnapshots(defaults, store)
	default:
		return attribute.NewLiveBroker(defaults)
	}
}

// registerRegoFinders registers one attribute finder per "*.rego" file in
// dir: the file's base name (without extension) becomes the attribute's
// fully qualified name, and every bundle is expected to expose its result
// at the fixed query "data.attribute.result", so a deployment adds a new
// Rego-backed attribute by dropping in a file rather than editing Go code.
func registerRegoFinders(broker attribute.Broker, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("static: reading rego finder dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".rego" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("static: reading %s: %w", path, err)
		}
		name := strings.TrimSuffix(e.Name(), ".rego")
		f, err := finder.NewRegoFinder(string(src), "data.attribute.result")
		if err != nil {
			return fmt.Errorf("static: compiling %s: %w", path, err)
		}
		spec := attribute.FinderSpecification{
			FullyQualifiedName: name,
			InnerArity:         attribute.Variadic,
		}
		if err := broker.RegisterAttributeFinder(spec, f); err != nil {
			return fmt.Errorf("static: registering %s: %w", name, err)
		}
	}
	return nil
}
