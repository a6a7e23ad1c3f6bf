// Package config holds process-wide configuration, threaded through
// context.Context rather than passed as an explicit parameter to every
// constructor, so a deeply nested collaborator (a PRP backend, a cache
// store) can reach it without widening its own signature.
package config

import (
	"context"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying cfg.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from ctx, or nil if none was set.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all process configuration for a PDP instance.
type Config struct {
	// PdpID and a configuration identifier are attached to every log line
	// built by internal/logging; metrics do not carry them.
	PdpID           string
	ConfigurationID string

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string

	// PolicyRetrievalPoint names a registered prp backend ("static" or a
	// deployment-specific name registered by another package's init).
	// cmd/pdpctl does not read it and always selects "static".
	PolicyRetrievalPoint string
	StaticPolicyDir      string

	// TopLevelAlgorithm combines the decisions of every document a
	// MatchingDocuments snapshot returns, by canonical algorithm name (see
	// ast.ParseAlgorithm).
	TopLevelAlgorithm string

	// Attribute broker tuning defaults, applied when an Invocation leaves a
	// timing field at its zero value.
	AttributeGracePeriod    time.Duration
	AttributeInitialTimeout time.Duration
	AttributeBackoffBudget  int

	// AttributeCacheBackend selects the snapshot store layered under the
	// broker's in-process hub cache: "none" or "redis".
	AttributeCacheBackend string
	RedisURL              string

	// RegoFinderPolicyDir points the rego attribute finder at the bundle of
	// .rego files it evaluates, when that finder is registered.
	RegoFinderPolicyDir string

	// MetricsLabels is a comma-separated list of key=value pairs. No package
	// reads it: the metrics package registers its metrics without constant
	// labels.
	MetricsLabels string

	// ListenPort is the demo server's HTTP listen port (cmd/pdpctl
	// serve-demo).
	ListenPort int
}

// DefaultConfig returns a Config with conservative defaults suitable for
// local development and tests.
func DefaultConfig() Config {
	return Config{
		PdpID:                   "local-pdp",
		ConfigurationID:         "default",
		LogLevel:                "info",
		PolicyRetrievalPoint:    "static",
		StaticPolicyDir:         "policies",
		AttributeGracePeriod:    2 * time.Second,
		AttributeInitialTimeout: 10 * time.Second,
		AttributeBackoffBudget:  5,
		AttributeCacheBackend:   "none",
		MetricsLabels:           "service=sapl-pdp",
		ListenPort:              8080,
	}
}
