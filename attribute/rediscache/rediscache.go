// Package rediscache implements attribute.SnapshotStore on top of
// github.com/redis/go-redis/v9, so a fleet of PDP replicas can share the
// latest value of any attribute invocation.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sapl-run/sapl-core/attribute"
	"github.com/sapl-run/sapl-core/value"
)

// Store implements attribute.SnapshotStore over a Redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps an existing *redis.Client. prefix namespaces every key this
// store touches, e.g. "sapl:attr:".
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

type wireTrace struct {
	Value any      `json:"value"`
	Trace []string `json:"trace,omitempty"`
}

func (s *Store) Get(ctx context.Context, fingerprint string) (attribute.TracedValue, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+fingerprint).Bytes()
	if err == redis.Nil {
		return attribute.TracedValue{}, false, nil
	}
	if err != nil {
		return attribute.TracedValue{}, false, err
	}
	var w wireTrace
	if err := json.Unmarshal(raw, &w); err != nil {
		return attribute.TracedValue{}, false, err
	}
	return attribute.TracedValue{Value: value.FromJSON(w.Value)}, true, nil
}

func (s *Store) Set(ctx context.Context, fingerprint string, v attribute.TracedValue, ttl time.Duration) error {
	w := wireTrace{Value: v.Value.ToJsonForValidation()}
	for _, t := range v.Trace {
		w.Trace = append(w.Trace, t.Description)
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+fingerprint, raw, ttl).Err()
}
