package attribute

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoSnapshotStore is the in-process default SnapshotStore, backed by
// github.com/dgraph-io/ristretto/v2 rather than a hand-rolled map+mutex
// LRU. It is useful mainly in single-replica deployments or as a
// fast local tier in front of a rediscache.Store.
type RistrettoSnapshotStore struct {
	cache *ristretto.Cache[string, TracedValue]
}

// NewRistrettoSnapshotStore builds a bounded in-process snapshot cache.
func NewRistrettoSnapshotStore() (*RistrettoSnapshotStore, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, TracedValue]{
		NumCounters: 1e6,
		MaxCost:     1 << 26, // 64 MiB
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoSnapshotStore{cache: c}, nil
}

func (s *RistrettoSnapshotStore) Get(_ context.Context, fingerprint string) (TracedValue, bool, error) {
	v, ok := s.cache.Get(fingerprint)
	return v, ok, nil
}

func (s *RistrettoSnapshotStore) Set(_ context.Context, fingerprint string, v TracedValue, ttl time.Duration) error {
	s.cache.SetWithTTL(fingerprint, v, 1, ttl)
	return nil
}

// Close releases the cache's background workers.
func (s *RistrettoSnapshotStore) Close() { s.cache.Close() }
