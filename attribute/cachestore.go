package attribute

import (
	"context"
	"time"
)

// SnapshotStore is an optional side channel for sharing the *latest* value
// of an attribute invocation across PDP replicas, distinct from the
// intra-process multicast Hub every LiveBroker already runs. A LiveBroker
// with no SnapshotStore configured works with purely in-process caching;
// configuring one lets a cold-started replica seed its first emission from
// a sibling's last-known value instead of waiting on the finder.
type SnapshotStore interface {
	Get(ctx context.Context, fingerprint string) (TracedValue, bool, error)
	Set(ctx context.Context, fingerprint string, v TracedValue, ttl time.Duration) error
}
