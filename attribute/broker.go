package attribute

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sapl-run/sapl-core/metrics"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// Broker is the external interface consumed by compiled StreamOperators.
// ProvidedFunctionsOfLibrary/IsProvidedFunction reuse function-broker naming
// even though, for the attribute broker, "function" means "registered
// attribute" — SAPL historically treats a finder lookup like a library call.
type Broker interface {
	AttributeStream(inv Invocation) stream.Source[TracedValue]
	RegisterAttributeFinder(spec FinderSpecification, finder Finder) error
	RemoveAttributeFinder(fullyQualifiedName string) error
	ProvidedFunctionsOfLibrary(library string) []string
	IsProvidedFunction(fullyQualifiedName string) bool
}

// Defaults bundles the broker-wide fallbacks applied when an Invocation
// leaves a timing field at its zero value.
type Defaults struct {
	GracePeriod    time.Duration
	InitialTimeout time.Duration
	BackoffBudget  int
}

// DefaultDefaults returns conservative broker-wide fallbacks.
func DefaultDefaults() Defaults {
	return Defaults{
		GracePeriod:    2 * time.Second,
		InitialTimeout: 10 * time.Second,
		BackoffBudget:  5,
	}
}

type registration struct {
	spec   FinderSpecification
	finder Finder
}

type cacheEntry struct {
	hub  *stream.Hub[TracedValue]
	name string
}

// LiveBroker caches AttributeStreams keyed by invocation fingerprint, shares
// one live upstream across concurrent subscribers, and tears upstreams down
// a grace period after the last subscriber leaves.
type LiveBroker struct {
	mu        sync.Mutex
	finders   map[string]registration
	cache     map[string]*cacheEntry
	defaults  Defaults
	snapshots SnapshotStore
}

// NewLiveBroker constructs an empty LiveBroker with no cross-replica
// snapshot sharing.
func NewLiveBroker(defaults Defaults) *LiveBroker {
	return &LiveBroker{
		finders:  make(map[string]registration),
		cache:    make(map[string]*cacheEntry),
		defaults: defaults,
	}
}

// NewLiveBrokerWithSnapshots is like NewLiveBroker but seeds newly created
// streams from snapshots and publishes every emission back to it, so a
// freshly started replica can serve a replayed value immediately instead of
// waiting on a cold finder invocation.
func NewLiveBrokerWithSnapshots(defaults Defaults, snapshots SnapshotStore) *LiveBroker {
	b := NewLiveBroker(defaults)
	b.snapshots = snapshots
	return b
}

// RegisterAttributeFinder validates and adds a finder, invalidating any
// cached stream under the same name so it is rebuilt against the new
// finder on next subscribe.
func (b *LiveBroker) RegisterAttributeFinder(spec FinderSpecification, finder Finder) error {
	if spec.FullyQualifiedName == "" {
		return errInvalidSpec("attribute finder must declare a fully qualified name")
	}
	if finder == nil {
		return errInvalidSpec("attribute finder function must not be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finders[spec.FullyQualifiedName] = registration{spec: spec, finder: finder}
	for fp, entry := range b.cache {
		if entry.name == spec.FullyQualifiedName {
			delete(b.cache, fp)
		}
	}
	metrics.AttributeFindersRegistered.Inc()
	log.Info("attribute finder registered", "name", spec.FullyQualifiedName, "environment", spec.IsEnvironmentAttribute)
	return nil
}

// RemoveAttributeFinder unregisters a finder. Any cached AttributeStream
// currently served by it receives a terminal Error.
func (b *LiveBroker) RemoveAttributeFinder(fullyQualifiedName string) error {
	b.mu.Lock()
	delete(b.finders, fullyQualifiedName)
	var affected []*cacheEntry
	for fp, entry := range b.cache {
		if entry.name == fullyQualifiedName {
			affected = append(affected, entry)
			delete(b.cache, fp)
		}
	}
	b.mu.Unlock()

	terminal := traced(value.Errorf("attribute no longer available: %s", fullyQualifiedName))
	for _, entry := range affected {
		entry.hub.Terminate(terminal)
	}
	log.Info("attribute finder removed", "name", fullyQualifiedName, "streamsTerminated", len(affected))
	return nil
}

// ProvidedFunctionsOfLibrary returns the simple names of every attribute
// registered under the given library ("company.department" -> "findings").
func (b *LiveBroker) ProvidedFunctionsOfLibrary(library string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	prefix := library + "."
	for name := range b.finders {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			names = append(names, name[len(prefix):])
		}
	}
	return names
}

// IsProvidedFunction reports whether fullyQualifiedName is registered.
func (b *LiveBroker) IsProvidedFunction(fullyQualifiedName string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.finders[fullyQualifiedName]
	return ok
}

// AttributeStream looks up or creates the cached, shared stream for inv. A
// cache hit is returned as is; on a miss, finder existence, entity and arity
// are validated before a new cache entry is created.
func (b *LiveBroker) AttributeStream(inv Invocation) stream.Source[TracedValue] {
	fp := inv.Fingerprint()

	b.mu.Lock()
	if entry, ok := b.cache[fp]; ok {
		b.mu.Unlock()
		return func(ctx context.Context) <-chan TracedValue {
			ch, _ := entry.hub.Subscribe(ctx)
			return ch
		}
	}

	reg, known := b.finders[inv.FullyQualifiedName]
	if !known {
		b.mu.Unlock()
		metrics.AttributeCacheMisses.Inc()
		return stream.Once(TracedValue{Value: value.Errorf("unknown attribute %s", inv.FullyQualifiedName)})
	}

	if err := reg.spec.validateEntity(inv.Entity); err != nil {
		b.mu.Unlock()
		return stream.Once(TracedValue{Value: value.Errorf("attribute %s: %v", inv.FullyQualifiedName, err)})
	}
	if err := reg.spec.validateArguments(inv.Arguments); err != nil {
		b.mu.Unlock()
		return stream.Once(TracedValue{Value: value.Errorf("attribute %s: %v", inv.FullyQualifiedName, err)})
	}

	args := BuildArguments(reg.spec, inv)
	finder := reg.finder
	initialTimeout := inv.InitialTimeout
	if initialTimeout <= 0 {
		initialTimeout = b.defaults.InitialTimeout
	}
	backoffBudget := inv.BackoffBudget
	if backoffBudget <= 0 {
		backoffBudget = b.defaults.BackoffBudget
	}

	rawFactory := func(ctx context.Context) stream.Source[value.Value] {
		return finder(inv, args)
	}
	decorated := withPolling(rawFactory, inv.PollInterval)
	decorated = withBackoff(decorated, backoffBudget)
	decorated = withFreshnessTTL(decorated, inv.FreshnessTTL)
	decorated = withInitialTimeout(decorated, initialTimeout)

	tracedSrc := stream.Map(decorated, func(v value.Value) TracedValue {
		return traced(v, "finder:"+inv.FullyQualifiedName)
	})

	if b.snapshots != nil {
		tracedSrc = publishToSnapshots(tracedSrc, b.snapshots, fp)
	}

	gracePeriod := b.defaults.GracePeriod
	entry := &cacheEntry{name: inv.FullyQualifiedName}
	entry.hub = stream.NewHub(tracedSrc, gracePeriod, func() {
		b.mu.Lock()
		if b.cache[fp] == entry {
			delete(b.cache, fp)
		}
		b.mu.Unlock()
		metrics.AttributeStreamsTornDown.Inc()
	})
	if b.snapshots != nil {
		if v, ok, err := b.snapshots.Get(context.Background(), fp); err == nil && ok {
			entry.hub.Seed(v)
		}
	}
	b.cache[fp] = entry
	b.mu.Unlock()

	metrics.AttributeCacheMisses.Inc()
	return func(ctx context.Context) <-chan TracedValue {
		ch, _ := entry.hub.Subscribe(ctx)
		return ch
	}
}

func publishToSnapshots(src stream.Source[TracedValue], store SnapshotStore, fingerprint string) stream.Source[TracedValue] {
	return stream.Map(src, func(v TracedValue) TracedValue {
		_ = store.Set(context.Background(), fingerprint, v, 5*time.Minute)
		return v
	})
}

type invalidSpecError string

func (e invalidSpecError) Error() string { return string(e) }

func errInvalidSpec(msg string) error { return invalidSpecError(msg) }
