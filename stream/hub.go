package stream

import (
	"context"
	"sync"
	"time"
)

// Hub multicasts one upstream Source to any number of subscribers, replays
// the latest emission to a subscriber that joins after the first value has
// arrived, and keeps the upstream alive for gracePeriod after the last
// subscriber leaves. It is the broker's per-invocation AttributeStream made
// generic and reusable.
type Hub[T any] struct {
	mu          sync.Mutex
	upstream    Source[T]
	gracePeriod time.Duration
	onCleanup   func()

	started    bool
	cancelSrc  context.CancelFunc
	subs       map[int]chan T
	nextSubID  int
	refcount   int
	hasLatest  bool
	latest     T
	graceTimer *time.Timer
	cleaned    bool
}

// NewHub constructs a Hub over upstream. onCleanup fires exactly once, at
// the end of a grace period that elapses with zero subscribers attached.
func NewHub[T any](upstream Source[T], gracePeriod time.Duration, onCleanup func()) *Hub[T] {
	return &Hub[T]{
		upstream:    upstream,
		gracePeriod: gracePeriod,
		onCleanup:   onCleanup,
		subs:        make(map[int]chan T),
	}
}

// Subscribe attaches a new subscriber, replaying the latest cached
// emission first if one exists, then switching to live updates. The
// returned cancel function detaches the subscriber; it is safe to call
// more than once.
func (h *Hub[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	h.mu.Lock()
	id := h.nextSubID
	h.nextSubID++
	ch := make(chan T, 1)
	h.subs[id] = ch
	h.refcount++
	if h.graceTimer != nil {
		h.graceTimer.Stop()
		h.graceTimer = nil
	}
	if h.hasLatest {
		ch <- h.latest
	}
	if !h.started {
		h.started = true
		srcCtx, cancel := context.WithCancel(context.Background())
		h.cancelSrc = cancel
		go h.pump(srcCtx)
	}
	h.mu.Unlock()

	var once sync.Once
	detach := func() {
		once.Do(func() { h.detach(id) })
	}
	go func() {
		<-ctx.Done()
		detach()
	}()
	return ch, detach
}

func (h *Hub[T]) pump(ctx context.Context) {
	for v := range h.upstream(ctx) {
		h.mu.Lock()
		h.hasLatest = true
		h.latest = v
		for _, ch := range h.subs {
			select {
			case ch <- v:
			default:
				// slow subscriber: drop the stale buffered value, keep the newest.
				select {
				case <-ch:
				default:
				}
				ch <- v
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub[T]) detach(id int) {
	h.mu.Lock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
		h.refcount--
	}
	if h.refcount == 0 && !h.cleaned {
		h.graceTimer = time.AfterFunc(h.gracePeriod, h.expireGrace)
	}
	h.mu.Unlock()
}

func (h *Hub[T]) expireGrace() {
	h.mu.Lock()
	if h.refcount != 0 || h.cleaned {
		h.mu.Unlock()
		return
	}
	h.cleaned = true
	if h.cancelSrc != nil {
		h.cancelSrc()
	}
	cb := h.onCleanup
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// RefCount reports the current number of attached subscribers, for tests
// and diagnostics.
func (h *Hub[T]) RefCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refcount
}

// Seed preloads the replay-latest slot before any upstream emission has
// arrived, so the first subscriber gets an immediate value instead of
// waiting on a cold upstream. It is a no-op once an upstream emission has
// already landed.
func (h *Hub[T]) Seed(v T) {
	h.mu.Lock()
	if !h.hasLatest {
		h.hasLatest = true
		h.latest = v
	}
	h.mu.Unlock()
}

// Terminate immediately pushes v to every current subscriber, closes their
// channels, cancels the upstream, and fires onCleanup exactly once — used
// when an external event (e.g. the broker removing the finder serving this
// stream) must force a terminal emission ahead of the normal grace period.
func (h *Hub[T]) Terminate(v T) {
	h.mu.Lock()
	if h.cleaned {
		h.mu.Unlock()
		return
	}
	h.cleaned = true
	for id, ch := range h.subs {
		select {
		case ch <- v:
		default:
		}
		close(ch)
		delete(h.subs, id)
	}
	if h.graceTimer != nil {
		h.graceTimer.Stop()
	}
	if h.cancelSrc != nil {
		h.cancelSrc()
	}
	cb := h.onCleanup
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}
