package attribute

import (
	"context"
	"time"

	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// withInitialTimeout emits a terminal Error and closes if src produces
// nothing within d of being subscribed. d<=0 disables the timeout.
func withInitialTimeout(src stream.Source[value.Value], d time.Duration) stream.Source[value.Value] {
	if d <= 0 {
		return src
	}
	return func(ctx context.Context) <-chan value.Value {
		in := src(ctx)
		out := make(chan value.Value)
		go func() {
			defer close(out)
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			case <-timer.C:
				select {
				case out <- value.Errorf("attribute finder produced no value within initial timeout"):
				case <-ctx.Done():
				}
				return
			case <-ctx.Done():
				return
			}
			for v := range in {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// withFreshnessTTL re-emits the previous value as a liveness pulse whenever
// ttl elapses with no new upstream emission. ttl<=0 disables pulsing.
func withFreshnessTTL(src stream.Source[value.Value], ttl time.Duration) stream.Source[value.Value] {
	if ttl <= 0 {
		return src
	}
	return func(ctx context.Context) <-chan value.Value {
		in := src(ctx)
		out := make(chan value.Value)
		go func() {
			defer close(out)
			var last value.Value
			have := false
			timer := time.NewTimer(ttl)
			defer timer.Stop()
			for {
				select {
				case v, ok := <-in:
					if !ok {
						return
					}
					last, have = v, true
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(ttl)
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				case <-timer.C:
					if have {
						timer.Reset(ttl)
						select {
						case out <- last:
						case <-ctx.Done():
							return
						}
					} else {
						timer.Reset(ttl)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// withPolling re-invokes invoke every interval, taking only its first
// emission each time, for finders that are one-shot lookups rather than
// true push streams. interval<=0 disables polling (invoke is used as-is).
func withPolling(invoke func(ctx context.Context) stream.Source[value.Value], interval time.Duration) stream.Source[value.Value] {
	if interval <= 0 {
		return invoke(context.Background())
	}
	return func(ctx context.Context) <-chan value.Value {
		out := make(chan value.Value)
		go func() {
			defer close(out)
			for {
				v, ok := stream.First(ctx, invoke(ctx))
				if ok {
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				}
				select {
				case <-time.After(interval):
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// withBackoff terminates the stream with a final Error once budget
// sequential upstream Errors have been observed without an intervening
// non-Error value. budget<=0 disables the limit.
func withBackoff(src stream.Source[value.Value], budget int) stream.Source[value.Value] {
	if budget <= 0 {
		return src
	}
	return func(ctx context.Context) <-chan value.Value {
		in := src(ctx)
		out := make(chan value.Value)
		go func() {
			defer close(out)
			consecutive := 0
			for v := range in {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
				if v.IsError() {
					consecutive++
					if consecutive >= budget {
						select {
						case out <- value.Errorf("attribute finder exceeded backoff budget of %d sequential errors", budget):
						case <-ctx.Done():
						}
						return
					}
				} else {
					consecutive = 0
				}
			}
		}()
		return out
	}
}
