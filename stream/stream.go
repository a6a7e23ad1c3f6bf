// Package stream implements a "lazy sequence of T, explicit subscribe and
// cancel" primitive: multicast, replay-latest-to-new-subscribers,
// cancellable streams composable with time operators, without pulling in a
// full reactive-streams framework. Built on goroutines and channels,
// composing background work with context.Context the same way.
package stream

import "context"

// Source is a lazy sequence of T: calling it starts production into the
// returned channel. The channel is closed when the sequence ends or ctx is
// canceled. Implementations must stop producing promptly after ctx is
// canceled.
type Source[T any] func(ctx context.Context) <-chan T

// Once returns a Source that emits v exactly once, then closes.
func Once[T any](v T) Source[T] {
	return func(ctx context.Context) <-chan T {
		out := make(chan T, 1)
		out <- v
		close(out)
		return out
	}
}

// Empty returns a Source that closes immediately without emitting.
func Empty[T any]() Source[T] {
	return func(ctx context.Context) <-chan T {
		out := make(chan T)
		close(out)
		return out
	}
}

// Map transforms every emission of src with f.
func Map[T, U any](src Source[T], f func(T) U) Source[U] {
	return func(ctx context.Context) <-chan U {
		in := src(ctx)
		out := make(chan U)
		go func() {
			defer close(out)
			for v := range in {
				select {
				case out <- f(v):
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// Filter drops emissions for which keep returns false.
func Filter[T any](src Source[T], keep func(T) bool) Source[T] {
	return func(ctx context.Context) <-chan T {
		in := src(ctx)
		out := make(chan T)
		go func() {
			defer close(out)
			for v := range in {
				if !keep(v) {
					continue
				}
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

// Merge fans in every emission from all sources in arrival order, closing
// the output once every source has closed. No ordering is guaranteed
// across distinct sources.
func Merge[T any](srcs ...Source[T]) Source[T] {
	return func(ctx context.Context) <-chan T {
		out := make(chan T)
		if len(srcs) == 0 {
			close(out)
			return out
		}
		remaining := len(srcs)
		done := make(chan struct{})
		for _, s := range srcs {
			s := s
			go func() {
				for v := range s(ctx) {
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				}
				done <- struct{}{}
			}()
		}
		go func() {
			for i := 0; i < remaining; i++ {
				select {
				case <-done:
				case <-ctx.Done():
					close(out)
					return
				}
			}
			close(out)
		}()
		return out
	}
}

// CombineLatest emits a snapshot of every input's latest value whenever any
// one of them emits, once all inputs have emitted at least once. This is
// how the evaluator composes multiple live attribute streams (and variable
// redefinitions) into re-evaluations of the smallest enclosing expression
// subtree.
func CombineLatest[T any](srcs ...Source[T]) Source[[]T] {
	return func(ctx context.Context) <-chan []T {
		out := make(chan []T)
		n := len(srcs)
		if n == 0 {
			close(out)
			return out
		}
		latest := make([]T, n)
		have := make([]bool, n)
		haveAll := false
		mu := make(chan struct{}, 1)
		mu <- struct{}{}

		type upd struct {
			idx int
			val T
		}
		updates := make(chan upd)
		for i, s := range srcs {
			i, s := i, s
			go func() {
				for v := range s(ctx) {
					select {
					case updates <- upd{i, v}:
					case <-ctx.Done():
						return
					}
				}
			}()
		}
		go func() {
			defer close(out)
			for {
				select {
				case u := <-updates:
					<-mu
					latest[u.idx] = u.val
					have[u.idx] = true
					if !haveAll {
						haveAll = true
						for _, h := range have {
							if !h {
								haveAll = false
								break
							}
						}
					}
					snapshot := append([]T(nil), latest...)
					ready := haveAll
					mu <- struct{}{}
					if ready {
						select {
						case out <- snapshot:
						case <-ctx.Done():
							return
						}
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// Distinct drops an emission if it equals (per eq) the immediately
// preceding emission, implementing the dedup layer that keeps two
// consecutive emitted aggregate decisions from ever being structurally
// equal.
func Distinct[T any](src Source[T], eq func(a, b T) bool) Source[T] {
	return func(ctx context.Context) <-chan T {
		in := src(ctx)
		out := make(chan T)
		go func() {
			defer close(out)
			var prev T
			has := false
			for v := range in {
				if has && eq(prev, v) {
					continue
				}
				prev, has = v, true
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

// Collect drains src to completion, for use in tests.
func Collect[T any](ctx context.Context, src Source[T]) []T {
	var out []T
	for v := range src(ctx) {
		out = append(out, v)
	}
	return out
}

// First returns the first emission of src, or ok=false if it closes first.
func First[T any](ctx context.Context, src Source[T]) (T, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	v, ok := <-src(ctx)
	return v, ok
}
