package attribute

import (
	"context"
	"testing"
	"time"

	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAttributeYieldsTerminalError(t *testing.T) {
	b := NewLiveBroker(DefaultDefaults())
	src := b.AttributeStream(Invocation{FullyQualifiedName: "unknown.attr"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := stream.Collect(ctx, src)
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.IsError())
}

func TestGracePeriodCacheSharing(t *testing.T) {
	b := NewLiveBroker(Defaults{GracePeriod: 200 * time.Millisecond, InitialTimeout: time.Second, BackoffBudget: 5})

	tick := make(chan value.Value)
	require.NoError(t, b.RegisterAttributeFinder(FinderSpecification{
		FullyQualifiedName:     "foo.bar",
		IsEnvironmentAttribute: true,
	}, func(inv Invocation, args []value.Value) stream.Source[value.Value] {
		return func(ctx context.Context) <-chan value.Value {
			out := make(chan value.Value)
			go func() {
				defer close(out)
				for {
					select {
					case v, ok := <-tick:
						if !ok {
							return
						}
						out <- v
					case <-ctx.Done():
						return
					}
				}
			}()
			return out
		}
	}))

	inv := Invocation{FullyQualifiedName: "foo.bar"}

	ctxA, cancelA := context.WithCancel(context.Background())
	chA, detachA := b.AttributeStream(inv)(ctxA), func() {}
	_ = detachA
	tick <- value.NumberFromInt64(1)
	first := <-chA
	assert.True(t, first.Value.Equal(value.NumberFromInt64(1)))
	cancelA()

	time.Sleep(20 * time.Millisecond) // well within grace period

	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()
	chB := b.AttributeStream(inv)(ctxB)
	replayed := <-chB
	assert.True(t, replayed.Value.Equal(value.NumberFromInt64(1)), "subscriber B must see the replayed latest value first")

	tick <- value.NumberFromInt64(2)
	second := <-chB
	assert.True(t, second.Value.Equal(value.NumberFromInt64(2)))

	close(tick)
}

func TestRemovingFinderTerminatesCachedStreams(t *testing.T) {
	b := NewLiveBroker(DefaultDefaults())
	require.NoError(t, b.RegisterAttributeFinder(FinderSpecification{
		FullyQualifiedName:     "sensor.temp",
		IsEnvironmentAttribute: true,
	}, func(inv Invocation, args []value.Value) stream.Source[value.Value] {
		return stream.Once(value.NumberFromInt64(42))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.AttributeStream(Invocation{FullyQualifiedName: "sensor.temp"})(ctx)
	first := <-ch
	require.False(t, first.Value.IsError())

	require.NoError(t, b.RemoveAttributeFinder("sensor.temp"))
	second, ok := <-ch
	require.True(t, ok)
	assert.True(t, second.Value.IsError())
}

func TestArityValidationRejectsWrongArgumentCount(t *testing.T) {
	b := NewLiveBroker(DefaultDefaults())
	require.NoError(t, b.RegisterAttributeFinder(FinderSpecification{
		FullyQualifiedName:     "math.square",
		IsEnvironmentAttribute: true,
		InnerArity:             1,
	}, func(inv Invocation, args []value.Value) stream.Source[value.Value] {
		return stream.Once(value.NumberFromInt64(0))
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := stream.Collect(ctx, b.AttributeStream(Invocation{
		FullyQualifiedName: "math.square",
		Arguments:          []value.Value{value.NumberFromInt64(1), value.NumberFromInt64(2)},
	}))
	require.Len(t, got, 1)
	assert.True(t, got[0].Value.IsError())
}
