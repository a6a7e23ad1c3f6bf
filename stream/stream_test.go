package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistinctDropsConsecutiveDuplicates(t *testing.T) {
	src := func(ctx context.Context) <-chan int {
		out := make(chan int)
		go func() {
			defer close(out)
			for _, v := range []int{1, 1, 2, 2, 2, 3, 1} {
				out <- v
			}
		}()
		return out
	}
	got := Collect(context.Background(), Distinct(Source[int](src), func(a, b int) bool { return a == b }))
	assert.Equal(t, []int{1, 2, 3, 1}, got)
}

func TestHubReplaysLatestToNewSubscriber(t *testing.T) {
	emit := make(chan int, 8)
	upstream := func(ctx context.Context) <-chan int {
		out := make(chan int)
		go func() {
			defer close(out)
			for {
				select {
				case v, ok := <-emit:
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

	cleaned := make(chan struct{}, 1)
	h := NewHub(Source[int](upstream), 50*time.Millisecond, func() { cleaned <- struct{}{} })

	ctxA, cancelA := context.WithCancel(context.Background())
	chA, detachA := h.Subscribe(ctxA)
	_ = chA
	emit <- 1
	require.Equal(t, 1, <-chA)
	detachA()
	cancelA()

	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()
	chB, detachB := h.Subscribe(ctxB)
	require.Equal(t, 1, <-chB, "new subscriber must see the replayed latest value first")

	emit <- 2
	require.Equal(t, 2, <-chB)

	detachB()
	close(emit)

	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("cleanup callback never fired after grace period")
	}
}

func TestHubGracePeriodCancelsOnResubscribe(t *testing.T) {
	upstream := func(ctx context.Context) <-chan int {
		out := make(chan int, 1)
		out <- 7
		return out
	}
	cleanups := 0
	h := NewHub(Source[int](upstream), 100*time.Millisecond, func() { cleanups++ })

	ctx1, cancel1 := context.WithCancel(context.Background())
	ch1, detach1 := h.Subscribe(ctx1)
	<-ch1
	detach1()
	cancel1()

	time.Sleep(20 * time.Millisecond) // well within the grace window

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	ch2, detach2 := h.Subscribe(ctx2)
	v := <-ch2
	assert.Equal(t, 7, v)
	detach2()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, cleanups, "cleanup must fire exactly once, after the second unsubscribe's own grace period")
}
