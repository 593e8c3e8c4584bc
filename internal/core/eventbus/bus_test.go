package eventbus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_NilIsSafe(t *testing.T) {
	var bus *EventBus

	assert.NotPanics(t, func() {
		bus.PublishDiffAborted(DiffAbortedPayload{DiffID: "d1"})
		bus.SubscribeDiffAborted(func(DiffAbortedPayload) {})
		bus.Start(context.Background())
	})
}

func TestEventBus_DeliversInOrder(t *testing.T) {
	bus := New(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int, 3)
	bus.SubscribeDiffChunkApplied(func(p DiffChunkAppliedPayload) { got <- p.Chunk })
	go bus.Start(ctx)

	for i := 1; i <= 3; i++ {
		bus.PublishDiffChunkApplied(DiffChunkAppliedPayload{DiffID: "d1", Chunk: i})
	}

	for want := 1; want <= 3; want++ {
		select {
		case n := <-got:
			assert.Equal(t, want, n)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	var dropped atomic.Int32
	bus.OnDrop(func(Event, any) { dropped.Add(1) })

	// not started, so the second publish has nowhere to go
	bus.PublishDiffAborted(DiffAbortedPayload{DiffID: "a"})
	bus.PublishDiffAborted(DiffAbortedPayload{DiffID: "b"})

	assert.Equal(t, int32(1), dropped.Load())
}

func TestEventBus_RecoversSubscriberPanic(t *testing.T) {
	bus := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	panicked := make(chan any, 1)
	bus.OnPanic(func(_ Event, _ any, r any) { panicked <- r })
	bus.SubscribeDiffFailed(func(DiffFailedPayload) { panic("boom") })

	delivered := make(chan struct{}, 1)
	bus.SubscribeDiffFailed(func(DiffFailedPayload) { delivered <- struct{}{} })
	go bus.Start(ctx)

	bus.PublishDiffFailed(DiffFailedPayload{DiffID: "d1"})

	select {
	case r := <-panicked:
		require.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic hook not called")
	}
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("later subscriber not called")
	}
}
