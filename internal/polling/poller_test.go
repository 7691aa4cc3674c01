package polling

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const (
	interval = 5 * time.Second
	waitFor  = time.Second
	tick     = time.Millisecond
)

func TestPollerCallsOnStartAndEachTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int64
	p := New("test", func(ctx context.Context) { calls.Add(1) }, interval, clock)

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	for i := int64(2); i <= 4; i++ {
		clock.BlockUntil(1)
		clock.Advance(interval)
		want := i
		require.Eventually(t, func() bool { return calls.Load() == want }, waitFor, tick)
	}
}

func TestPollerSkipsOverlappingTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int64
	release := make(chan struct{})
	p := New("test", func(ctx context.Context) {
		if calls.Add(1) == 1 {
			<-release
		}
	}, interval, clock)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	clock.BlockUntil(1)
	clock.Advance(interval)
	require.Eventually(t, func() bool { return p.Skipped() == 1 }, waitFor, tick)
	require.Equal(t, int64(1), calls.Load())

	close(release)
	require.Eventually(t, func() bool { return !p.running.Load() }, waitFor, tick)
	clock.BlockUntil(1)
	clock.Advance(interval)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
	p.Stop()
}

func TestPollerStopIsIdempotentAndCancelsCalls(t *testing.T) {
	clock := clockwork.NewFakeClock()
	canceled := make(chan struct{})
	p := New("test", func(ctx context.Context) {
		<-ctx.Done()
		close(canceled)
	}, interval, clock)

	p.Stop()
	p.Start(context.Background())
	p.Start(context.Background())
	p.Stop()
	select {
	case <-canceled:
	default:
		t.Fatal("Stop returned before the in-flight call observed cancellation")
	}
	p.Stop()
}

func TestPollerStopsWithParentContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int64
	p := New("test", func(ctx context.Context) { calls.Add(1) }, interval, clock)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	cancel()
	p.Stop()

	clock.Advance(10 * interval)
	require.Equal(t, int64(1), calls.Load())
}
