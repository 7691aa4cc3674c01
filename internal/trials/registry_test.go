package trials

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/determined-ai/trialview/internal/api"
	"github.com/determined-ai/trialview/internal/config"
	"github.com/determined-ai/trialview/pkg/model"
)

const (
	waitFor = 2 * time.Second
	tick    = time.Millisecond
)

// fakeMaster serves trial details for the ids it knows and not-found for the rest.
type fakeMaster struct {
	mu     sync.Mutex
	trials map[int]*model.TrialDetails
	err    error
	calls  map[int]int
}

func newFakeMaster(ids ...int) *fakeMaster {
	m := &fakeMaster{trials: map[int]*model.TrialDetails{}, calls: map[int]int{}}
	for _, id := range ids {
		m.trials[id] = &model.TrialDetails{Trial: model.Trial{ID: id, State: model.ActiveState}}
	}
	return m
}

func (m *fakeMaster) fetch(ctx context.Context, p model.TrialDetailsParams) (*model.TrialDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[p.ID]++
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.trials[p.ID]
	if !ok {
		return nil, api.AsErrNotFound("trial %d", p.ID)
	}
	return t, nil
}

func (m *fakeMaster) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *fakeMaster) callsFor(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func newTestRegistry(
	t *testing.T, m *fakeMaster, capacity int, clock clockwork.Clock,
) *Registry {
	r, err := NewRegistry(
		context.Background(),
		m.fetch,
		config.PollingConfig{Interval: config.Duration(5 * time.Second)},
		config.WatchersConfig{
			Capacity:     capacity,
			IdleTimeout:  config.Duration(time.Minute),
			MaxRetries:   2,
			ErrorTimeout: config.Duration(time.Minute),
		},
		clock,
	)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestRegistryMountsOnceAndPolls(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newFakeMaster(7)
	r := newTestRegistry(t, m, 8, clock)

	w := r.Watch(7)
	require.Same(t, w, r.Watch(7))
	require.Equal(t, 1, r.Len())

	require.Eventually(t, func() bool { return w.State().HasLoaded }, waitFor, tick)
	require.Equal(t, 7, w.State().Data.ID)
	require.Equal(t, ViewLoaded, Resolve("7", w.State(), isNotFound).Kind)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return m.callsFor(7) == 2 }, waitFor, tick)
}

func TestRegistryWatcherReportsNotFound(t *testing.T) {
	r := newTestRegistry(t, newFakeMaster(), 8, clockwork.NewFakeClock())
	w := r.Watch(5)
	require.Eventually(t, func() bool { return w.State().HasLoaded }, waitFor, tick)
	v := Resolve("5", w.State(), isNotFound)
	require.Equal(t, ViewNotFound, v.Kind)
	require.Equal(t, "Trial 5 not found.", v.Message)
}

func TestRegistryEvictionUnmounts(t *testing.T) {
	r := newTestRegistry(t, newFakeMaster(1, 2), 1, clockwork.NewFakeClock())
	first := r.Watch(1)
	second := r.Watch(2)

	select {
	case <-first.Stopped():
	default:
		t.Fatal("evicted watcher still mounted")
	}
	select {
	case <-second.Stopped():
		t.Fatal("newest watcher unmounted")
	default:
	}
	require.Equal(t, 1, r.Len())
	require.NotSame(t, first, r.Watch(1), "an evicted trial is remounted on its next view")
}

func TestRegistryNeverEvictsHeldWatchers(t *testing.T) {
	r := newTestRegistry(t, newFakeMaster(1, 2, 3), 1, clockwork.NewFakeClock())

	streamed, release := r.Acquire(1)
	second := r.Watch(2)
	require.Equal(t, 2, r.Len(), "the cache grows while every watcher is held")
	select {
	case <-streamed.Stopped():
		t.Fatal("held watcher evicted")
	default:
	}

	third := r.Watch(3)
	<-second.Stopped()
	require.Equal(t, 2, r.Len())
	require.Same(t, streamed, r.Watch(1), "held watcher is not remounted")

	release()
	require.Equal(t, 1, r.Sweep(), "sweeping shrinks back to capacity")
	<-third.Stopped()
	require.Equal(t, 1, r.Len())
	select {
	case <-streamed.Stopped():
		t.Fatal("most recently viewed watcher unmounted")
	default:
	}
}

func TestRegistrySweepsIdleWatchers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newTestRegistry(t, newFakeMaster(1, 2, 3), 8, clock)
	idle := r.Watch(1)
	held := r.Watch(2)
	release := held.hold()

	clock.Advance(30 * time.Second)
	fresh := r.Watch(3)
	require.Equal(t, 0, r.Sweep())

	clock.Advance(45 * time.Second)
	require.Equal(t, 1, r.Sweep())
	<-idle.Stopped()
	require.Equal(t, 2, r.Len())

	release()
	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, r.Sweep())
	<-held.Stopped()
	<-fresh.Stopped()
	require.Equal(t, 0, r.Len())
}

func TestRegistryCloseUnmountsAll(t *testing.T) {
	r := newTestRegistry(t, newFakeMaster(1, 2), 8, clockwork.NewFakeClock())
	a, b := r.Watch(1), r.Watch(2)
	r.Close()
	<-a.Stopped()
	<-b.Stopped()
	require.Equal(t, 0, r.Len())
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	r := newTestRegistry(t, newFakeMaster(1), 8, clockwork.NewFakeClock())
	w := r.Watch(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- r.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)
	<-w.Stopped()
}

func TestWatcherRecoversAfterFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newFakeMaster(4)
	m.setError(api.AsErrUnavailable("master restarting"))
	r := newTestRegistry(t, m, 8, clock)

	w := r.Watch(4)
	require.Eventually(t, func() bool { return w.State().HasLoaded }, waitFor, tick)
	require.Equal(t, ViewFetchError, Resolve("4", w.State(), isNotFound).Kind)

	m.setError(nil)
	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		return Resolve("4", w.State(), isNotFound).Kind == ViewLoaded
	}, waitFor, tick)
}

func TestSweepInterval(t *testing.T) {
	require.Equal(t, time.Minute, sweepInterval(2*time.Minute))
	require.Equal(t, minSweepInterval, sweepInterval(time.Nanosecond))
	require.Equal(t, minSweepInterval, sweepInterval(0))
}
