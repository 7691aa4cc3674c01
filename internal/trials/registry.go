package trials

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/trialview/internal/config"
	"github.com/determined-ai/trialview/internal/prom"
	errInfo "github.com/determined-ai/trialview/pkg/errors"
)

const minSweepInterval = 500 * time.Millisecond

// Registry mounts one watcher per trial being viewed. Watchers are mounted on first view and
// unmounted when evicted from the bounded cache, when idle past the idle timeout, or on Close.
// Held watchers are never evicted: when every watcher is held the cache grows past its capacity,
// and it shrinks back on the next sweep once holds are released.
type Registry struct {
	log      *log.Entry
	ctx      context.Context
	fetch    FetchFunc
	interval time.Duration
	cfg      config.WatchersConfig
	clock    clockwork.Clock

	mu       sync.Mutex
	watchers *lru.Cache[int, *Watcher]
	size     int
	// evicted collects watchers dropped by the cache while mu is held; they are unmounted after
	// mu is released so a slow in-flight fetch never blocks other views.
	evicted []*Watcher
}

// NewRegistry returns an empty registry. Watchers poll until ctx is canceled or they are
// unmounted.
func NewRegistry(
	ctx context.Context,
	fetch FetchFunc,
	polling config.PollingConfig,
	cfg config.WatchersConfig,
	clock clockwork.Clock,
) (*Registry, error) {
	r := &Registry{
		log:      log.WithField("component", "trial-registry"),
		ctx:      ctx,
		fetch:    fetch,
		interval: polling.Interval.D(),
		cfg:      cfg,
		clock:    clock,
		size:     cfg.Capacity,
	}
	cache, err := lru.NewWithEvict(cfg.Capacity, func(_ int, w *Watcher) {
		r.evicted = append(r.evicted, w)
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating trial watcher cache")
	}
	r.watchers = cache
	return r, nil
}

// Watch returns the watcher of the trial, mounting one if the trial is not being watched yet.
func (r *Registry) Watch(id int) *Watcher {
	w, release := r.watch(id, false)
	release()
	return w
}

// Acquire is Watch, but the watcher is also held until release is called. A held watcher is
// neither swept nor evicted.
func (r *Registry) Acquire(id int) (w *Watcher, release func()) {
	return r.watch(id, true)
}

func (r *Registry) watch(id int, hold bool) (*Watcher, func()) {
	r.mu.Lock()
	w, ok := r.watchers.Get(id)
	if !ok {
		r.makeRoomLocked()
		w = newWatcher(
			id, r.fetch, r.interval,
			errInfo.NewStickyErrorWithClock(r.cfg.ErrorTimeout.D(), r.cfg.MaxRetries, r.clock),
			r.clock,
		)
		w.mount(r.ctx)
		r.watchers.Add(id, w)
	}
	w.touch()
	release := func() {}
	if hold {
		release = w.hold()
	}
	evicted := r.takeEvictedLocked()
	prom.MountedWatchers.Set(float64(r.watchers.Len()))
	r.mu.Unlock()

	r.unmount(evicted)
	return w, release
}

// makeRoomLocked frees a slot for a new watcher by removing the least recently viewed watcher
// that is not held. If every watcher is held the cache grows by one instead.
func (r *Registry) makeRoomLocked() {
	if r.watchers.Len() < r.size {
		return
	}
	if r.removeOldestUnheldLocked() {
		return
	}
	r.size++
	r.watchers.Resize(r.size)
	r.log.WithField("size", r.size).Warn("every trial watcher is in use, growing past capacity")
}

func (r *Registry) removeOldestUnheldLocked() bool {
	for _, id := range r.watchers.Keys() {
		if w, ok := r.watchers.Peek(id); ok && !w.isHeld() {
			r.watchers.Remove(id)
			return true
		}
	}
	return false
}

// shrinkLocked returns the cache toward its configured capacity, removing unheld watchers
// beyond it.
func (r *Registry) shrinkLocked() {
	for r.watchers.Len() > r.cfg.Capacity {
		if !r.removeOldestUnheldLocked() {
			break
		}
	}
	if size := max(r.cfg.Capacity, r.watchers.Len()); size != r.size {
		r.size = size
		r.watchers.Resize(size)
	}
}

// Len returns the number of mounted watchers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watchers.Len()
}

// Sweep unmounts watchers that nobody has viewed for longer than the idle timeout and returns
// how many were unmounted.
func (r *Registry) Sweep() int {
	now := r.clock.Now()
	idle := r.cfg.IdleTimeout.D()

	r.mu.Lock()
	for _, id := range r.watchers.Keys() {
		if w, ok := r.watchers.Peek(id); ok && w.idleSince(now) > idle {
			r.watchers.Remove(id)
		}
	}
	r.shrinkLocked()
	evicted := r.takeEvictedLocked()
	prom.MountedWatchers.Set(float64(r.watchers.Len()))
	r.mu.Unlock()

	r.unmount(evicted)
	if len(evicted) > 0 {
		r.log.Debugf("unmounted %d idle trial watchers", len(evicted))
	}
	return len(evicted)
}

// Run sweeps idle watchers periodically until ctx is canceled, then unmounts every watcher.
func (r *Registry) Run(ctx context.Context) error {
	defer r.Close()

	ticker := r.clock.NewTicker(sweepInterval(r.cfg.IdleTimeout.D()))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			r.Sweep()
		}
	}
}

// sweepInterval is half the idle timeout, but never shorter than minSweepInterval.
func sweepInterval(idleTimeout time.Duration) time.Duration {
	return max(idleTimeout/2, minSweepInterval)
}

// Close unmounts every watcher.
func (r *Registry) Close() {
	r.mu.Lock()
	r.watchers.Purge()
	evicted := r.takeEvictedLocked()
	prom.MountedWatchers.Set(0)
	r.mu.Unlock()

	r.unmount(evicted)
}

func (r *Registry) takeEvictedLocked() []*Watcher {
	evicted := r.evicted
	r.evicted = nil
	return evicted
}

func (r *Registry) unmount(ws []*Watcher) {
	for _, w := range ws {
		w.unmount()
	}
}
