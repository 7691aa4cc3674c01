package trials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/trialview/internal/polling"
	"github.com/determined-ai/trialview/internal/rest"
	errInfo "github.com/determined-ai/trialview/pkg/errors"
	"github.com/determined-ai/trialview/pkg/model"
)

// FetchFunc fetches the details of one trial.
type FetchFunc = rest.FetchFunc[model.TrialDetailsParams, model.TrialDetails]

// TrialState is the fetch state of one trial.
type TrialState = rest.State[model.TrialDetailsParams, model.TrialDetails]

// Watcher keeps the details of one trial fresh by refetching them on every polling tick while
// it is mounted.
type Watcher struct {
	id       int
	log      *log.Entry
	clock    clockwork.Clock
	resource *rest.Resource[model.TrialDetailsParams, model.TrialDetails]
	poller   *polling.Poller
	errs     *errInfo.StickyError

	mu       sync.Mutex
	lastSeen time.Time
	holds    int
	stopOnce sync.Once
	stopped  chan struct{}
}

func newWatcher(
	id int, fetch FetchFunc, interval time.Duration, errs *errInfo.StickyError,
	clock clockwork.Clock,
) *Watcher {
	params := model.TrialDetailsParams{ID: id}
	w := &Watcher{
		id:       id,
		log:      log.WithFields(log.Fields{"component": "trial-watcher", "trial-id": id}),
		clock:    clock,
		resource: rest.New(fetch, params, clock),
		errs:     errs,
		lastSeen: clock.Now(),
		stopped:  make(chan struct{}),
	}
	w.poller = polling.New(fmt.Sprintf("trial-%d", id), w.poll, interval, clock)
	return w
}

// ID returns the trial id being watched.
func (w *Watcher) ID() int {
	return w.id
}

// State returns the current fetch state of the trial.
func (w *Watcher) State() TrialState {
	return w.resource.Snapshot()
}

// Subscribe returns a channel signaled after each change of the fetch state.
func (w *Watcher) Subscribe() (<-chan struct{}, func()) {
	return w.resource.Subscribe()
}

// Stopped is closed once the watcher has been unmounted.
func (w *Watcher) Stopped() <-chan struct{} {
	return w.stopped
}

func (w *Watcher) poll(ctx context.Context) {
	w.resource.SetParams(ctx, model.TrialDetailsParams{ID: w.id})
	if ctx.Err() != nil {
		return
	}

	err := w.State().Error
	switch latched := w.errs.SetError(err); {
	case latched != nil:
		w.log.WithError(latched).
			WithField("retries", w.errs.Retries()).
			Warn("trial fetch keeps failing")
	case err != nil:
		w.log.WithError(err).Debug("trial fetch failed, retrying next tick")
	}
}

func (w *Watcher) mount(ctx context.Context) {
	w.log.Debug("mounting trial watcher")
	w.poller.Start(ctx)
}

func (w *Watcher) unmount() {
	w.stopOnce.Do(func() {
		w.log.Debug("unmounting trial watcher")
		w.poller.Stop()
		close(w.stopped)
	})
}

func (w *Watcher) touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = w.clock.Now()
}

// hold marks the watcher as in use until the returned function is called; held watchers are
// never swept as idle or evicted.
func (w *Watcher) hold() func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.holds++
	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			w.holds--
			w.lastSeen = w.clock.Now()
		})
	}
}

func (w *Watcher) isHeld() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.holds > 0
}

func (w *Watcher) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.holds > 0 {
		return 0
	}
	return now.Sub(w.lastSeen)
}
