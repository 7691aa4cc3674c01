package polling

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// Poller calls a function once when started and then on every tick of a fixed interval until
// stopped. Calls never overlap: a tick that arrives while the previous call is still running is
// skipped, so a slow master sees at most one outstanding request per poller.
type Poller struct {
	log      *log.Entry
	fn       func(ctx context.Context)
	interval time.Duration
	clock    clockwork.Clock

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	calls   sync.WaitGroup
	running atomic.Bool
	skipped atomic.Int64
}

// New returns a stopped poller.
func New(
	name string, fn func(ctx context.Context), interval time.Duration, clock clockwork.Clock,
) *Poller {
	return &Poller{
		log:      log.WithFields(log.Fields{"component": "poller", "name": name}),
		fn:       fn,
		interval: interval,
		clock:    clock,
	}
}

// Start begins polling; the first call is made immediately. Starting a started poller is a no-op.
// The poller stops when ctx is canceled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop stops polling and waits for an in-flight call to return. Stopping is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.calls.Wait()
}

// Skipped returns how many ticks were dropped because the previous call was still running.
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

func (p *Poller) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.log.Debug("previous poll still running, skipping tick")
		return
	}
	p.calls.Add(1)
	go func() {
		defer p.calls.Done()
		defer p.running.Store(false)
		p.fn(ctx)
	}()
}
