package rest

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FetchFunc fetches the resource identified by the params.
type FetchFunc[P, T any] func(ctx context.Context, params P) (*T, error)

// State is a snapshot of a Resource: the last response or error and whether a request is in
// flight.
type State[P, T any] struct {
	Params    P
	Data      *T
	Error     error
	IsLoading bool
	// HasLoaded is set once any request has completed, successfully or not.
	HasLoaded bool
	UpdatedAt time.Time
}

// Resource holds the last response of a parameterized fetch, and refetches whenever new params
// are set. Responses to requests issued before the most recently completed one are dropped, so an
// old, slow request cannot overwrite newer data.
type Resource[P, T any] struct {
	fetch FetchFunc[P, T]
	clock clockwork.Clock

	mu        sync.Mutex
	state     State[P, T]
	issued    uint64
	applied   uint64
	inFlight  int
	listeners map[int]chan struct{}
	nextID    int
}

// New returns an idle resource with the given initial params. Nothing is fetched until
// SetParams is called.
func New[P, T any](fetch FetchFunc[P, T], initial P, clock clockwork.Clock) *Resource[P, T] {
	return &Resource[P, T]{
		fetch:     fetch,
		clock:     clock,
		state:     State[P, T]{Params: initial},
		listeners: map[int]chan struct{}{},
	}
}

// SetParams records the params and fetches the resource with them, blocking until the fetch
// finishes. The result replaces the previous state: a success clears any error and a failure
// clears any data. The result is dropped if ctx is done by the time the fetch returns.
func (r *Resource[P, T]) SetParams(ctx context.Context, params P) {
	r.mu.Lock()
	r.issued++
	seq := r.issued
	r.inFlight++
	r.state.Params = params
	r.state.IsLoading = true
	r.notifyLocked()
	r.mu.Unlock()

	data, err := r.fetch(ctx, params)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
	r.state.IsLoading = r.inFlight > 0
	// A fetch cut short by its caller says nothing about the resource.
	if ctx.Err() == nil && seq > r.applied {
		r.applied = seq
		r.state.Data, r.state.Error = data, err
		if err != nil {
			r.state.Data = nil
		}
		r.state.HasLoaded = true
		r.state.UpdatedAt = r.clock.Now()
	}
	r.notifyLocked()
}

// Snapshot returns the current state.
func (r *Resource[P, T]) Snapshot() State[P, T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe returns a channel that receives a signal after each state change, coalescing
// signals the subscriber has not consumed yet, and a function to unsubscribe.
func (r *Resource[P, T]) Subscribe() (<-chan struct{}, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	ch := make(chan struct{}, 1)
	r.listeners[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Resource[P, T]) notifyLocked() {
	for _, ch := range r.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
