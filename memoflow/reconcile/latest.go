package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LatestWins surfaces only the outcome of the most recently dispatched
// request. Dispatching a new request supersedes every older in-flight
// request: they may still complete, but their outcomes are discarded
// silently. Staleness is expected, not exceptional.
type LatestWins[R any] struct {
	mu             sync.Mutex
	observer       Observer[R]
	logger         zerolog.Logger
	lastDispatched uint64
	requests       map[uint64]*PendingRequest
	current        *Outcome[R]
}

// NewLatestWins creates a latest-wins reconciler delivering to observer.
func NewLatestWins[R any](observer Observer[R], logger zerolog.Logger) *LatestWins[R] {
	return &LatestWins[R]{
		observer: observer,
		logger:   logger,
		requests: make(map[uint64]*PendingRequest),
	}
}

// Dispatch assigns the next sequence id and records the request. Every
// older request still in flight becomes superseded the instant this
// returns. Dispatch never blocks beyond the critical section.
func (r *LatestWins[R]) Dispatch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastDispatched++
	seq := r.lastDispatched

	for id, req := range r.requests {
		switch req.State {
		case StateInFlight:
			req.State = StateSuperseded
		default:
			// Terminal records from previous generations are no longer needed.
			delete(r.requests, id)
		}
	}

	r.requests[seq] = &PendingRequest{
		Seq:          seq,
		TraceID:      uuid.New().String(),
		DispatchedAt: time.Now(),
		State:        StateInFlight,
	}

	r.logger.Debug().Uint64("seq", seq).Msg("dispatched")
	return seq
}

// Complete records a result arrival. The result is surfaced only when seq
// is still the latest dispatched id; otherwise it is discarded without
// error.
func (r *LatestWins[R]) Complete(seq uint64, result R) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[seq]
	if !ok {
		return
	}

	if seq != r.lastDispatched {
		req.State = StateSuperseded
		delete(r.requests, seq)
		r.logger.Debug().Uint64("seq", seq).Msg("stale result discarded")
		return
	}

	req.State = StateCompleted
	r.current = &Outcome[R]{Seq: seq, Result: result}
	r.observer.OnResult(seq, result)
}

// Fail records a failure arrival with the same gating as Complete. An
// accepted failure clears the previously surfaced result.
func (r *LatestWins[R]) Fail(seq uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[seq]
	if !ok {
		return
	}

	if seq != r.lastDispatched {
		req.State = StateSuperseded
		delete(r.requests, seq)
		r.logger.Debug().Uint64("seq", seq).Msg("stale failure discarded")
		return
	}

	req.State = StateFailed
	r.current = &Outcome[R]{Seq: seq, Err: err}
	r.observer.OnError(seq, err)
}

// Current returns the most recently surfaced outcome, if any.
func (r *LatestWins[R]) Current() (Outcome[R], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return Outcome[R]{}, false
	}
	return *r.current, true
}

// Request returns a snapshot of the bookkeeping record for seq.
func (r *LatestWins[R]) Request(seq uint64) (PendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[seq]
	if !ok {
		return PendingRequest{}, false
	}
	return *req, true
}
