package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ordered delivers every outcome to the observer in dispatch order,
// holding results that arrive early until the gap before them is filled.
// A request that never completes stalls delivery and grows the holding
// area; callers are expected to impose their own dispatch-side timeouts.
type Ordered[R any] struct {
	mu             sync.Mutex
	observer       Observer[R]
	logger         zerolog.Logger
	lastDispatched uint64
	nextExpected   uint64
	holding        map[uint64]Outcome[R]
	requests       map[uint64]*PendingRequest
}

// NewOrdered creates an ordered-delivery reconciler delivering to observer.
func NewOrdered[R any](observer Observer[R], logger zerolog.Logger) *Ordered[R] {
	return &Ordered[R]{
		observer: observer,
		logger:   logger,
		holding:  make(map[uint64]Outcome[R]),
		requests: make(map[uint64]*PendingRequest),
	}
}

// Dispatch assigns the next sequence id and records the request.
func (r *Ordered[R]) Dispatch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastDispatched++
	seq := r.lastDispatched
	if r.nextExpected == 0 {
		r.nextExpected = seq
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

// Complete records a result arrival. The result is delivered immediately
// when seq is the next expected id, held when it arrived early, and
// discarded when it is a duplicate or was never dispatched.
func (r *Ordered[R]) Complete(seq uint64, result R) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrive(seq, Outcome[R]{Seq: seq, Result: result}, StateCompleted)
}

// Fail records a failure arrival. Failures are ordered like results: the
// error is delivered in dispatch order, not ahead of earlier outcomes.
func (r *Ordered[R]) Fail(seq uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrive(seq, Outcome[R]{Seq: seq, Err: err}, StateFailed)
}

func (r *Ordered[R]) arrive(seq uint64, out Outcome[R], terminal State) {
	req, ok := r.requests[seq]
	if !ok || req.State != StateInFlight {
		r.logger.Debug().Uint64("seq", seq).Msg("duplicate or unknown arrival discarded")
		return
	}
	req.State = terminal

	if seq != r.nextExpected {
		r.holding[seq] = out
		r.logger.Debug().Uint64("seq", seq).Uint64("next_expected", r.nextExpected).Msg("held out-of-order arrival")
		return
	}

	r.deliver(out)
	r.nextExpected++
	r.drain()
}

// drain delivers held outcomes for as long as the next expected id is
// present, stopping at the first gap.
func (r *Ordered[R]) drain() {
	for {
		out, ok := r.holding[r.nextExpected]
		if !ok {
			return
		}
		delete(r.holding, r.nextExpected)
		r.deliver(out)
		r.nextExpected++
	}
}

func (r *Ordered[R]) deliver(out Outcome[R]) {
	if out.Err != nil {
		r.observer.OnError(out.Seq, out.Err)
	} else {
		r.observer.OnResult(out.Seq, out.Result)
	}

	// The record is terminal and delivered; drop the bookkeeping.
	delete(r.requests, out.Seq)
}

// Held reports how many outcomes are waiting for an earlier gap to fill.
func (r *Ordered[R]) Held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holding)
}

// Request returns a snapshot of the bookkeeping record for seq.
func (r *Ordered[R]) Request(seq uint64) (PendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[seq]
	if !ok {
		return PendingRequest{}, false
	}
	return *req, true
}
