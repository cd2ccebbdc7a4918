// Package reconcile coordinates concurrently dispatched computations whose
// completion order is not guaranteed. Each dispatch is tagged with a
// monotonically increasing sequence id; a policy decides, per completion,
// whether the result is surfaced to the observer or silently discarded as
// stale.
//
// Two policies are provided: LatestWins surfaces only the outcome of the
// most recently dispatched request, Ordered delivers every outcome in
// dispatch order.
package reconcile

import (
	"time"
)

// State is the lifecycle state of a dispatched request. All states other
// than StateInFlight are terminal.
type State int

const (
	StateInFlight State = iota
	StateCompleted
	StateFailed
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateInFlight:
		return "in_flight"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// PendingRequest is the bookkeeping record for one dispatch.
type PendingRequest struct {
	Seq          uint64
	TraceID      string
	DispatchedAt time.Time
	State        State
}

// Observer is the single-slot sink a policy delivers accepted outcomes to.
//
// Callbacks run inside the policy's critical section so that delivery order
// matches acceptance order; observers must be fast and must not call back
// into the policy.
type Observer[R any] interface {
	OnResult(seq uint64, result R)
	OnError(seq uint64, err error)
}

// Outcome is one accepted result or error.
type Outcome[R any] struct {
	Seq    uint64
	Result R
	Err    error
}

// ChanObserver forwards accepted outcomes to a buffered channel, decoupling
// the policy's critical section from whoever awaits results.
type ChanObserver[R any] struct {
	ch chan Outcome[R]
}

// NewChanObserver creates an observer with the given channel buffer. The
// buffer must be sized for the expected burst of accepted outcomes; a send
// on a full buffer blocks the policy.
func NewChanObserver[R any](buffer int) *ChanObserver[R] {
	return &ChanObserver[R]{ch: make(chan Outcome[R], buffer)}
}

// OnResult forwards an accepted result.
func (o *ChanObserver[R]) OnResult(seq uint64, result R) {
	o.ch <- Outcome[R]{Seq: seq, Result: result}
}

// OnError forwards an accepted error.
func (o *ChanObserver[R]) OnError(seq uint64, err error) {
	o.ch <- Outcome[R]{Seq: seq, Err: err}
}

// Outcomes returns the delivery channel.
func (o *ChanObserver[R]) Outcomes() <-chan Outcome[R] {
	return o.ch
}

// LatestObserver keeps only the most recently accepted outcome. Publishing
// never blocks: when the consumer lags, the held outcome is overwritten.
// It pairs with LatestWins, where a lagging consumer only ever wants the
// newest value anyway.
type LatestObserver[R any] struct {
	ch chan Outcome[R]
}

// NewLatestObserver creates a single-slot observer.
func NewLatestObserver[R any]() *LatestObserver[R] {
	return &LatestObserver[R]{ch: make(chan Outcome[R], 1)}
}

// OnResult replaces the held outcome with an accepted result.
func (o *LatestObserver[R]) OnResult(seq uint64, result R) {
	o.publish(Outcome[R]{Seq: seq, Result: result})
}

// OnError replaces the held outcome with an accepted error.
func (o *LatestObserver[R]) OnError(seq uint64, err error) {
	o.publish(Outcome[R]{Seq: seq, Err: err})
}

func (o *LatestObserver[R]) publish(out Outcome[R]) {
	for {
		select {
		case o.ch <- out:
			return
		default:
			// Slot full; drop the stale outcome and try again.
			select {
			case <-o.ch:
			default:
			}
		}
	}
}

// Outcomes returns the single-slot delivery channel. A receive yields the
// newest outcome accepted so far.
func (o *LatestObserver[R]) Outcomes() <-chan Outcome[R] {
	return o.ch
}

// ObserverFuncs adapts plain functions into an Observer. Nil funcs are
// skipped.
type ObserverFuncs[R any] struct {
	Result func(seq uint64, result R)
	Error  func(seq uint64, err error)
}

func (o ObserverFuncs[R]) OnResult(seq uint64, result R) {
	if o.Result != nil {
		o.Result(seq, result)
	}
}

func (o ObserverFuncs[R]) OnError(seq uint64, err error) {
	if o.Error != nil {
		o.Error(seq, err)
	}
}

// Ensure adapters implement the Observer interface.
var (
	_ Observer[int] = (*ChanObserver[int])(nil)
	_ Observer[int] = (*LatestObserver[int])(nil)
	_ Observer[int] = ObserverFuncs[int]{}
)
