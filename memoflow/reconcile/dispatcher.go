package reconcile

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// Completer is the policy surface the dispatcher drives. Both LatestWins
// and Ordered satisfy it.
type Completer[R any] interface {
	Dispatch() uint64
	Complete(seq uint64, result R)
	Fail(seq uint64, err error)
}

// Dispatcher runs computations on a worker pool and reports each outcome to
// a policy exactly once. Sequence ids are assigned synchronously at submit
// time, so submission order defines dispatch order even when the pool is
// saturated.
//
// The dispatcher never cancels a superseded computation; reclaiming compute
// belongs to the caller via ctx.
type Dispatcher[R any] struct {
	target  Completer[R]
	pool    *pool.Pool
	pending sync.WaitGroup
}

// NewDispatcher creates a dispatcher with at most maxWorkers concurrent
// computations. maxWorkers <= 0 means unbounded.
func NewDispatcher[R any](target Completer[R], maxWorkers int) *Dispatcher[R] {
	p := pool.New()
	if maxWorkers > 0 {
		p = p.WithMaxGoroutines(maxWorkers)
	}
	return &Dispatcher[R]{target: target, pool: p}
}

// Go dispatches fn and returns its sequence id immediately, even when the
// pool is saturated: submission to the pool happens on a detached goroutine
// so a slow computation can never hold up the dispatch that supersedes it.
// fn's result or error is routed to the policy when it finishes.
func (d *Dispatcher[R]) Go(ctx context.Context, fn func(ctx context.Context) (R, error)) uint64 {
	seq := d.target.Dispatch()

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		d.pool.Go(func() {
			result, err := fn(ctx)
			if err != nil {
				d.target.Fail(seq, err)
				return
			}
			d.target.Complete(seq, result)
		})
	}()

	return seq
}

// Wait blocks until every dispatched computation has finished. Go must not
// be called after Wait.
func (d *Dispatcher[R]) Wait() {
	d.pending.Wait()
	d.pool.Wait()
}

// Ensure both policies implement Completer.
var (
	_ Completer[int] = (*LatestWins[int])(nil)
	_ Completer[int] = (*Ordered[int])(nil)
)
