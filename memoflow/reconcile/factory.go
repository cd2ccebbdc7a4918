package reconcile

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/memoflow/memoflow/config"
)

// NewFromConfig wires a policy, a channel observer and a dispatcher from
// configuration. Outcomes are read from the returned observer. Callers that
// cannot guarantee a prompt consumer should wire a LatestObserver into
// NewLatestWins directly instead.
func NewFromConfig[R any](cfg *config.ReconcileConfig, logger zerolog.Logger) (*Dispatcher[R], *ChanObserver[R], error) {
	observer := NewChanObserver[R](cfg.ObserverBuffer)

	var target Completer[R]
	switch cfg.Policy {
	case "latest_wins":
		target = NewLatestWins[R](observer, logger)
	case "ordered":
		target = NewOrdered[R](observer, logger)
	default:
		return nil, nil, fmt.Errorf("unknown reconcile policy %q", cfg.Policy)
	}

	return NewDispatcher(target, cfg.MaxWorkers), observer, nil
}
