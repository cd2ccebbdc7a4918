package reconcile

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/memoflow/memoflow/config"
)

func TestNewFromConfig(t *testing.T) {
	cfg := &config.ReconcileConfig{Policy: "ordered", MaxWorkers: 2, ObserverBuffer: 4}

	d, observer, err := NewFromConfig[int](cfg, zerolog.Nop())
	require.NoError(t, err)

	seq := d.Go(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})
	d.Wait()

	outcome := <-observer.Outcomes()
	assert.Equal(t, seq, outcome.Seq)
	assert.Equal(t, 7, outcome.Result)
}

func TestNewFromConfig_UnknownPolicy(t *testing.T) {
	_, _, err := NewFromConfig[int](&config.ReconcileConfig{Policy: "newest"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reconcile policy")
}
