package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
)

func TestHashKeyer_Deterministic(t *testing.T) {
	keyer := NewHashKeyer("test")

	type args struct {
		Name  string
		Limit int
	}

	first, err := keyer.Key(args{Name: "a", Limit: 10})
	require.NoError(t, err)

	// Value-equal argument, fresh instance.
	second, err := keyer.Key(args{Name: "a", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHashKeyer_ValueSensitive(t *testing.T) {
	keyer := NewHashKeyer("test")

	a, err := keyer.Key([]int{1, 2, 3})
	require.NoError(t, err)
	b, err := keyer.Key([]int{3, 2, 1})
	require.NoError(t, err)
	c, err := keyer.Key([]int{1, 2, 4})
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "argument order participates in the key")
	assert.NotEqual(t, a, c, "argument values participate in the key")
}

func TestHashKeyer_NamespaceSeparation(t *testing.T) {
	a, err := NewHashKeyer("f").Key(1)
	require.NoError(t, err)
	b, err := NewHashKeyer("g").Key(1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "computations sharing a store must not collide")
}

func TestHashKeyer_Unhashable(t *testing.T) {
	keyer := NewHashKeyer("test")

	_, err := keyer.Key(func() {})
	require.ErrorIs(t, err, errs.ErrKeyDerivation)
}

func TestKeyFunc_WrapsErrors(t *testing.T) {
	keyer := KeyFunc(func(arg any) (string, error) {
		return "", assert.AnError
	})

	_, err := keyer.Key(nil)
	require.ErrorIs(t, err, errs.ErrKeyDerivation)
	require.ErrorIs(t, err, assert.AnError)
}
