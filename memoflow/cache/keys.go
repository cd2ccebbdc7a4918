package cache

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
)

// HashKeyer derives cache keys by hashing the argument value with
// hashstructure. Value-equal arguments hash identically regardless of object
// identity; slices and struct fields are order-sensitive, so reordered
// arguments produce different keys.
//
// Arguments that reflection cannot walk (functions, channels) fail key
// derivation before the wrapped computation runs.
type HashKeyer struct {
	namespace string
}

// NewHashKeyer creates a keyer. The namespace separates keys of different
// wrapped computations sharing one store.
func NewHashKeyer(namespace string) *HashKeyer {
	return &HashKeyer{namespace: namespace}
}

// Key returns "<namespace>:<hash>" for the argument value.
func (k *HashKeyer) Key(arg any) (string, error) {
	sum, err := hashstructure.Hash(arg, hashstructure.FormatV2, nil)
	if err != nil {
		return "", errs.KeyDerivation(fmt.Errorf("hash argument: %w", err))
	}
	return fmt.Sprintf("%s:%016x", k.namespace, sum), nil
}

// KeyFunc adapts a plain function into a Keyer. Custom key functions decide
// which parts of the argument participate in the key, e.g. to exclude
// connection handles.
type KeyFunc func(arg any) (string, error)

// Key invokes the function and classifies its failure as a key-derivation
// error.
func (f KeyFunc) Key(arg any) (string, error) {
	key, err := f(arg)
	if err != nil {
		return "", errs.KeyDerivation(err)
	}
	return key, nil
}

// Ensure both keyers implement the Keyer interface.
var (
	_ ports.Keyer = (*HashKeyer)(nil)
	_ ports.Keyer = KeyFunc(nil)
)
