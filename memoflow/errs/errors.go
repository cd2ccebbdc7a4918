// Package errs defines the error taxonomy shared by the cache and the
// reconciler. Callers classify failures with errors.Is; wrapped causes stay
// reachable through errors.Unwrap.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks a transient backend failure (network, disk).
	// Never retried internally; retry is the caller's decision.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSerialization marks a value that could not be encoded or decoded.
	// Permanent for a given input shape; the cache is left unmodified.
	ErrSerialization = errors.New("value not serializable")

	// ErrKeyDerivation marks arguments that could not be canonically encoded
	// into a cache key. Raised before the wrapped computation is attempted.
	ErrKeyDerivation = errors.New("cache key not derivable")
)

// StoreUnavailable wraps cause so that errors.Is(err, ErrStoreUnavailable)
// holds while the backend error remains inspectable.
func StoreUnavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)
}

// Serialization wraps an encode/decode failure.
func Serialization(cause error) error {
	return fmt.Errorf("%w: %w", ErrSerialization, cause)
}

// KeyDerivation wraps a key-encoding failure.
func KeyDerivation(cause error) error {
	return fmt.Errorf("%w: %w", ErrKeyDerivation, cause)
}
