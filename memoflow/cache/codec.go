package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
)

// envelope is the stored representation of a result. CreatedAt makes TTL
// checks uniform across store backends that have no native expiry.
type envelope[R any] struct {
	CreatedAt time.Time
	Value     R
}

func encodeEnvelope[R any](env envelope[R]) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&env); err != nil {
		return nil, errs.Serialization(fmt.Errorf("encode result: %w", err))
	}
	return buf.Bytes(), nil
}

func decodeEnvelope[R any](data []byte) (envelope[R], error) {
	var env envelope[R]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return envelope[R]{}, errs.Serialization(fmt.Errorf("decode result: %w", err))
	}
	return env, nil
}
