package rewards

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Source draws uniform integers in [0, n).
type Source interface {
	Int63n(n int64) (int64, error)
}

// CryptoSource reads crypto/rand. rand.Int rejects out-of-range samples, so
// there is no modulo bias for any n.
type CryptoSource struct{}

func (CryptoSource) Int63n(n int64) (int64, error) {
	if n <= 0 {
		return 0, errors.New("invalid range")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// Between draws uniformly from [min, max].
func Between(src Source, min int64, max int64) (int64, error) {
	v, err := src.Int63n(max - min + 1)
	if err != nil {
		return 0, err
	}
	return min + v, nil
}
