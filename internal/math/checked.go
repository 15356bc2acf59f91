// internal/math/checked.go
package math

import (
	"math"
	"math/big"
	"sync"
)

// All ledger amounts are unsigned fixed-point integers (base asset 1e9,
// quote asset 1e6). Every mutation goes through checked arithmetic:
// overflow and underflow are reported, never wrapped.

// CheckedAdd returns a+b, or false on overflow.
func CheckedAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// CheckedSub returns a-b, or false on underflow.
func CheckedSub(a, b uint64) (uint64, bool) {
	if a < b {
		return 0, false
	}
	return a - b, true
}

// Int128 is a pooled big.Int for widened intermediates
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	int128Pool.Put(v)
}

// MulDiv computes a * num / denom with a widened intermediate, truncating
// toward zero. Returns false when denom is zero or the quotient does not
// fit in uint64.
func MulDiv(a, num, denom uint64) (uint64, bool) {
	if denom == 0 {
		return 0, false
	}

	prod := getInt128()
	prod.Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(num))
	prod.Quo(prod, new(big.Int).SetUint64(denom))

	if !prod.IsUint64() {
		putInt128(prod)
		return 0, false
	}

	result := prod.Uint64()
	putInt128(prod)
	return result, true
}

// SaturatingSub returns a-b, clamped at zero.
func SaturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
