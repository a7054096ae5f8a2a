package domain

import (
	"math"
	"math/bits"
)

// CheckedMul returns count × price. ok is false when either operand is
// negative or the product does not fit in an int64.
func CheckedMul(count, price int64) (product int64, ok bool) {
	if count < 0 || price < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(count), uint64(price))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// CheckedAdd returns a + b for non-negative operands. ok is false when the
// sum does not fit in an int64.
func CheckedAdd(a, b int64) (sum int64, ok bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
