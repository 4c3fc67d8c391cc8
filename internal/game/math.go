package game

import (
	"math"
	"math/bits"
)

// mulDivFloor computes floor(a*b/div) with a 128-bit intermediate and returns
// ErrMathOverflow if the quotient does not fit in uint64.
func mulDivFloor(a, b, div uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= div {
		return 0, ErrMathOverflow
	}
	q, _ := bits.Div64(hi, lo, div)
	return q, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return s, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	d, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrMathOverflow
	}
	return d, nil
}

func checkedAddInt64(a int64, b uint64) (int64, error) {
	if b > math.MaxInt64 {
		return 0, ErrMathOverflow
	}
	if a > math.MaxInt64-int64(b) {
		return 0, ErrMathOverflow
	}
	return a + int64(b), nil
}
