package parsers

import (
	"math"
	"math/big"
)

// IsFibonacci reports membership in 0, 1, 1, 2, 3, 5, ...
func IsFibonacci(n int64) bool {
	if n < 0 {
		return false
	}
	var a, b int64 = 0, 1
	for a < n {
		if b > math.MaxInt64-a {
			return b == n
		}
		a, b = b, a+b
	}
	return a == n
}

// IsPrime is exact for every int64: ProbablyPrime is deterministic below 2^64.
func IsPrime(n int64) bool {
	if n < 2 {
		return false
	}
	return big.NewInt(n).ProbablyPrime(0)
}
