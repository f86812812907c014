// Package price implements the Fibonacci pricing model for the tile
// wall. Prices follow fib(0)=1, fib(1)=1, fib(k)=fib(k-1)+fib(k-2);
// the price of the next tile after k purchases in a range starting at
// s is fib(s+k).
package price

// FibonacciPrice returns the n-th term of the pricing sequence.
// Negative input is treated as 0.
func FibonacciPrice(n int) int64 {
	if n <= 1 {
		return 1
	}
	var a, b int64 = 1, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// CurrentPrice is the price of the next tile to be sold given the
// number of tiles already purchased within a range starting at
// rangeStart.
func CurrentPrice(totalPurchased, rangeStart int) int64 {
	return FibonacciPrice(rangeStart + totalPurchased)
}

// UniverseValue is the sum of all tile prices across the configured
// range, i.e. the total value of the catalog once fully sold.
func UniverseValue(rangeStart, rangeEnd int) int64 {
	var total int64
	for i := rangeStart; i <= rangeEnd; i++ {
		total += FibonacciPrice(i)
	}
	return total
}

// OwnershipWeight is the display-only percentage of the total catalog
// value represented by one tile's price. Not authoritative for money.
func OwnershipWeight(price int64, rangeStart, rangeEnd int) float64 {
	total := UniverseValue(rangeStart, rangeEnd)
	if total == 0 {
		return 0
	}
	return float64(price) / float64(total) * 100
}

// Progression previews the next k prices starting from the current
// purchase count.
func Progression(totalPurchased, rangeStart, k int) []int64 {
	steps := make([]int64, 0, k)
	for i := 0; i < k; i++ {
		steps = append(steps, CurrentPrice(totalPurchased+i, rangeStart))
	}
	return steps
}
