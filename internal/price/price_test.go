package price

import "testing"

func TestFibonacciPrice(t *testing.T) {
	tests := []struct {
		n    int
		want int64
	}{
		{n: 0, want: 1},
		{n: 1, want: 1},
		{n: 2, want: 2},
		{n: 3, want: 3},
		{n: 4, want: 5},
		{n: 5, want: 8},
		{n: 10, want: 89},
		{n: 20, want: 10946},
	}
	for _, tc := range tests {
		if got := FibonacciPrice(tc.n); got != tc.want {
			t.Errorf("FibonacciPrice(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestFibonacciPriceNegative(t *testing.T) {
	if got := FibonacciPrice(-3); got != 1 {
		t.Errorf("FibonacciPrice(-3) = %d, want 1", got)
	}
}

func TestCurrentPriceMonotonic(t *testing.T) {
	for _, rangeStart := range []int{0, 5, 10} {
		prev := int64(0)
		for purchased := 0; purchased < 30; purchased++ {
			p := CurrentPrice(purchased, rangeStart)
			if p < prev {
				t.Fatalf("price decreased at rangeStart=%d purchased=%d: %d < %d",
					rangeStart, purchased, p, prev)
			}
			prev = p
		}
	}
}

func TestUniverseValue(t *testing.T) {
	// fib(0..4) = 1+1+2+3+5
	if got := UniverseValue(0, 4); got != 12 {
		t.Errorf("UniverseValue(0,4) = %d, want 12", got)
	}
	if got := UniverseValue(3, 3); got != 3 {
		t.Errorf("UniverseValue(3,3) = %d, want 3", got)
	}
}

func TestOwnershipWeightSumsToFull(t *testing.T) {
	rangeStart, rangeEnd := 0, 48
	var sum float64
	for i := rangeStart; i <= rangeEnd; i++ {
		sum += OwnershipWeight(FibonacciPrice(i), rangeStart, rangeEnd)
	}
	if sum < 99.999 || sum > 100.001 {
		t.Errorf("weights sum to %f, want 100", sum)
	}
}

func TestOwnershipWeightEmptyRange(t *testing.T) {
	if got := OwnershipWeight(10, 5, 4); got != 0 {
		t.Errorf("weight over empty range = %f, want 0", got)
	}
}

func TestProgression(t *testing.T) {
	got := Progression(0, 0, 6)
	want := []int64{1, 1, 2, 3, 5, 8}
	if len(got) != len(want) {
		t.Fatalf("got %d steps, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %d, want %d", i, got[i], want[i])
		}
	}
}
