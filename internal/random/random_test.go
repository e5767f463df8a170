package random

import (
	"sort"
	"testing"
)

func TestPermutation(t *testing.T) {
	r := NewSeeded(42)
	for n := 0; n <= 50; n++ {
		for round := 0; round < 5; round++ {
			perm := Permutation(n, r)
			if len(perm) != n {
				t.Fatalf("n=%d: expected length %d, got %d", n, n, len(perm))
			}
			sorted := append([]int(nil), perm...)
			sort.Ints(sorted)
			for i, v := range sorted {
				if v != i {
					t.Fatalf("n=%d: not a permutation: %v", n, perm)
				}
			}
		}
	}
}

func TestPermutation_Deterministic(t *testing.T) {
	a := Permutation(20, NewSeeded(7))
	b := Permutation(20, NewSeeded(7))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different permutations: %v vs %v", a, b)
		}
	}
}

// fixedRand always picks the lowest allowed value
type fixedRand struct{}

func (fixedRand) IntN(int) int { return 0 }

func TestPermutation_SwapOrder(t *testing.T) {
	// j=0 at every step: i=3 swaps 3<->0, i=2 swaps 2<->0, i=1 swaps 1<->0
	got := Permutation(4, fixedRand{})
	want := []int{1, 2, 3, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSample(t *testing.T) {
	tests := []struct {
		name    string
		n, k    int
		wantLen int
	}{
		{name: "k smaller than n", n: 10, k: 3, wantLen: 3},
		{name: "k equals n", n: 5, k: 5, wantLen: 5},
		{name: "k larger than n", n: 4, k: 9, wantLen: 4},
		{name: "empty pool", n: 0, k: 3, wantLen: 0},
		{name: "zero k", n: 5, k: 0, wantLen: 0},
	}

	r := NewSeeded(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sample(tt.n, tt.k, r)
			if len(got) != tt.wantLen {
				t.Fatalf("expected %d indices, got %d", tt.wantLen, len(got))
			}
			seen := make(map[int]bool)
			for _, idx := range got {
				if idx < 0 || idx >= tt.n {
					t.Errorf("index %d out of range [0,%d)", idx, tt.n)
				}
				if seen[idx] {
					t.Errorf("duplicate index %d", idx)
				}
				seen[idx] = true
			}
		})
	}
}
