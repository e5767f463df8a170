// Package random provides the injectable randomness used by providers and rotation.
package random

import (
	"math/rand/v2"
	"sync"
)

// Rand is the subset of a pseudorandom generator the image core needs
type Rand interface {
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// lockedRand serialises access to a *rand.Rand, which is not safe for concurrent use
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// New returns an automatically seeded generator
func New() Rand {
	return &lockedRand{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a deterministic generator for tests and reproducible runs
func NewSeeded(seed uint64) Rand {
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Permutation returns a uniformly random permutation of [0, n) using Fisher–Yates
func Permutation(n int, r Rand) []int {
	if n <= 0 {
		return []int{}
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i >= 1; i-- {
		j := r.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Sample returns min(k, n) distinct indices from [0, n) in random order
func Sample(n, k int, r Rand) []int {
	if n <= 0 || k <= 0 {
		return []int{}
	}
	if k > n {
		k = n
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	// partial Fisher–Yates: the first k slots end up as the sample
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
