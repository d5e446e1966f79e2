// Package chance holds the random source every probabilistic decision in
// keepwarm draws from. Callers accept a Source so tests can pin any branch.
package chance

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// Source is the subset of *rand.Rand used across the codebase.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// New returns a PCG-backed source seeded from crypto/rand.
func New() Source {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		now := uint64(time.Now().UnixNano())
		return rand.New(rand.NewPCG(now, now>>17))
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// Hit reports whether an event with probability p happens.
func Hit(r Source, p float64) bool {
	return r.Float64() < p
}

// Between returns a uniform float in [min, max).
func Between(r Source, min, max float64) float64 {
	if min >= max {
		return min
	}
	return min + r.Float64()*(max-min)
}

// Duration returns a uniform duration in [min, max).
func Duration(r Source, min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	return min + time.Duration(r.Float64()*float64(max-min))
}

// IntBetween returns a uniform int in [min, max].
func IntBetween(r Source, min, max int) int {
	if min >= max {
		return min
	}
	return min + r.IntN(max-min+1)
}

// Pick returns a uniformly chosen element. items must not be empty.
func Pick[T any](r Source, items []T) T {
	return items[r.IntN(len(items))]
}

// Sample returns k distinct indices from [0, n) using a partial Fisher-Yates.
func Sample(r Source, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// Fixed is a scripted Source. Float64 replays Floats in order and cycles;
// IntN replays Ints the same way, clamped into [0, n).
// The zero value answers 0 for everything.
type Fixed struct {
	Floats []float64
	Ints   []int

	fi, ii int
}

// Float64 implements Source.
func (f *Fixed) Float64() float64 {
	if len(f.Floats) == 0 {
		return 0
	}
	v := f.Floats[f.fi%len(f.Floats)]
	f.fi++
	return v
}

// IntN implements Source.
func (f *Fixed) IntN(n int) int {
	if len(f.Ints) == 0 || n <= 0 {
		return 0
	}
	v := f.Ints[f.ii%len(f.Ints)]
	f.ii++
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	return v
}
