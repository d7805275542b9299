// Package testutil provides shared helpers for tests: a seeded thread-safe
// random number generator and affinity volume generators.
package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformAffinities generates one weight array per grid axis, each with one
// random value in [0, 1) per voxel. Far-face entries are left random; the
// affinity graph ignores them.
func (r *RNG) UniformAffinities(shape []int) [][]float32 {
	n := 1
	for _, dim := range shape {
		n *= dim
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, len(shape)*n)
	weights := make([][]float32, len(shape))
	for d := range weights {
		w := data[d*n : (d+1)*n]
		for i := range w {
			w[i] = r.rand.Float32()
		}
		weights[d] = w
	}
	return weights
}

// ConstantAffinities generates one weight array per grid axis filled with a
// single value.
func ConstantAffinities(shape []int, value float32) [][]float32 {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	weights := make([][]float32, len(shape))
	for d := range weights {
		w := make([]float32, n)
		for i := range w {
			w[i] = value
		}
		weights[d] = w
	}
	return weights
}
