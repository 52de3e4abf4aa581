package statemachine

import (
	"math/rand/v2"
	"sync"
)

// lockedRand serializes access to a *rand.Rand so independent machines running in
// separate goroutines can share the package default source.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rnd == nil {
		return rand.Float64() //nolint:gosec // Simulation randomness, not security sensitive
	}

	return l.rnd.Float64()
}

var defaultRand = &lockedRand{} //nolint:gochecknoglobals

// SeedRandom makes every random decision that does not use an explicit source
// reproducible. It is meant to be called once by the host before machines are built.
func SeedRandom(seed uint64) {
	defaultRand.mu.Lock()
	defer defaultRand.mu.Unlock()

	defaultRand.rnd = NewRand(seed)
}

// NewRand returns a deterministic random source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // Simulation randomness
}

// uniformFrom returns a [0,1) generator reading from rnd, or the package default.
func uniformFrom(rnd *rand.Rand) func() float64 {
	if rnd == nil {
		return defaultRand.Float64
	}

	return rnd.Float64
}

// Float64 draws a uniform [0,1) value from the package default source.
func Float64() float64 {
	return defaultRand.Float64()
}
