// Package seedsource provides the seed sequence generators the simulation
// driver threads through factory and agent calls. Deterministic is the
// default: given the same initial seed it reproduces the same sequence, the
// property the whole-run reproducibility guarantee (spec section 8, property
// 7) depends on. TrueRandom is an explicitly opt-in alternative that trades
// that guarantee for non-reproducible entropy — see truerandom.go.
package seedsource

import "math/rand"

// Deterministic is a math/rand-seeded sequence of derived seeds. It
// satisfies uat.SeedSource by structural typing (Next() int64) so this
// package never needs to import the engine.
type Deterministic struct {
	rng *rand.Rand
}

// NewDeterministic creates a seed sequence rooted at seed. Two Deterministic
// sources built from the same seed produce identical sequences.
func NewDeterministic(seed int64) *Deterministic {
	return &Deterministic{rng: rand.New(rand.NewSource(seed))}
}

// Next returns the next derived seed in the sequence.
func (d *Deterministic) Next() int64 {
	return d.rng.Int63()
}
