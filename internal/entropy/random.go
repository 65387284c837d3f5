// Package entropy provides the simulation's deterministic random stream.
// Every stochastic decision (breakdowns, macro phase jitter, AI tie-breaks)
// draws from one seeded stream in a fixed call order, so identical seeds
// replay identical worlds. Nothing in the simulation core may use global
// math/rand or time-based entropy.
package entropy

import "math/rand"

// Stream is a seeded random source. It is not safe for concurrent use;
// the scheduler owns it and all draws happen on the simulation goroutine.
type Stream struct {
	rng  *rand.Rand
	seed int64
}

// NewStream creates a deterministic stream from a seed.
func NewStream(seed int64) *Stream {
	return &Stream{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Float returns a float64 in [0, 1).
func (s *Stream) Float() float64 {
	return s.rng.Float64()
}

// Intn returns an int in [0, n).
func (s *Stream) Intn(n int) int {
	return s.rng.Intn(n)
}

// Chance returns true with probability p (clamped to [0, 1]).
func (s *Stream) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.rng.Float64() < p
}

// Fork derives an independent deterministic stream, used to give a
// subsystem its own draw order without perturbing the parent. The label
// is mixed with the golden-ratio constant in uint64 space; the constant
// does not fit in int64.
func (s *Stream) Fork(label int64) *Stream {
	return NewStream(s.seed ^ int64(uint64(label)*0x9e3779b97f4a7c15))
}
