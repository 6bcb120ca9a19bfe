package quest

import (
	"math/rand"
)

// Source produces uniformly distributed integers in [0, n).
type Source interface {
	Intn(n int) int
}

// RNG wraps a Source with position tracking. Every stochastic decision an
// encounter makes goes through one of these, so tests can swap in a
// scripted source.
type RNG struct {
	src Source
	pos int64
}

// NewRNG creates a deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		src:  rand.New(rand.NewSource(seed)),
	}
}

// NewRNGFrom wraps an arbitrary source.
func NewRNGFrom(src Source) *RNG {
	return &RNG{src: src}
}

// Intn returns an integer in [0, n). n <= 0 returns 0 without consuming a draw.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.pos++
	return r.src.Intn(n)
}

// Between returns an integer in [lo, hi].
func (r *RNG) Between(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Vary returns base plus a uniform offset in [-spread, spread].
func (r *RNG) Vary(base, spread int) int {
	if spread <= 0 {
		return base
	}
	return base + r.Between(-spread, spread)
}

// Coin returns true half the time.
func (r *RNG) Coin() bool {
	return r.Intn(2) == 1
}

// Chance returns true with probability p (0..1), at per-mille resolution.
func (r *RNG) Chance(p float64) bool {
	return float64(r.Intn(1000)) < p*1000
}

// Pick returns an index in [0, n).
func (r *RNG) Pick(n int) int {
	return r.Intn(n)
}

// Position returns the number of draws made since creation. Quest logs carry
// it so a run can be lined up with the seed the engine logged.
func (r *RNG) Position() int64 {
	return r.pos
}

// Sequence is a Source that replays fixed values in order, wrapping around.
// Each value is reduced modulo n, so Sequence(1) makes Coin return true and
// Intn(n) return 1 for every n > 1.
type Sequence struct {
	vals []int
	i    int
}

// NewSequence creates a replaying source. An empty sequence always yields 0.
func NewSequence(vals ...int) *Sequence {
	return &Sequence{vals: vals}
}

// Intn implements Source.
func (s *Sequence) Intn(n int) int {
	if len(s.vals) == 0 || n <= 0 {
		return 0
	}
	v := s.vals[s.i%len(s.vals)]
	s.i++
	if v < 0 {
		v = -v
	}
	return v % n
}
