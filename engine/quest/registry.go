package quest

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoVariant means no encounter is registered for a party size.
	ErrNoVariant = errors.New("no encounter variant registered for party size")
	// ErrInvalidPartySize rejects registrations for sizes below one.
	ErrInvalidPartySize = errors.New("party size must be at least 1")
)

// Registry maps party sizes to the encounter variants playable at that size.
// It is built once at startup and read-only afterwards.
type Registry struct {
	bySize map[int][]Encounter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bySize: map[int][]Encounter{}}
}

// Register adds enc as a variant for partySize.
func (r *Registry) Register(partySize int, enc Encounter) error {
	if partySize < 1 {
		return fmt.Errorf("register %q: %w", enc.Name(), ErrInvalidPartySize)
	}
	r.bySize[partySize] = append(r.bySize[partySize], enc)
	return nil
}

// Variants returns the encounters registered for partySize.
func (r *Registry) Variants(partySize int) []Encounter {
	return append([]Encounter(nil), r.bySize[partySize]...)
}

// Sizes returns every party size with at least one variant, ascending.
func (r *Registry) Sizes() []int {
	sizes := make([]int, 0, len(r.bySize))
	for n, vs := range r.bySize {
		if len(vs) > 0 {
			sizes = append(sizes, n)
		}
	}
	sort.Ints(sizes)
	return sizes
}

// MaxPartySize is the largest size with a registered variant, or 0.
func (r *Registry) MaxPartySize() int {
	largest := 0
	for n, vs := range r.bySize {
		if len(vs) > 0 && n > largest {
			largest = n
		}
	}
	return largest
}

// Choose picks a variant for partySize uniformly at random.
func (r *Registry) Choose(partySize int, rng *RNG) (Encounter, error) {
	vs := r.bySize[partySize]
	if len(vs) == 0 {
		return nil, fmt.Errorf("party of %d: %w", partySize, ErrNoVariant)
	}
	return vs[rng.Pick(len(vs))], nil
}
