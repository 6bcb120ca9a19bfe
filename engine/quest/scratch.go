package quest

import "github.com/nathoo/questbot/types"

// Threshold maps a party size to the number of recorded actions that
// resolves an all-required-acted phase early.
type Threshold func(partySize int) int

// AllOf requires every party member to act.
func AllOf(partySize int) int {
	return partySize
}

// AllButOne lets the last straggler never act. A single-member party still
// needs its one action.
func AllButOne(partySize int) int {
	if partySize <= 1 {
		return partySize
	}
	return partySize - 1
}

// Exactly returns a fixed threshold.
func Exactly(n int) Threshold {
	return func(int) int { return n }
}

// Tally records at most one choice per player, in acting order.
type Tally struct {
	order   []types.PlayerID
	choices map[types.PlayerID]string
}

func newTally() *Tally {
	return &Tally{choices: map[types.PlayerID]string{}}
}

// Record stores p's choice. It reports false when p already acted.
func (t *Tally) Record(p types.PlayerID, choice string) bool {
	if _, ok := t.choices[p]; ok {
		return false
	}
	t.choices[p] = choice
	t.order = append(t.order, p)
	return true
}

// Acted reports whether p has a recorded choice.
func (t *Tally) Acted(p types.PlayerID) bool {
	_, ok := t.choices[p]
	return ok
}

// Choice returns p's recorded choice.
func (t *Tally) Choice(p types.PlayerID) (string, bool) {
	c, ok := t.choices[p]
	return c, ok
}

// Players returns the acting players in the order they acted.
func (t *Tally) Players() []types.PlayerID {
	return append([]types.PlayerID(nil), t.order...)
}

// Len returns the number of recorded actions.
func (t *Tally) Len() int {
	return len(t.order)
}

// Distinct returns the distinct choices in first-seen order.
func (t *Tally) Distinct() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range t.order {
		c := t.choices[p]
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Missing returns the members of party with no recorded choice.
func (t *Tally) Missing(party types.Party) []types.PlayerID {
	var out []types.PlayerID
	for _, p := range party {
		if !t.Acted(p) {
			out = append(out, p)
		}
	}
	return out
}

// Scratch is the per-quest bookkeeping area shared by its segments.
type Scratch struct {
	tallies map[string]*Tally
	values  map[string]any
}

// NewScratch creates an empty scratch area.
func NewScratch() *Scratch {
	return &Scratch{
		tallies: map[string]*Tally{},
		values:  map[string]any{},
	}
}

// Tally returns the named tally, creating it on first use.
func (s *Scratch) Tally(name string) *Tally {
	t, ok := s.tallies[name]
	if !ok {
		t = newTally()
		s.tallies[name] = t
	}
	return t
}

// Put stores an arbitrary value.
func (s *Scratch) Put(key string, v any) {
	s.values[key] = v
}

// Get returns a stored value.
func (s *Scratch) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// String returns a stored string value, or "".
func (s *Scratch) String(key string) string {
	v, _ := s.values[key].(string)
	return v
}

// Actions counts recorded choices across every tally.
func (s *Scratch) Actions() int {
	n := 0
	for _, t := range s.tallies {
		n += t.Len()
	}
	return n
}
