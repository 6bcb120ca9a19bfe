// Package encounters holds the built-in scripted encounters. Each encounter
// declares its party size and numeric tuning; content files may override the
// tuning or disable an encounter before Register runs.
package encounters

import (
	"fmt"
	"math"
	"sort"

	"github.com/nathoo/questbot/engine/quest"
)

// Tuning is an encounter's numeric knobs, keyed by snake_case name.
type Tuning map[string]float64

// Int returns a knob rounded to the nearest integer.
func (t Tuning) Int(key string) int {
	return int(math.Round(t[key]))
}

// Float returns a knob as-is.
func (t Tuning) Float(key string) float64 {
	return t[key]
}

func (t Tuning) with(over Tuning) Tuning {
	out := make(Tuning, len(t))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Keys returns the knob names, sorted.
func (t Tuning) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Spec describes one catalogue entry.
type Spec struct {
	Name      string
	PartySize int
	Defaults  Tuning
	build     func(Tuning) quest.Encounter
}

// Build creates the encounter with over applied on top of the defaults.
func (s Spec) Build(over Tuning) quest.Encounter {
	return s.build(s.Defaults.with(over))
}

// Override is what content may change about one encounter.
type Override struct {
	Disabled bool
	Tuning   Tuning
}

// Catalog lists every built-in encounter in party-size order.
func Catalog() []Spec {
	return []Spec{
		doorsSpec(),
		monsterSpec(),
		duelSpec(),
		archerSpec(),
		prisonSpec(),
		gatesSpec(),
		runSpec(),
	}
}

// Lookup finds a catalogue entry by name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Catalog() {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// RegisterFunc adds one encounter for a party size. Engine.RegisterVariant
// and Registry.Register both fit.
type RegisterFunc func(partySize int, enc quest.Encounter) error

// Register passes every enabled encounter to register and returns how many
// were registered.
func Register(register RegisterFunc, overrides map[string]Override) (int, error) {
	n := 0
	for _, s := range Catalog() {
		o := overrides[s.Name]
		if o.Disabled {
			continue
		}
		if err := register(s.PartySize, s.Build(o.Tuning)); err != nil {
			return n, fmt.Errorf("encounter %s: %w", s.Name, err)
		}
		n++
	}
	return n, nil
}

// names renders the party for narration.
func names(q *quest.Quest) string {
	return quest.ListOut(quest.Names(q.Party), "", "")
}
