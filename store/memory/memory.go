// Package memory is an in-process player store. It implements the Ledger and
// Profiles collaborators and is used for ephemeral runs and tests.
package memory

import (
	"sort"
	"sync"

	"github.com/nathoo/questbot/engine/progression"
	"github.com/nathoo/questbot/types"
)

type player struct {
	gold     int
	exp      int
	prestige int
	items    map[string]int
}

// Store keeps player records in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	players map[types.PlayerID]*player
}

// New creates an empty store.
func New() *Store {
	return &Store{players: map[types.PlayerID]*player{}}
}

func (s *Store) get(p types.PlayerID) *player {
	pl, ok := s.players[p]
	if !ok {
		pl = &player{items: map[string]int{}}
		s.players[p] = pl
	}
	return pl
}

// ApplyReward adds gold (prestige-amplified), exp and an optional item.
func (s *Store) ApplyReward(o types.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range o.Players {
		pl := s.get(p)
		pl.gold = progression.ClampGold(pl.gold + progression.AmplifyGold(o.Gold, pl.prestige))
		pl.exp += o.Exp
		if pl.exp < 0 {
			pl.exp = 0
		}
		if o.Item != "" {
			pl.items[o.Item]++
		}
	}
}

// ApplyPenalty removes gold and exp and takes the optional item.
func (s *Store) ApplyPenalty(o types.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range o.Players {
		pl := s.get(p)
		pl.gold = progression.ClampGold(pl.gold - o.Gold)
		pl.exp -= o.Exp
		if pl.exp < 0 {
			pl.exp = 0
		}
		if o.Item != "" {
			pl.items[o.Item]--
			if pl.items[o.Item] <= 0 {
				delete(pl.items, o.Item)
			}
		}
	}
}

// PlayerLevel returns p's level.
func (s *Store) PlayerLevel(p types.PlayerID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progression.Level(s.get(p).exp)
}

// Stats returns a snapshot of p's record.
func (s *Store) Stats(p types.PlayerID) types.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl := s.get(p)
	return snapshot(p, pl)
}

// Prestige spends gold and exp for a prestige level when p qualifies.
func (s *Store) Prestige(p types.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl := s.get(p)
	if !progression.CanPrestige(pl.exp, pl.gold) {
		return false
	}
	pl.exp -= progression.PrestigeExp()
	pl.gold -= progression.PrestigeGold
	pl.prestige++
	return true
}

// Set overwrites p's gold and exp. It is meant for seeding tests and demos.
func (s *Store) Set(p types.PlayerID, gold, exp int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl := s.get(p)
	pl.gold = gold
	pl.exp = exp
}

// Players lists known players, sorted.
func (s *Store) Players() []types.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.PlayerID, 0, len(s.players))
	for p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func snapshot(p types.PlayerID, pl *player) types.Stats {
	items := make([]string, 0, len(pl.items))
	for name := range pl.items {
		items = append(items, name)
	}
	sort.Strings(items)
	return types.Stats{
		Player:   p,
		Gold:     pl.gold,
		Exp:      pl.exp,
		Level:    progression.Level(pl.exp),
		Prestige: pl.prestige,
		Items:    items,
	}
}
