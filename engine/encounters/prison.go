package encounters

import (
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

func prisonSpec() Spec {
	return Spec{
		Name:      "prison",
		PartySize: 3,
		Defaults: Tuning{
			"gold_reward":       350,
			"gold_penalty":      50,
			"gold_penalty_wait": 120,
			"gold_variance":     26,
			"exp_reward":        3,
		},
		build: func(t Tuning) quest.Encounter { return prison{t: t} },
	}
}

type prison struct{ t Tuning }

func (prison) Name() string { return "prison" }

func (p prison) Begin(*quest.Quest) quest.SegmentFactory {
	return func(q *quest.Quest) quest.Segment {
		return &prisonStart{Phase: quest.Phase{Q: q}, t: p.t}
	}
}

// prisonStart lets only the leader pick one prisoner to save. The trigger
// for each prisoner is "!" followed by their name.
type prisonStart struct {
	quest.Phase
	t Tuning
}

func (s *prisonStart) Bind(r *router.Router) {
	for _, m := range s.Q.Party[1:] {
		saved := m
		r.Handle("!"+string(saved), func(p types.PlayerID) { s.pick(p, saved) })
	}
}

func (s *prisonStart) Enter() {
	s.Q.Say("In the Castle of the Mad Yordle, %s stumbles across a prison full of comrades. But the castle is collapsing with only time to save one! Do you save %s?",
		s.Q.Party.Leader(), quest.ListOut(quest.Names(s.Q.Party[1:]), "or", "!"))
}

func (s *prisonStart) pick(p, saved types.PlayerID) {
	if p != s.Q.Party.Leader() {
		return
	}
	s.Resolve(func() {
		variance := s.t.Int("gold_variance")
		gained := s.Q.RNG.Vary(s.t.Int("gold_reward"), variance)
		lost := s.Q.RNG.Vary(s.t.Int("gold_penalty"), variance)
		exp := s.t.Int("exp_reward")
		forsaken := s.Q.Except(p, saved)
		s.Q.Say("%[1]s decided to save %[2]s! %[3]s are left behind and crushed under the rubble of the collapsing castle, losing %[4]d gold. %[1]s and %[2]s gain %[5]d gold and %[6]d exp!",
			p, saved, quest.ListOut(quest.Names(forsaken), "", ""), lost, gained, exp)
		s.Q.Reward([]types.PlayerID{p, saved}, gained, exp)
		s.Q.Penalize(forsaken, lost, 0)
		s.Q.Complete()
	})
}

func (s *prisonStart) Timeout() {
	s.Resolve(func() {
		lost := s.Q.RNG.Vary(s.t.Int("gold_penalty_wait"), s.t.Int("gold_variance"))
		s.Q.Say("%s took too long deciding who to save, so everyone ended up crushed by the collapsing castle. %s all lose %d gold. Ouch.",
			s.Q.Party.Leader(), names(s.Q), lost)
		s.Q.Penalize(s.Q.Party, lost, 0)
		s.Q.Complete()
	})
}
