package encounters

import (
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

func doorsSpec() Spec {
	return Spec{
		Name:      "doors",
		PartySize: 1,
		Defaults: Tuning{
			"gold_reward":     150,
			"gold_variance":   27,
			"exp_reward":      3,
			"timeout_penalty": 400,
		},
		build: func(t Tuning) quest.Encounter { return doors{t: t} },
	}
}

type doors struct{ t Tuning }

func (doors) Name() string { return "doors" }

func (d doors) Begin(*quest.Quest) quest.SegmentFactory {
	return func(q *quest.Quest) quest.Segment {
		return &doorsStart{Phase: quest.Phase{Q: q}, t: d.t}
	}
}

type doorsStart struct {
	quest.Phase
	t Tuning
}

func (s *doorsStart) Bind(r *router.Router) {
	r.Handle("!left", s.open)
	r.Handle("!right", s.open)
}

func (s *doorsStart) Enter() {
	s.Q.Say("While running from a massive frost troll, %s finds two doors. Do you take the !left or the !right door?",
		s.Q.Party.Leader())
}

func (s *doorsStart) open(p types.PlayerID) {
	if !s.Member(p) {
		return
	}
	s.Resolve(func() {
		gold := s.Q.RNG.Vary(s.t.Int("gold_reward"), s.t.Int("gold_variance"))
		exp := s.t.Int("exp_reward")
		if s.Q.RNG.Coin() {
			s.Q.Say("%[1]s opens the door and discovers a treasure chest! %[1]s gains %[2]d gold and %[3]d exp.", p, gold, exp)
			s.Q.Reward([]types.PlayerID{p}, gold, exp)
		} else {
			s.Q.Say("%[1]s dashes through the door and is immediately swallowed by a giant poro. %[1]s loses %[2]d gold.", p, gold)
			s.Q.Penalize([]types.PlayerID{p}, gold, 0)
		}
		s.Q.Complete()
	})
}

func (s *doorsStart) Timeout() {
	s.Resolve(func() {
		leader := s.Q.Party.Leader()
		penalty := s.t.Int("timeout_penalty")
		s.Q.Say("%[1]s hesitated too long, and is nommed to death by the frost troll. RIP in peace. %[1]s loses %[2]d gold.",
			leader, penalty)
		s.Q.Penalize([]types.PlayerID{leader}, penalty, 0)
		s.Q.Complete()
	})
}
