package encounters

import (
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

var gateSides = []string{"north", "south", "east", "west"}

func gatesSpec() Spec {
	return Spec{
		Name:      "gates",
		PartySize: 4,
		Defaults: Tuning{
			"gold_reward":     250,
			"gold_penalty":    75,
			"gold_reward_big": 400,
			"gold_variance":   35,
			"exp_reward":      3,
			"exp_reward_big":  5,
		},
		build: func(t Tuning) quest.Encounter { return gates{t: t} },
	}
}

type gates struct{ t Tuning }

func (gates) Name() string { return "gates" }

func (g gates) Begin(*quest.Quest) quest.SegmentFactory {
	return func(q *quest.Quest) quest.Segment {
		return &gatesStart{Phase: quest.Phase{Q: q}, t: g.t}
	}
}

// gatesStart needs every member to guard a side; all four sides held is an
// early win.
type gatesStart struct {
	quest.Phase
	t Tuning
}

func (s *gatesStart) Bind(r *router.Router) {
	for _, side := range gateSides {
		r.Handle("!"+side, func(p types.PlayerID) { s.guard(p, side) })
	}
}

func (s *gatesStart) Enter() {
	s.Q.Say("%s are defending an Avarosan town from a Frostguard invasion! Split up and defend the !north, !south, !east, and !west gates!",
		names(s.Q))
}

func (s *gatesStart) guards() *quest.Tally {
	return s.Q.Scratch.Tally("gates")
}

func (s *gatesStart) guard(p types.PlayerID, side string) {
	if !s.Member(p) || !s.guards().Record(p, side) {
		return
	}
	switch {
	case len(s.guards().Distinct()) == len(gateSides):
		s.Resolve(s.held)
	case s.guards().Len() >= quest.AllOf(len(s.Q.Party)):
		s.Timeout()
	}
}

func (s *gatesStart) held() {
	gold := s.Q.RNG.Vary(s.t.Int("gold_reward"), s.t.Int("gold_variance"))
	exp := s.t.Int("exp_reward")
	s.Q.Say("%s have successfully held the gates, huzzah! %d gold and %d exp for all!", names(s.Q), gold, exp)
	s.Q.Reward(s.Q.Party, gold, exp)
	s.Q.Complete()
}

func (s *gatesStart) Timeout() {
	s.Resolve(func() {
		variance := s.t.Int("gold_variance")
		if s.guards().Len() == 0 {
			gold := s.Q.RNG.Vary(s.t.Int("gold_reward_big"), variance)
			exp := s.t.Int("exp_reward_big")
			s.Q.Say("%s have secretly managed to collaborate with the Frostguard raiders, letting them all in without any opposition. For your devious work, everyone is rewarded with %d gold and %d exp!",
				names(s.Q), gold, exp)
			s.Q.Reward(s.Q.Party, gold, exp)
			s.Q.Complete()
			return
		}

		sides := s.guards().Distinct()
		word := "gates"
		if len(sides) == 1 {
			word = "gate"
		}
		gold := s.Q.RNG.Vary(s.t.Int("gold_penalty"), variance)
		s.Q.Say("%s only managed to defend the %s %s. How pitiful. The Frostguard storm the town and murdalize all the people. Everyone loses %d gold.",
			names(s.Q), quest.ListOut(sides, "", ""), word, gold)
		if deserters := s.guards().Missing(s.Q.Party); len(deserters) > 0 {
			s.Q.Say("%s never showed up at any gate.", quest.ListOut(quest.Names(deserters), "", ""))
		}
		s.Q.Penalize(s.Q.Party, gold, 0)
		s.Q.Complete()
	})
}
