package encounters

import (
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

func archerSpec() Spec {
	return Spec{
		Name:      "archer",
		PartySize: 2,
		Defaults: Tuning{
			"gold_reward":        190,
			"gold_penalty":       315,
			"gold_reward_big":    240,
			"gold_penalty_small": 75,
			"gold_penalty_wait":  150,
			"gold_variance":      22,
			"exp_reward":         2,
		},
		build: func(t Tuning) quest.Encounter { return archer{t: t} },
	}
}

type archer struct{ t Tuning }

func (archer) Name() string { return "archer" }

func (a archer) Begin(*quest.Quest) quest.SegmentFactory {
	return func(q *quest.Quest) quest.Segment {
		return &archerStart{Phase: quest.Phase{Q: q}, t: a.t}
	}
}

type archerStart struct {
	quest.Phase
	t Tuning
}

func (s *archerStart) Bind(r *router.Router) {
	r.Handle("!left", func(p types.PlayerID) { s.move(p, "left") })
	r.Handle("!right", func(p types.PlayerID) { s.move(p, "right") })
}

func (s *archerStart) Enter() {
	s.Q.Say("%s and %s are pinned down by a Noxian archer! One of you go !left and the other go !right to flank him!",
		s.Q.Party[0], s.Q.Party[1])
}

func (s *archerStart) flank() *quest.Tally {
	return s.Q.Scratch.Tally("flank")
}

func (s *archerStart) move(p types.PlayerID, dir string) {
	if !s.Member(p) || !s.flank().Record(p, dir) {
		return
	}
	if s.flank().Len() >= quest.AllOf(len(s.Q.Party)) {
		s.Resolve(s.settle)
	}
}

func (s *archerStart) settle() {
	a, b := s.Q.Party[0], s.Q.Party[1]
	variance := s.t.Int("gold_variance")
	if len(s.flank().Distinct()) == 1 {
		gold := s.Q.RNG.Vary(s.t.Int("gold_penalty"), variance)
		s.Q.Say("%s and %s apparently suck at coordination and both ended up going the same direction. At least you got the archer an achievement for a double kill with a single arrow! Both of you lose %d gold.",
			a, b, gold)
		s.Q.Penalize(s.Q.Party, gold, 0)
	} else {
		gold := s.Q.RNG.Vary(s.t.Int("gold_reward"), variance)
		exp := s.t.Int("exp_reward")
		s.Q.Say("%s and %s skillfully flank the archer and eviscerate him! Easy games easy life. Both of you gain %d gold and %d exp!",
			a, b, gold, exp)
		s.Q.Reward(s.Q.Party, gold, exp)
	}
	s.Q.Complete()
}

func (s *archerStart) Timeout() {
	s.Resolve(func() {
		variance := s.t.Int("gold_variance")
		acted := s.flank().Players()
		if len(acted) == 1 {
			mover := acted[0]
			decoy := quest.Other(s.Q.Party, mover)
			gained := s.Q.RNG.Vary(s.t.Int("gold_reward_big"), variance)
			lost := s.Q.RNG.Vary(s.t.Int("gold_penalty_small"), variance)
			exp := s.t.Int("exp_reward")
			s.Q.Say("%[1]s didn't move and just used %[2]s as a decoy to distract the archer while making off with the loot! What a scoundrel! %[1]s gains %[3]d exp and %[4]d gold while %[2]s loses %[5]d gold.",
				mover, decoy, exp, gained, lost)
			s.Q.Reward([]types.PlayerID{mover}, gained, exp)
			s.Q.Penalize([]types.PlayerID{decoy}, lost, 0)
		} else {
			gold := s.Q.RNG.Vary(s.t.Int("gold_penalty_wait"), variance)
			s.Q.Say("Neither %s nor %s want to make a move, and eventually both get picked off like sitting ducks. Rekt. Both lose %d gold.",
				s.Q.Party[0], s.Q.Party[1], gold)
			s.Q.Penalize(s.Q.Party, gold, 0)
		}
		s.Q.Complete()
	})
}
