package encounters

import (
	"time"

	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

// DuelWords are the candidate duel triggers. One is drawn per duel so the
// winning command cannot be typed ahead of time.
var DuelWords = []string{"!attack", "!fight", "!strike", "!charge"}

func duelSpec() Spec {
	return Spec{
		Name:      "duel",
		PartySize: 2,
		Defaults: Tuning{
			"gold_reward":   300,
			"gold_variance": 27,
			"exp_reward":    3,
			"pacifist_exp":  5,
		},
		build: func(t Tuning) quest.Encounter { return duel{t: t} },
	}
}

type duel struct{ t Tuning }

func (duel) Name() string { return "duel" }

func (d duel) Begin(q *quest.Quest) quest.SegmentFactory {
	q.Scratch.Put("duel_word", DuelWords[q.RNG.Pick(len(DuelWords))])
	return func(q *quest.Quest) quest.Segment {
		return &duelStart{Phase: quest.Phase{Q: q}, t: d.t, word: q.Scratch.String("duel_word")}
	}
}

type duelStart struct {
	quest.Phase
	t    Tuning
	word string
}

func (s *duelStart) Bind(r *router.Router) {
	r.Handle(s.word, s.strike)
}

func (s *duelStart) Enter() {
	s.Q.Say("%s and %s end up in a duel over some loot! The first to %s will be the victor!",
		s.Q.Party[0], s.Q.Party[1], s.word)
}

func (s *duelStart) strike(p types.PlayerID) {
	if !s.Member(p) {
		return
	}
	s.Resolve(func() {
		loser := quest.Other(s.Q.Party, p)
		gold := s.Q.RNG.Vary(s.t.Int("gold_reward"), s.t.Int("gold_variance"))
		exp := s.t.Int("exp_reward")
		s.Q.Say("%[1]s was quicker on the draw! There's nothing left of %[2]s but a smoking pile of flesh. %[1]s gains %[3]d exp and steals %[4]d gold from %[2]s!",
			p, loser, exp, gold)
		s.Q.Reward([]types.PlayerID{p}, gold, exp)
		s.Q.Penalize([]types.PlayerID{loser}, gold, 0)
		s.Q.Complete()
	})
}

func (s *duelStart) Timeout() {
	s.Resolve(func() {
		s.Q.Advance(func(q *quest.Quest) quest.Segment {
			return &duelPacifists{Phase: quest.Phase{Q: q}, t: s.t}
		})
	})
}

// duelPacifists settles a duel nobody fought.
type duelPacifists struct {
	quest.Phase
	t Tuning
}

func (s *duelPacifists) Duration() time.Duration { return 0 }

func (s *duelPacifists) Enter() {
	exp := s.t.Int("pacifist_exp")
	s.Q.Say("%s and %s are apparently pacifists and neither raises a weapon. Both gain %d exp!",
		s.Q.Party[0], s.Q.Party[1], exp)
	s.Q.Reward(s.Q.Party, 0, exp)
	s.Q.Complete()
}

func (s *duelPacifists) Timeout() { s.Resolve(s.Q.Complete) }
