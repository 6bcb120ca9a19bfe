package encounters

import (
	"github.com/nathoo/questbot/engine/progression"
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

func monsterSpec() Spec {
	return Spec{
		Name:      "monster",
		PartySize: 1,
		Defaults: Tuning{
			"safe_gold":        75,
			"safe_variance":    21,
			"safe_exp":         2,
			"risky_penalty":    200,
			"risky_reward":     300,
			"risky_reward_big": 400,
			"risky_variance":   42,
			"risky_exp":        4,
			"risky_exp_big":    3,
			"timeout_penalty":  300,
			"monster_level":    12,
			"level_variance":   15,
		},
		build: func(t Tuning) quest.Encounter { return monster{t: t} },
	}
}

type monster struct{ t Tuning }

func (monster) Name() string { return "monster" }

func (m monster) Begin(*quest.Quest) quest.SegmentFactory {
	return func(q *quest.Quest) quest.Segment {
		return &monsterStart{Phase: quest.Phase{Q: q}, t: m.t}
	}
}

type monsterStart struct {
	quest.Phase
	t Tuning
}

func (s *monsterStart) Bind(r *router.Router) {
	r.Handle("!attack", s.attack)
	r.Handle("!flee", s.flee)
}

func (s *monsterStart) Enter() {
	s.Q.Say("In the treasure room of an abandoned ruin, a strange Void creature materializes in front of %s. Do you !attack or !flee?",
		s.Q.Party.Leader())
}

func (s *monsterStart) attack(p types.PlayerID) {
	if !s.Member(p) {
		return
	}
	s.Resolve(func() {
		rng := s.Q.RNG
		level := rng.Vary(s.Q.Level(p), s.t.Int("level_variance"))
		variance := s.t.Int("risky_variance")
		switch {
		case level < -2:
			gold := rng.Vary(s.t.Int("risky_penalty"), variance)
			s.Q.Say("%[1]s never stood a chance, getting immediately suppressed and mobbed to death by Voidlings without so much as a chance to twitch. Maybe try leveling up! %[1]s loses %[2]d gold.", p, gold)
			s.Q.Penalize([]types.PlayerID{p}, gold, 0)
		case level < s.t.Int("monster_level"):
			gold := rng.Vary(s.t.Int("risky_penalty"), variance)
			s.Q.Say("%[1]s charges towards the Void creature and gets immediately vaporized by lazers. Pew Pew! %[1]s loses %[2]d gold.", p, gold)
			s.Q.Penalize([]types.PlayerID{p}, gold, 0)
		case level < progression.LevelCap+s.t.Int("level_variance")/3:
			gold := rng.Vary(s.t.Int("risky_reward"), variance)
			exp := s.t.Int("risky_exp")
			s.Q.Say("%[1]s manages to slay the Void creature after a long struggle and some celebratory crumpets. %[1]s gains %[2]d gold and %[3]d exp.", p, gold, exp)
			s.Q.Reward([]types.PlayerID{p}, gold, exp)
		default:
			gold := rng.Vary(s.t.Int("risky_reward_big"), variance)
			exp := s.t.Int("risky_exp_big")
			s.Q.Say("%[1]s dismembers the creature with almost surgical precision, and even discovers a new class of organ in the process. Hurrah! %[1]s gains %[2]d gold and %[3]d exp.", p, gold, exp)
			s.Q.Reward([]types.PlayerID{p}, gold, exp)
		}
		s.Q.Complete()
	})
}

func (s *monsterStart) flee(p types.PlayerID) {
	if !s.Member(p) {
		return
	}
	s.Resolve(func() {
		gold := s.Q.RNG.Vary(s.t.Int("safe_gold"), s.t.Int("safe_variance"))
		if s.Q.RNG.Coin() {
			exp := s.t.Int("safe_exp")
			s.Q.Say("%[1]s manages to bravely run away in the face of overwhelming power, and even manages to snatch a few coins on the way out! %[1]s gains %[2]d gold and %[3]d exp.", p, gold, exp)
			s.Q.Reward([]types.PlayerID{p}, gold, exp)
		} else {
			s.Q.Say("%[1]s tries to run away but is torn to shreds by blade-like arms. Owie! %[1]s loses %[2]d gold.", p, gold)
			s.Q.Penalize([]types.PlayerID{p}, gold, 0)
		}
		s.Q.Complete()
	})
}

func (s *monsterStart) Timeout() {
	s.Resolve(func() {
		leader := s.Q.Party.Leader()
		penalty := s.t.Int("timeout_penalty")
		s.Q.Say("%[1]s makes no motion to attack or flee, and instead stands motionless in the face of the enemy. %[1]s becomes covered by caustic spittle, digested alive, and slowly devoured. %[1]s loses %[2]d gold.",
			leader, penalty)
		s.Q.Penalize([]types.PlayerID{leader}, penalty, 0)
		s.Q.Complete()
	})
}
