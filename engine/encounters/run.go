package encounters

import (
	"fmt"

	"github.com/nathoo/questbot/engine/progression"
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

// EscapeWords are the candidate escape triggers for the run encounter.
var EscapeWords = []string{"!run", "!flee", "!hide", "!escape", "!stealth"}

var bossSides = []string{"front", "left", "right"}

const (
	runMonster = "Vilemaw"
	runDrop    = "Massive Fang"
)

func runSpec() Spec {
	return Spec{
		Name:      "run",
		PartySize: 5,
		Defaults: Tuning{
			"gold_reward":        160,
			"gold_penalty_small": 80,
			"gold_penalty":       160,
			"gold_reward_medium": 340,
			"gold_reward_big":    440,
			"gold_variance":      22,
			"exp_reward":         2,
			"exp_reward_medium":  4,
			"exp_reward_big":     6,
			"drop_chance":        0.2,
			"monster_level":      progression.LevelCap * 3,
			"level_variance":     progression.LevelCap / 2,
		},
		build: func(t Tuning) quest.Encounter { return run{t: t} },
	}
}

type run struct{ t Tuning }

func (run) Name() string { return "run" }

func (r run) Begin(q *quest.Quest) quest.SegmentFactory {
	q.Scratch.Put("escape_word", EscapeWords[q.RNG.Pick(len(EscapeWords))])
	return func(q *quest.Quest) quest.Segment {
		return &runEscape{Phase: quest.Phase{Q: q}, t: r.t, word: q.Scratch.String("escape_word")}
	}
}

// runEscape resolves once all but one member escaped. If nobody escapes in
// time the party is forced into the boss battle.
type runEscape struct {
	quest.Phase
	t    Tuning
	word string
}

func (s *runEscape) Bind(r *router.Router) {
	r.Handle(s.word, s.escape)
}

func (s *runEscape) Enter() {
	s.Q.Say("%s are all running away from a rampaging %s! Quick, type %s to get away!", names(s.Q), runMonster, s.word)
}

func (s *runEscape) escaped() *quest.Tally {
	return s.Q.Scratch.Tally("escaped")
}

func (s *runEscape) escape(p types.PlayerID) {
	if !s.Member(p) || !s.escaped().Record(p, "escaped") {
		return
	}
	if s.escaped().Len() >= quest.AllButOne(len(s.Q.Party)) {
		s.Timeout()
	}
}

func (s *runEscape) Timeout() {
	s.Resolve(func() {
		if s.escaped().Len() == 0 {
			s.Q.Advance(func(q *quest.Quest) quest.Segment {
				return &runBoss{Phase: quest.Phase{Q: q}, t: s.t}
			})
			return
		}
		escaped := s.escaped().Players()
		caught := s.escaped().Missing(s.Q.Party)
		variance := s.t.Int("gold_variance")
		gained := s.Q.RNG.Vary(s.t.Int("gold_reward"), variance)
		lost := s.Q.RNG.Vary(s.t.Int("gold_penalty"), variance)
		exp := s.t.Int("exp_reward")
		s.Q.Say("In the end, %[1]s managed to escape from %[2]s unscathed! %[2]s happily munches on %[3]s with terrifying crunches, snaps, and some odd purring noises. Those that escaped gain %[4]d gold and %[5]d exp, while those left behind lose %[6]d gold.",
			quest.ListOut(quest.Names(escaped), "", ""), runMonster, quest.ListOut(quest.Names(caught), "", ""), gained, exp, lost)
		s.Q.Reward(escaped, gained, exp)
		s.Q.Penalize(caught, lost, 0)
		s.Q.Complete()
	})
}

// runBoss needs every member to attack; all three sides covered triggers the
// level-scaled battle roll.
type runBoss struct {
	quest.Phase
	t Tuning
}

func (s *runBoss) Bind(r *router.Router) {
	for _, side := range bossSides {
		r.Handle("!"+side, func(p types.PlayerID) { s.attack(p, side) })
	}
}

func (s *runBoss) Enter() {
	s.Q.Say("%s stand their ground and bravely decide to fight %s! Surround and attack the !front, !left, and !right to see if you are strong enough to defeat this massive foe!",
		names(s.Q), runMonster)
}

func (s *runBoss) attackers() *quest.Tally {
	return s.Q.Scratch.Tally("attackers")
}

func (s *runBoss) attack(p types.PlayerID, side string) {
	if !s.Member(p) || !s.attackers().Record(p, side) {
		return
	}
	if s.attackers().Len() >= quest.AllOf(len(s.Q.Party)) {
		s.Timeout()
	}
}

func (s *runBoss) surrounded() bool {
	return len(s.attackers().Distinct()) == len(bossSides)
}

func (s *runBoss) battle() {
	rng := s.Q.RNG
	attackers := s.attackers().Players()
	cowards := s.attackers().Missing(s.Q.Party)
	variance := s.t.Int("gold_variance")
	monsterLevel := s.t.Int("monster_level")

	level := rng.Vary(s.Q.SumLevels(attackers), s.t.Int("level_variance"))
	penalty := rng.Vary(s.t.Int("gold_penalty_small"), variance)
	stolen := rng.Vary(s.t.Int("gold_reward_medium"), variance)

	cowardNote := ""
	if len(cowards) > 0 {
		cowardNote = fmt.Sprintf(" %s slipped away while pocketing %d gold in the confusion.",
			quest.ListOut(quest.Names(cowards), "", ""), stolen)
	}

	switch {
	case level < monsterLevel/2:
		s.Q.Say("%s barely managed to surround %s, but they were swatted down like flies against a giant spider with 8 flyswatters. Each lose %d gold.%s",
			quest.ListOut(quest.Names(attackers), "", ""), runMonster, penalty, cowardNote)
		s.Q.Penalize(attackers, penalty, 0)
		s.Q.Reward(cowards, stolen, s.t.Int("exp_reward_medium"))
	case level < monsterLevel:
		s.Q.Say("%s surrounded %s and seemed like they had a chance to win, but ended up tactically repositioning somewhere...anywhere else. Each lose %d gold.%s",
			quest.ListOut(quest.Names(attackers), "", ""), runMonster, penalty, cowardNote)
		s.Q.Penalize(attackers, penalty, 0)
		s.Q.Reward(cowards, stolen, s.t.Int("exp_reward_medium"))
	default:
		gold := rng.Vary(s.t.Int("gold_reward_big"), variance)
		exp := s.t.Int("exp_reward_big")
		s.Q.Say("%[1]s gracefully and brilliantly surrounded %[2]s, launching devastating blow after blow in a coordinated joint assault! %[2]s has been defeated! Woohoo! Everyone gains %[3]d gold and %[4]d exp!",
			names(s.Q), runMonster, gold, exp)
		s.Q.Reward(s.Q.Party, gold, exp)
		s.Q.DropItem(attackers, runDrop, s.t.Float("drop_chance"),
			fmt.Sprintf("After the battle, you manage to salvage something valuable from the corpse of %s!", runMonster))
	}
	s.Q.Complete()
}

func (s *runBoss) Timeout() {
	s.Resolve(func() {
		if s.surrounded() {
			s.battle()
			return
		}
		gold := s.Q.RNG.Vary(s.t.Int("gold_penalty"), s.t.Int("gold_variance"))
		if sides := s.attackers().Distinct(); len(sides) > 0 {
			s.Q.Say("%s just attacked %s, so %s tore everyone to shreds. And then shredded those shreds. Everyone loses %d gold.",
				names(s.Q), quest.ListOut(sides, "", "the "), runMonster, gold)
		} else {
			s.Q.Say("%s mistook stupidity for bravery, and rectified the mistake by promptly devouring %s. Everyone loses %d gold.",
				runMonster, names(s.Q), gold)
		}
		s.Q.Penalize(s.Q.Party, gold, 0)
		s.Q.Complete()
	})
}
