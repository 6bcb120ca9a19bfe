package encounters

import (
	"strings"
	"testing"
	"time"

	"github.com/nathoo/questbot/engine/chattest"
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/engine/schedule"
	"github.com/nathoo/questbot/store/memory"
	"github.com/nathoo/questbot/types"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type table struct {
	t     *testing.T
	chat  *chattest.Recorder
	store *memory.Store
	sched *schedule.Scheduler
	root  *router.Router
	q     *quest.Quest
	done  int
}

// zeros makes every draw return 0: Coin is false, Vary returns base-spread,
// Pick returns the first candidate and any Chance above zero succeeds.
func zeros() *quest.RNG { return quest.NewRNGFrom(quest.NewSequence(0)) }

// ones makes Coin true and Vary return base-spread+1.
func ones() *quest.RNG { return quest.NewRNGFrom(quest.NewSequence(1)) }

func newTable(t *testing.T, name string, rng *quest.RNG, party ...types.PlayerID) *table {
	t.Helper()
	spec, ok := Lookup(name)
	if !ok {
		t.Fatalf("unknown encounter %q", name)
	}
	tb := &table{
		t:     t,
		chat:  &chattest.Recorder{},
		store: memory.New(),
		sched: schedule.New(epoch, nil),
		root:  router.New("session", nil),
	}
	for _, p := range party {
		tb.store.Set(p, 1000, 0)
	}
	enc := spec.Build(nil)
	tb.q = quest.New(enc, party, quest.Env{
		Channel:       "#test",
		Messenger:     tb.chat,
		Ledger:        tb.store,
		Scheduler:     tb.sched,
		RNG:           rng,
		PhaseDuration: 12 * time.Second,
	}, func(*quest.Quest) { tb.done++ })
	tb.root.AddChild(tb.q.Router())
	tb.q.Start()
	return tb
}

func (tb *table) say(p types.PlayerID, text string) {
	tb.root.TryDispatch(p, text)
}

func (tb *table) after(d time.Duration) {
	tb.sched.Tick(epoch.Add(d))
}

func (tb *table) gold(p types.PlayerID) int {
	return tb.store.Stats(p).Gold
}

func (tb *table) exp(p types.PlayerID) int {
	return tb.store.Stats(p).Exp
}

func (tb *table) requireDone() {
	tb.t.Helper()
	if !tb.q.Done() || tb.done != 1 {
		tb.t.Fatalf("quest done=%v completions=%d; chat: %v", tb.q.Done(), tb.done, tb.chat.Messages())
	}
}

func (tb *table) requireSaid(substr string) {
	tb.t.Helper()
	if !tb.chat.Contains(substr) {
		tb.t.Fatalf("no message containing %q; chat: %v", substr, tb.chat.Messages())
	}
}

// --- doors ---

func TestDoors_Treasure(t *testing.T) {
	tb := newTable(t, "doors", ones(), "alice")
	tb.requireSaid("alice finds two doors")

	tb.say("alice", "!left")
	tb.requireDone()
	tb.requireSaid("treasure chest")
	if got := tb.gold("alice"); got != 1000+124 {
		t.Errorf("gold = %d, want 1124", got)
	}
	if got := tb.exp("alice"); got != 3 {
		t.Errorf("exp = %d, want 3", got)
	}
}

func TestDoors_Poro(t *testing.T) {
	tb := newTable(t, "doors", zeros(), "alice")
	tb.say("alice", "!right")
	tb.requireSaid("giant poro")
	if got := tb.gold("alice"); got != 1000-123 {
		t.Errorf("gold = %d, want 877", got)
	}
}

func TestDoors_IgnoresOutsiders(t *testing.T) {
	tb := newTable(t, "doors", zeros(), "alice")
	tb.say("bob", "!left")
	if tb.q.Done() {
		t.Fatal("outsider resolved the quest")
	}
}

func TestDoors_Timeout(t *testing.T) {
	tb := newTable(t, "doors", zeros(), "alice")
	tb.after(12 * time.Second)
	tb.requireDone()
	tb.requireSaid("nommed to death")
	if got := tb.gold("alice"); got != 600 {
		t.Errorf("gold = %d, want 600", got)
	}
}

// --- monster ---

func TestMonster_AttackUnderleveled(t *testing.T) {
	tb := newTable(t, "monster", zeros(), "alice")
	tb.say("alice", "!attack")
	tb.requireDone()
	tb.requireSaid("never stood a chance")
	if got := tb.gold("alice"); got != 1000-158 {
		t.Errorf("gold = %d, want 842", got)
	}
}

func TestMonster_AttackAtCap(t *testing.T) {
	tb := newTable(t, "monster", quest.NewRNGFrom(quest.NewSequence(30, 0)), "alice")
	tb.store.Set("alice", 1000, 493)
	tb.say("alice", "!attack")
	tb.requireSaid("dismembers the creature")
	tb.requireSaid("gains 358 gold and 3 exp.")
	if got := tb.exp("alice"); got != 493+3 {
		t.Errorf("exp = %d, want 496", got)
	}
}

func TestMonster_FleeSuccess(t *testing.T) {
	tb := newTable(t, "monster", ones(), "alice")
	tb.say("alice", "!flee")
	tb.requireSaid("bravely run away")
	if got := tb.gold("alice"); got != 1000+55 {
		t.Errorf("gold = %d, want 1055", got)
	}
}

// --- duel ---

func TestDuel_FirstMoverWinsOnce(t *testing.T) {
	tb := newTable(t, "duel", zeros(), "alice", "bob")
	tb.requireSaid("The first to !attack will be the victor")

	tb.say("alice", "!fight")
	if tb.q.Done() {
		t.Fatal("a decoy duel word resolved the duel")
	}

	tb.say("alice", "!attack")
	tb.say("bob", "!attack")
	tb.say("alice", "!attack")

	tb.requireDone()
	tb.requireSaid("alice was quicker on the draw")
	if got := tb.gold("alice"); got != 1273 {
		t.Errorf("winner gold = %d, want 1273", got)
	}
	if got := tb.exp("alice"); got != 3 {
		t.Errorf("winner exp = %d, want 3", got)
	}
	if got := tb.gold("bob"); got != 727 {
		t.Errorf("loser gold = %d, want 727", got)
	}
}

func TestDuel_WordIsDrawnFromCandidates(t *testing.T) {
	for i := range DuelWords {
		tb := newTable(t, "duel", quest.NewRNGFrom(quest.NewSequence(i)), "alice", "bob")
		tb.requireSaid("The first to " + DuelWords[i])
	}
}

func TestDuel_PacifistsOnTimeout(t *testing.T) {
	tb := newTable(t, "duel", zeros(), "alice", "bob")
	tb.after(12 * time.Second)
	tb.requireDone()
	tb.requireSaid("apparently pacifists")
	if tb.q.Phase() != 2 {
		t.Errorf("phase = %d, want the pacifist segment", tb.q.Phase())
	}
	for _, p := range []types.PlayerID{"alice", "bob"} {
		if got := tb.exp(p); got != 5 {
			t.Errorf("%s exp = %d, want 5", p, got)
		}
	}
}

// --- archer ---

func TestArcher_Flank(t *testing.T) {
	tb := newTable(t, "archer", zeros(), "alice", "bob")
	tb.say("alice", "!left")
	tb.say("alice", "!right")
	if tb.q.Done() {
		t.Fatal("one player acting twice resolved the phase")
	}
	tb.say("bob", "!right")
	tb.requireDone()
	tb.requireSaid("skillfully flank")
	for _, p := range []types.PlayerID{"alice", "bob"} {
		if got := tb.gold(p); got != 1000+168 {
			t.Errorf("%s gold = %d, want 1168", p, got)
		}
	}
}

func TestArcher_SameDirection(t *testing.T) {
	tb := newTable(t, "archer", zeros(), "alice", "bob")
	tb.say("alice", "!left")
	tb.say("bob", "!left")
	tb.requireSaid("suck at coordination")
	if got := tb.gold("bob"); got != 1000-293 {
		t.Errorf("bob gold = %d, want 707", got)
	}
}

func TestArcher_TimeoutWithOneActor(t *testing.T) {
	tb := newTable(t, "archer", zeros(), "alice", "bob")
	tb.say("bob", "!left")
	tb.after(12 * time.Second)
	tb.requireDone()
	tb.requireSaid("bob didn't move and just used alice as a decoy")
	if got := tb.gold("bob"); got != 1000+218 {
		t.Errorf("bob gold = %d, want 1218", got)
	}
	if got := tb.gold("alice"); got != 1000-53 {
		t.Errorf("alice gold = %d, want 947", got)
	}
}

func TestArcher_TimeoutNobody(t *testing.T) {
	tb := newTable(t, "archer", zeros(), "alice", "bob")
	tb.after(12 * time.Second)
	tb.requireSaid("sitting ducks")
	if got := tb.gold("alice"); got != 1000-128 {
		t.Errorf("alice gold = %d, want 872", got)
	}
}

// --- prison ---

func TestPrison_LeaderSaves(t *testing.T) {
	tb := newTable(t, "prison", zeros(), "alice", "bob", "carol")
	tb.requireSaid("Do you save !bob or !carol?")

	tb.say("bob", "!carol")
	if tb.q.Done() {
		t.Fatal("non-leader picked the prisoner")
	}

	tb.say("alice", "!BOB")
	tb.requireDone()
	tb.requireSaid("alice decided to save bob!")
	if got := tb.gold("bob"); got != 1000+324 {
		t.Errorf("bob gold = %d, want 1324", got)
	}
	if got := tb.gold("carol"); got != 1000-24 {
		t.Errorf("carol gold = %d, want 976", got)
	}
}

func TestPrison_Timeout(t *testing.T) {
	tb := newTable(t, "prison", zeros(), "alice", "bob", "carol")
	tb.after(12 * time.Second)
	tb.requireSaid("took too long deciding")
	for _, p := range []types.PlayerID{"alice", "bob", "carol"} {
		if got := tb.gold(p); got != 1000-94 {
			t.Errorf("%s gold = %d, want 906", p, got)
		}
	}
}

// --- gates ---

func TestGates_AllSidesHeld(t *testing.T) {
	tb := newTable(t, "gates", zeros(), "a", "b", "c", "d")
	tb.say("a", "!north")
	tb.say("b", "!south")
	tb.say("c", "!east")
	tb.say("d", "!west")
	tb.requireDone()
	tb.requireSaid("successfully held the gates")
	if got := tb.gold("d"); got != 1000+215 {
		t.Errorf("gold = %d, want 1215", got)
	}
}

func TestGates_EveryoneActedButSidesMissing(t *testing.T) {
	tb := newTable(t, "gates", zeros(), "a", "b", "c", "d")
	tb.say("a", "!north")
	tb.say("b", "!north")
	tb.say("c", "!east")
	tb.say("d", "!east")
	tb.requireDone()
	tb.requireSaid("only managed to defend the north and east gates")
}

// Four players, two act, the 12s deadline fires: the timeout branch runs
// exactly once and the two absentees get the timeout outcome.
func TestGates_TimeoutWithStragglers(t *testing.T) {
	tb := newTable(t, "gates", zeros(), "a", "b", "c", "d")
	tb.say("a", "!north")
	tb.say("b", "!south")

	tb.after(11 * time.Second)
	if tb.q.Done() {
		t.Fatal("resolved before the deadline")
	}
	tb.after(12 * time.Second)
	tb.after(40 * time.Second)
	tb.requireDone()

	timeouts := 0
	for _, m := range tb.chat.Messages() {
		if strings.Contains(m, "only managed to defend") {
			timeouts++
		}
	}
	if timeouts != 1 {
		t.Errorf("timeout narration ran %d times", timeouts)
	}
	tb.requireSaid("c and d never showed up at any gate.")
	for _, p := range []types.PlayerID{"c", "d"} {
		if got := tb.gold(p); got != 1000-40 {
			t.Errorf("%s gold = %d, want 960", p, got)
		}
	}
	if tb.chat.Contains("successfully held") {
		t.Error("all-acted branch ran")
	}
}

func TestGates_Collaborators(t *testing.T) {
	tb := newTable(t, "gates", zeros(), "a", "b", "c", "d")
	tb.after(12 * time.Second)
	tb.requireSaid("collaborate with the Frostguard")
	if got := tb.exp("a"); got != 5 {
		t.Errorf("exp = %d, want 5", got)
	}
}

// --- run ---

var fiveParty = []types.PlayerID{"a", "b", "c", "d", "e"}

func TestRun_AllButOneEscape(t *testing.T) {
	tb := newTable(t, "run", zeros(), fiveParty...)
	tb.requireSaid("type !run to get away")

	for _, p := range fiveParty[:4] {
		tb.say(p, "!run")
	}
	tb.requireDone()
	tb.requireSaid("a, b, c, and d managed to escape")
	if got := tb.gold("e"); got != 1000-138 {
		t.Errorf("straggler gold = %d, want 862", got)
	}
	if got := tb.gold("a"); got != 1000+138 {
		t.Errorf("escapee gold = %d, want 1138", got)
	}
}

func TestRun_NobodyEscapesThenBossVictory(t *testing.T) {
	tb := newTable(t, "run", zeros(), fiveParty...)
	for _, p := range fiveParty {
		tb.store.Set(p, 1000, 493)
	}
	tb.after(12 * time.Second)
	if tb.q.Done() || tb.q.Phase() != 2 {
		t.Fatalf("expected boss battle phase, phase=%d done=%v", tb.q.Phase(), tb.q.Done())
	}
	tb.requireSaid("stand their ground")

	tb.say("a", "!front")
	tb.say("b", "!left")
	tb.say("c", "!right")
	tb.say("d", "!front")
	tb.say("e", "!left")
	tb.requireDone()
	tb.requireSaid("has been defeated")
	if items := tb.store.Stats("a").Items; len(items) != 1 || items[0] != "Massive Fang" {
		t.Errorf("drop recipient items = %v", items)
	}
	if w := tb.chat.Whispers("a"); len(w) != 1 {
		t.Errorf("drop whisper = %v", w)
	}
}

func TestRun_BossSwatsWeakParty(t *testing.T) {
	tb := newTable(t, "run", zeros(), fiveParty...)
	tb.after(12 * time.Second)
	tb.say("a", "!front")
	tb.say("b", "!left")
	tb.say("c", "!right")
	tb.after(24 * time.Second)
	tb.requireDone()
	tb.requireSaid("swatted down like flies")
	tb.requireSaid("d and e slipped away")
	if got := tb.gold("d"); got != 1000+318 {
		t.Errorf("coward gold = %d, want 1318", got)
	}
}

func TestRun_BossTimeoutUnsurrounded(t *testing.T) {
	tb := newTable(t, "run", zeros(), fiveParty...)
	tb.after(12 * time.Second)
	tb.say("a", "!front")
	tb.after(24 * time.Second)
	tb.requireSaid("just attacked the front")
	if got := tb.gold("e"); got != 1000-138 {
		t.Errorf("gold = %d, want 862", got)
	}
}

// --- catalogue ---

func TestRegister_HonorsOverrides(t *testing.T) {
	reg := quest.NewRegistry()
	n, err := Register(reg.Register, map[string]Override{
		"monster": {Disabled: true},
		"doors":   {Tuning: Tuning{"gold_reward": 1000, "gold_variance": 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != len(Catalog())-1 {
		t.Errorf("registered %d encounters", n)
	}
	if v := reg.Variants(1); len(v) != 1 || v[0].Name() != "doors" {
		t.Fatalf("size-1 variants = %v", v)
	}
	if reg.MaxPartySize() != 5 {
		t.Errorf("MaxPartySize = %d", reg.MaxPartySize())
	}

	chat := &chattest.Recorder{}
	store := memory.New()
	q := quest.New(reg.Variants(1)[0], types.Party{"alice"}, quest.Env{
		Messenger: chat,
		Ledger:    store,
		Scheduler: schedule.New(epoch, nil),
		RNG:       ones(),
	}, nil)
	root := router.New("root", nil)
	root.AddChild(q.Router())
	q.Start()
	root.TryDispatch("alice", "!left")
	if got := store.Stats("alice").Gold; got != 1000 {
		t.Errorf("tuned reward = %d, want 1000", got)
	}
}

func TestLookup(t *testing.T) {
	for _, s := range Catalog() {
		got, ok := Lookup(s.Name)
		if !ok || got.PartySize != s.PartySize {
			t.Errorf("Lookup(%s) = %+v, %v", s.Name, got, ok)
		}
		if len(s.Defaults) == 0 {
			t.Errorf("%s has no tuning defaults", s.Name)
		}
	}
	if _, ok := Lookup("dragon"); ok {
		t.Error("Lookup(dragon) succeeded")
	}
}
