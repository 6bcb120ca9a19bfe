// Package quest implements one played-out encounter: an ordered or branching
// sequence of segments (phases) that share the frozen party, a scratch area
// and an injected RNG. Each live segment owns a router node under the
// quest's router and at most one phase deadline.
package quest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/engine/schedule"
	"github.com/nathoo/questbot/types"
)

// Segment is one phase of an encounter.
type Segment interface {
	// Bind installs the phase's triggers on its own router node.
	Bind(r *router.Router)
	// Enter is the entry action, typically the prompt narration. It may
	// resolve immediately by advancing the quest.
	Enter()
	// Timeout runs when the phase deadline fires before resolution.
	Timeout()
}

// Timed lets a segment override the default phase duration. A non-positive
// duration arms no deadline.
type Timed interface {
	Duration() time.Duration
}

// SegmentFactory builds the next segment for q.
type SegmentFactory func(q *Quest) Segment

// Encounter is a registered encounter variant. Begin prepares per-instance
// state on q and returns the starting segment.
type Encounter interface {
	Name() string
	Begin(q *Quest) SegmentFactory
}

// Env carries the collaborators a quest narrates and settles through.
type Env struct {
	Channel       string
	Messenger     types.Messenger
	Ledger        types.Ledger
	Scheduler     *schedule.Scheduler
	RNG           *RNG
	PhaseDuration time.Duration
	Logger        *zap.Logger
}

// Quest is one encounter instance.
type Quest struct {
	ID      uuid.UUID
	Variant string
	Party   types.Party
	Scratch *Scratch
	RNG     *RNG

	enc     Encounter
	env     Env
	logger  *zap.Logger
	router  *router.Router
	segment Segment
	segNode *router.Router
	timer   schedule.Handle
	phase   int
	started bool
	done    bool
	onDone  func(q *Quest)
}

// New creates a quest for a frozen copy of party. onDone runs once when the
// quest completes.
func New(enc Encounter, party types.Party, env Env, onDone func(q *Quest)) *Quest {
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if env.RNG == nil {
		env.RNG = NewRNG(time.Now().UnixNano())
	}
	id := uuid.New()
	logger := env.Logger.Named("quest").With(
		zap.String("quest_id", id.String()),
		zap.String("variant", enc.Name()),
		zap.String("channel", env.Channel),
	)
	q := &Quest{
		ID:      id,
		Variant: enc.Name(),
		Party:   append(types.Party(nil), party...),
		Scratch: NewScratch(),
		RNG:     env.RNG,
		enc:     enc,
		env:     env,
		logger:  logger,
		router:  router.New("quest:"+enc.Name(), logger),
		onDone:  onDone,
	}
	return q
}

// Start advances q to the encounter's starting segment.
func (q *Quest) Start() {
	if q.started {
		return
	}
	q.started = true
	q.logger.Info("quest started",
		zap.Strings("party", playerStrings(q.Party)),
		zap.Int64("rng_position", q.RNG.Position()))
	q.Advance(q.enc.Begin(q))
}

// Router is the quest's router node; segments attach beneath it.
func (q *Quest) Router() *router.Router {
	return q.router
}

// Channel returns the channel the quest runs in.
func (q *Quest) Channel() string {
	return q.env.Channel
}

// Current returns the live segment, or nil.
func (q *Quest) Current() Segment {
	return q.segment
}

// Phase returns how many segments have been entered.
func (q *Quest) Phase() int {
	return q.phase
}

// Done reports whether the quest has completed or been aborted.
func (q *Quest) Done() bool {
	return q.done
}

// Remaining returns the time left on the phase deadline.
func (q *Quest) Remaining() time.Duration {
	if q.timer == 0 || q.env.Scheduler == nil {
		return 0
	}
	return q.env.Scheduler.Remaining(q.timer)
}

// Advance leaves the current segment and enters next. The old segment's
// deadline and router node are removed before next is built, so nothing it
// armed can fire afterwards. A nil next completes the quest.
func (q *Quest) Advance(next SegmentFactory) {
	if q.done {
		return
	}
	q.leave()

	if next == nil {
		q.done = true
		q.logger.Info("quest completed", zap.Int("phases", q.phase))
		if q.onDone != nil {
			q.onDone(q)
		}
		return
	}

	seg := next(q)
	q.phase++
	node := router.New(fmt.Sprintf("quest:%s/phase-%d", q.Variant, q.phase), q.logger)
	seg.Bind(node)
	q.segment = seg
	q.segNode = node
	q.router.AddChild(node)

	d := q.env.PhaseDuration
	if t, ok := seg.(Timed); ok {
		d = t.Duration()
	}
	if d > 0 && q.env.Scheduler != nil {
		q.timer = q.env.Scheduler.Schedule(d, func() { q.expire(seg) })
	}

	q.logger.Debug("phase entered", zap.Int("phase", q.phase), zap.Duration("timeout", d))
	seg.Enter()
}

// Complete ends the quest.
func (q *Quest) Complete() {
	q.Advance(nil)
}

// Abort tears the quest down without signalling completion.
func (q *Quest) Abort() {
	if q.done {
		return
	}
	q.leave()
	q.done = true
	q.logger.Info("quest aborted", zap.Int("phase", q.phase))
}

func (q *Quest) leave() {
	if q.timer != 0 && q.env.Scheduler != nil {
		q.env.Scheduler.Cancel(q.timer)
	}
	q.timer = 0
	if q.segNode != nil {
		q.router.RemoveChild(q.segNode)
	}
	q.segNode = nil
	q.segment = nil
}

func (q *Quest) expire(seg Segment) {
	if q.done || q.segment != seg {
		return
	}
	q.timer = 0
	q.logger.Debug("phase timed out", zap.Int("phase", q.phase))
	seg.Timeout()
	if !q.done && q.segment == seg {
		q.logger.Warn("segment timeout did not resolve the phase; completing quest", zap.Int("phase", q.phase))
		q.Complete()
	}
}

// Say narrates to the channel.
func (q *Quest) Say(format string, args ...any) {
	if q.env.Messenger == nil {
		return
	}
	q.env.Messenger.SendMessage(q.env.Channel, fmt.Sprintf(format, args...))
}

// Whisper narrates to a single player.
func (q *Quest) Whisper(p types.PlayerID, text string) {
	if q.env.Messenger == nil {
		return
	}
	q.env.Messenger.SendWhisper(p, text)
}

// Reward grants gold and experience to every player listed.
func (q *Quest) Reward(players []types.PlayerID, gold, exp int) {
	if q.env.Ledger == nil || len(players) == 0 {
		return
	}
	q.env.Ledger.ApplyReward(types.Outcome{Players: append([]types.PlayerID(nil), players...), Gold: gold, Exp: exp})
}

// Penalize takes gold and experience from every player listed.
func (q *Quest) Penalize(players []types.PlayerID, gold, exp int) {
	if q.env.Ledger == nil || len(players) == 0 {
		return
	}
	q.env.Ledger.ApplyPenalty(types.Outcome{Players: append([]types.PlayerID(nil), players...), Gold: gold, Exp: exp})
}

// Level returns a player's level, or 0 without a ledger.
func (q *Quest) Level(p types.PlayerID) int {
	if q.env.Ledger == nil {
		return 0
	}
	return q.env.Ledger.PlayerLevel(p)
}

// SumLevels adds the levels of players.
func (q *Quest) SumLevels(players []types.PlayerID) int {
	total := 0
	for _, p := range players {
		total += q.Level(p)
	}
	return total
}

// DropItem gives item to one random eligible player with probability chance
// and whispers them msg. It reports the recipient, if any.
func (q *Quest) DropItem(players []types.PlayerID, item string, chance float64, msg string) (types.PlayerID, bool) {
	if len(players) == 0 || !q.RNG.Chance(chance) {
		return "", false
	}
	recipient := players[q.RNG.Pick(len(players))]
	if q.env.Ledger != nil {
		q.env.Ledger.ApplyReward(types.Outcome{Players: []types.PlayerID{recipient}, Item: item})
	}
	q.Whisper(recipient, fmt.Sprintf("%s Received: %s", msg, item))
	return recipient, true
}

// Other returns the first party member in pair that is not p.
func Other(pair types.Party, p types.PlayerID) types.PlayerID {
	for _, m := range pair {
		if m != p {
			return m
		}
	}
	return ""
}

// Except returns the party members not listed in exclude, in party order.
func (q *Quest) Except(exclude ...types.PlayerID) []types.PlayerID {
	var out []types.PlayerID
	for _, m := range q.Party {
		skip := false
		for _, e := range exclude {
			if m == e {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, m)
		}
	}
	return out
}

func playerStrings(ps []types.PlayerID) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}
