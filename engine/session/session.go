// Package session implements the per-channel quest state machine: party
// formation, encounter selection, cooldown and operator enable/disable.
//
// A Manager owns one stable router node. Every transition clears that node's
// children and attaches exactly one scope for the new state, so no trigger
// from a previous state can answer afterwards.
package session

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/engine/schedule"
	"github.com/nathoo/questbot/types"
)

// StartTrigger starts a party when Ready and joins one while it is forming.
const StartTrigger = "!quest"

// Config holds the session timings.
type Config struct {
	JoinWindow      time.Duration
	PhaseDuration   time.Duration
	DefaultCooldown time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		JoinWindow:      12 * time.Second,
		PhaseDuration:   12 * time.Second,
		DefaultCooldown: 90 * time.Second,
	}
}

// Deps are the collaborators a Manager uses.
type Deps struct {
	Messenger types.Messenger
	Ledger    types.Ledger
	Settings  types.Settings
	Scheduler *schedule.Scheduler
	Registry  *quest.Registry
	RNG       *quest.RNG
	Logger    *zap.Logger
}

// Status is a read-only snapshot for status displays.
type Status struct {
	Channel   string
	State     types.SessionState
	Party     types.Party
	Variant   string
	Phase     int
	Remaining time.Duration
}

// Manager is the quest session for one channel.
type Manager struct {
	channel string
	cfg     Config
	deps    Deps
	logger  *zap.Logger

	state types.SessionState
	party types.Party
	quest *quest.Quest
	timer schedule.Handle
	root  *router.Router
}

// New creates a session in the Ready state.
func New(channel string, cfg Config, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RNG == nil {
		deps.RNG = quest.NewRNG(time.Now().UnixNano())
	}
	if deps.Registry == nil {
		deps.Registry = quest.NewRegistry()
	}
	logger := deps.Logger.Named("session").With(zap.String("channel", channel))
	m := &Manager{
		channel: channel,
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		root:    router.New("session:"+channel, logger),
	}
	m.toReady()
	return m
}

// Router is the session's stable router node.
func (m *Manager) Router() *router.Router {
	return m.root
}

// State returns the current session state.
func (m *Manager) State() types.SessionState {
	return m.state
}

// Party returns a copy of the current or forming party.
func (m *Manager) Party() types.Party {
	return append(types.Party(nil), m.party...)
}

// Quest returns the running quest, or nil.
func (m *Manager) Quest() *quest.Quest {
	return m.quest
}

// Remaining returns the time left on the session deadline (join window or
// cooldown).
func (m *Manager) Remaining() time.Duration {
	if m.timer == 0 {
		return 0
	}
	return m.deps.Scheduler.Remaining(m.timer)
}

// Status returns a snapshot of the session.
func (m *Manager) Status() Status {
	st := Status{
		Channel:   m.channel,
		State:     m.state,
		Party:     m.Party(),
		Remaining: m.Remaining(),
	}
	if m.quest != nil {
		st.Variant = m.quest.Variant
		st.Phase = m.quest.Phase()
		st.Remaining = m.quest.Remaining()
	}
	return st
}

// Enable moves a disabled session to Ready. It reports false when the
// session was not disabled.
func (m *Manager) Enable() bool {
	if m.state != types.Disabled {
		return false
	}
	m.logger.Info("questing enabled")
	m.toReady()
	return true
}

// Disable cancels any deadline, tears down the party and quest and moves to
// Disabled. It reports false when already disabled.
func (m *Manager) Disable() bool {
	if m.state == types.Disabled {
		return false
	}
	m.cancelTimer()
	if m.quest != nil {
		m.quest.Abort()
		m.quest = nil
	}
	m.party = nil
	m.transition(types.Disabled)
	m.rearm(m.scope("disabled", m.disabledMessage))
	m.logger.Info("questing disabled")
	return true
}

// SetCooldown shortens a running cooldown to d when more than d remains.
// It reports whether the cooldown deadline moved.
func (m *Manager) SetCooldown(d time.Duration) bool {
	if m.state != types.OnCooldown || m.timer == 0 {
		return false
	}
	if m.Remaining() <= d {
		return false
	}
	return m.deps.Scheduler.Reschedule(m.timer, d)
}

// maxPartySize is the largest party any registered encounter accepts.
func (m *Manager) maxPartySize() int {
	return m.deps.Registry.MaxPartySize()
}

func (m *Manager) toReady() {
	m.cancelTimer()
	m.party = nil
	m.transition(types.Ready)
	m.rearm(m.scope("ready", m.formParty))
}

func (m *Manager) formParty(p types.PlayerID) {
	m.party = types.Party{p}
	m.transition(types.FormingParty)
	m.rearm(m.scope("forming", m.join))
	m.say("%s wants to attempt a quest. Type \"%s\" to join!", p, StartTrigger)
	m.timer = m.deps.Scheduler.Schedule(m.cfg.JoinWindow, m.joinWindowClosed)

	if limit := m.maxPartySize(); limit > 0 && len(m.party) >= limit {
		m.finalize()
	}
}

func (m *Manager) join(p types.PlayerID) {
	if m.party.Contains(p) {
		return
	}
	m.party = append(m.party, p)
	m.logger.Debug("player joined", zap.String("player", string(p)), zap.Int("size", len(m.party)))

	if limit := m.maxPartySize(); limit > 0 && len(m.party) >= limit {
		m.finalize()
	}
}

func (m *Manager) joinWindowClosed() {
	m.timer = 0
	if m.state != types.FormingParty {
		return
	}
	m.finalize()
}

// finalize freezes the party and starts an encounter for its size.
func (m *Manager) finalize() {
	m.cancelTimer()
	m.transition(types.Active)

	enc, err := m.deps.Registry.Choose(len(m.party), m.deps.RNG)
	if err != nil {
		m.logger.Error("cannot start quest", zap.Int("party_size", len(m.party)), zap.Error(err))
		m.say("Sorry, quests are unavailable right now. Try again later.")
		m.party = nil
		m.toCooldown()
		return
	}

	q := quest.New(enc, m.party, quest.Env{
		Channel:       m.channel,
		Messenger:     m.deps.Messenger,
		Ledger:        m.deps.Ledger,
		Scheduler:     m.deps.Scheduler,
		RNG:           m.deps.RNG,
		PhaseDuration: m.cfg.PhaseDuration,
		Logger:        m.deps.Logger,
	}, m.questDone)
	m.quest = q
	m.rearm(q.Router())
	q.Start()
}

func (m *Manager) questDone(q *quest.Quest) {
	if m.quest != q {
		return
	}
	m.quest = nil
	m.party = nil
	m.toCooldown()
}

func (m *Manager) toCooldown() {
	m.cancelTimer()
	m.transition(types.OnCooldown)
	m.rearm(m.scope("cooldown", m.rechargingMessage))
	m.timer = m.deps.Scheduler.Schedule(m.cooldown(), m.cooldownElapsed)
}

func (m *Manager) cooldownElapsed() {
	m.timer = 0
	if m.state != types.OnCooldown {
		return
	}
	m.toReady()
}

// cooldown reads the channel setting on every use; it may change at runtime.
func (m *Manager) cooldown() time.Duration {
	if m.deps.Settings != nil {
		if secs := m.deps.Settings.ChannelSetting(m.channel, types.SettingCooldownSeconds); secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return m.cfg.DefaultCooldown
}

func (m *Manager) rechargingMessage(p types.PlayerID) {
	m.say("Sorry %s, quests take %d seconds to recharge. (%d seconds remaining.)",
		p, int(m.cooldown()/time.Second), ceilSeconds(m.Remaining()))
}

func (m *Manager) disabledMessage(p types.PlayerID) {
	m.say("Sorry %s, questing is currently disabled. Ask a mod to type !queston to re-enable questing.", p)
}

// scope builds a fresh router node answering the start trigger.
func (m *Manager) scope(name string, h router.Handler) *router.Router {
	r := router.New(fmt.Sprintf("session:%s/%s", m.channel, name), m.logger)
	r.Handle(StartTrigger, h)
	return r
}

func (m *Manager) rearm(scope *router.Router) {
	m.root.ClearChildren()
	m.root.AddChild(scope)
}

func (m *Manager) transition(to types.SessionState) {
	if m.state != to {
		m.logger.Debug("session transition", zap.Stringer("from", m.state), zap.Stringer("to", to))
	}
	m.state = to
}

func (m *Manager) cancelTimer() {
	if m.timer != 0 {
		m.deps.Scheduler.Cancel(m.timer)
		m.timer = 0
	}
}

func (m *Manager) say(format string, args ...any) {
	if m.deps.Messenger == nil {
		return
	}
	m.deps.Messenger.SendMessage(m.channel, fmt.Sprintf(format, args...))
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
