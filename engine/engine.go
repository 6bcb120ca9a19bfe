// Package engine provides the process-wide quest engine: one scheduler and
// encounter registry shared by every channel, and per channel a router tree
// with channel commands above the quest session.
//
// An Engine is not safe for concurrent use. Drive it from a single goroutine,
// either directly or through Run.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/engine/schedule"
	"github.com/nathoo/questbot/engine/session"
	"github.com/nathoo/questbot/types"
)

// ErrUnknownChannel is returned for operations on a channel that was never joined.
var ErrUnknownChannel = errors.New("unknown channel")

// ErrInvalidCooldown rejects cooldowns below the configured minimum.
var ErrInvalidCooldown = errors.New("cooldown below minimum")

// Options configure an Engine.
type Options struct {
	Session     session.Config
	MinCooldown time.Duration
	// TickInterval is how often Run polls the scheduler.
	TickInterval time.Duration
	// Seed fixes the RNG; zero seeds from the start time.
	Seed   int64
	Logger *zap.Logger
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{
		Session:      session.DefaultConfig(),
		MinCooldown:  5 * time.Second,
		TickInterval: 250 * time.Millisecond,
	}
}

// Deps are the external collaborators. Messenger and Ledger are required;
// the rest enable optional channel commands.
type Deps struct {
	Messenger      types.Messenger
	Ledger         types.Ledger
	Profiles       types.Profiles
	Settings       types.Settings
	SettingsWriter types.SettingsWriter
	Permissions    types.Permissions
}

type channel struct {
	id      string
	owner   types.PlayerID
	session *session.Manager
	router  *router.Router
}

// Engine holds the shared scheduler, registry and per-channel state.
type Engine struct {
	opts     Options
	deps     Deps
	logger   *zap.Logger
	sched    *schedule.Scheduler
	registry *quest.Registry
	rng      *quest.RNG
	settings *settingsLayer
	channels map[string]*channel
}

// New creates an engine whose clock starts at start.
func New(opts Options, deps Deps, start time.Time) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}
	logger := opts.Logger.Named("engine")
	logger.Debug("engine created", zap.Int64("seed", seed), zap.Time("start", start))
	return &Engine{
		opts:     opts,
		deps:     deps,
		logger:   logger,
		sched:    schedule.New(start, opts.Logger),
		registry: quest.NewRegistry(),
		rng:      quest.NewRNG(seed),
		settings: &settingsLayer{base: deps.Settings, writer: deps.SettingsWriter, values: map[string]map[string]int{}},
		channels: map[string]*channel{},
	}
}

// RegisterVariant adds an encounter for a party size. Call it at startup,
// before any channel starts a quest.
func (e *Engine) RegisterVariant(partySize int, enc quest.Encounter) error {
	if err := e.registry.Register(partySize, enc); err != nil {
		return err
	}
	e.logger.Debug("encounter registered", zap.String("variant", enc.Name()), zap.Int("party_size", partySize))
	return nil
}

// Registry exposes the encounter registry.
func (e *Engine) Registry() *quest.Registry {
	return e.registry
}

// RNG returns the engine's random source.
func (e *Engine) RNG() *quest.RNG {
	return e.rng
}

// Now returns the scheduler clock.
func (e *Engine) Now() time.Time {
	return e.sched.Now()
}

// Join creates the session for channelID. Joining twice is a no-op. The
// session starts disabled when the channel's questEnabled setting is 0.
func (e *Engine) Join(channelID string) *session.Manager {
	if ch, ok := e.channels[channelID]; ok {
		return ch.session
	}
	m := session.New(channelID, e.opts.Session, session.Deps{
		Messenger: e.deps.Messenger,
		Ledger:    e.deps.Ledger,
		Settings:  e.settings,
		Scheduler: e.sched,
		Registry:  e.registry,
		RNG:       e.rng,
		Logger:    e.opts.Logger,
	})
	ch := &channel{
		id:      channelID,
		owner:   types.NewPlayerID(strings.TrimPrefix(channelID, "#")),
		session: m,
		router:  router.New("channel:"+channelID, e.logger),
	}
	e.bindChannelCommands(ch)
	ch.router.AddChild(m.Router())
	e.channels[channelID] = ch

	if e.settings.enabledFlag(channelID) == 0 {
		m.Disable()
	}
	e.logger.Info("joined channel", zap.String("channel", channelID), zap.Stringer("state", m.State()))
	return m
}

// Channels lists joined channels, sorted.
func (e *Engine) Channels() []string {
	out := make([]string, 0, len(e.channels))
	for id := range e.channels {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Session returns the session for channelID.
func (e *Engine) Session(channelID string) (*session.Manager, error) {
	ch, ok := e.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", channelID, ErrUnknownChannel)
	}
	return ch.session, nil
}

// OnCommand routes one chat line. Only "!"-prefixed lines are considered;
// the player name is normalized here so nothing below compares raw names.
func (e *Engine) OnCommand(channelID string, player types.PlayerID, text string) {
	// 1. Ignore anything that is not a command.
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return
	}

	// 2. Normalize the sender.
	p := types.NewPlayerID(string(player))
	if p == "" {
		return
	}

	// 3. Find the channel.
	ch, ok := e.channels[channelID]
	if !ok {
		e.logger.Debug("command for unknown channel", zap.String("channel", channelID))
		return
	}

	// 4. Sweep the channel tree.
	if !ch.router.TryDispatch(p, text) {
		e.logger.Debug("no handler", zap.String("channel", channelID), zap.String("player", string(p)), zap.String("text", text))
	}
}

// OnTick advances the shared scheduler and returns how many deadlines fired.
func (e *Engine) OnTick(now time.Time) int {
	return e.sched.Tick(now)
}

// EnableSession re-enables questing in channelID. It reports whether the
// state changed.
func (e *Engine) EnableSession(channelID string) (bool, error) {
	ch, ok := e.channels[channelID]
	if !ok {
		return false, fmt.Errorf("enable %q: %w", channelID, ErrUnknownChannel)
	}
	e.settings.SetChannelSetting(channelID, types.SettingQuestEnabled, 1)
	return ch.session.Enable(), nil
}

// DisableSession stops questing in channelID, cancelling any party or quest.
func (e *Engine) DisableSession(channelID string) (bool, error) {
	ch, ok := e.channels[channelID]
	if !ok {
		return false, fmt.Errorf("disable %q: %w", channelID, ErrUnknownChannel)
	}
	e.settings.SetChannelSetting(channelID, types.SettingQuestEnabled, 0)
	return ch.session.Disable(), nil
}

// SetCooldown stores a new cooldown for channelID and shortens a running
// cooldown that has longer left.
func (e *Engine) SetCooldown(channelID string, seconds int) error {
	ch, ok := e.channels[channelID]
	if !ok {
		return fmt.Errorf("set cooldown %q: %w", channelID, ErrUnknownChannel)
	}
	d := time.Duration(seconds) * time.Second
	if d < e.opts.MinCooldown {
		return fmt.Errorf("%ds (minimum %s): %w", seconds, e.opts.MinCooldown, ErrInvalidCooldown)
	}
	e.settings.SetChannelSetting(channelID, types.SettingCooldownSeconds, seconds)
	if ch.session.SetCooldown(d) {
		e.logger.Info("cooldown shortened", zap.String("channel", channelID), zap.Duration("cooldown", d))
	}
	return nil
}

// Status returns the session snapshot for channelID.
func (e *Engine) Status(channelID string) (session.Status, error) {
	m, err := e.Session(channelID)
	if err != nil {
		return session.Status{}, err
	}
	return m.Status(), nil
}

// settingsLayer keeps operator changes in memory on top of the configured
// settings and forwards them to the writer when there is one.
type settingsLayer struct {
	base   types.Settings
	writer types.SettingsWriter
	values map[string]map[string]int
}

func (s *settingsLayer) ChannelSetting(channelID, key string) int {
	if v, ok := s.values[channelID][key]; ok {
		return v
	}
	if s.base == nil {
		return 0
	}
	return s.base.ChannelSetting(channelID, key)
}

func (s *settingsLayer) SetChannelSetting(channelID, key string, value int) {
	if s.values[channelID] == nil {
		s.values[channelID] = map[string]int{}
	}
	s.values[channelID][key] = value
	if s.writer != nil {
		s.writer.SetChannelSetting(channelID, key, value)
	}
}

// QuestEnabler is implemented by settings sources that can tell an absent
// questEnabled value apart from an explicit 0.
type QuestEnabler interface {
	QuestEnabled(channelID string) bool
}

// enabledFlag treats a missing questEnabled setting as enabled.
func (s *settingsLayer) enabledFlag(channelID string) int {
	if v, ok := s.values[channelID][types.SettingQuestEnabled]; ok {
		return v
	}
	if s.base == nil {
		return 1
	}
	if en, ok := s.base.(QuestEnabler); ok {
		if en.QuestEnabled(channelID) {
			return 1
		}
		return 0
	}
	return 1
}
