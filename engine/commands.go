package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/questbot/engine/progression"
	"github.com/nathoo/questbot/types"
)

// FAQ is whispered in answer to !faq.
const FAQ = "Information and an FAQ on questbot can be found at: https://github.com/nathoo/questbot"

const cooldownUsage = "Invalid usage! Sample usage: !questcooldown 90"

// bindChannelCommands installs the commands that answer in every session
// state. They live on the channel node, above the session subtree.
func (e *Engine) bindChannelCommands(ch *channel) {
	r := ch.router
	r.Handle("!queston", func(p types.PlayerID) { e.cmdEnable(ch, p) })
	r.Handle("!questoff", func(p types.PlayerID) { e.cmdDisable(ch, p) })
	r.HandlePrefix("!questcooldown", func(p types.PlayerID, args string) { e.cmdCooldown(ch, p, args) })

	if e.deps.Profiles == nil {
		return
	}
	r.Handle("!faq", func(p types.PlayerID) { e.whisper(p, FAQ) })
	for _, trigger := range []string{"!stats", "!gold", "!exp"} {
		r.Handle(trigger, func(p types.PlayerID) { e.cmdStats(p) })
	}
	r.Handle("!prestige", func(p types.PlayerID) { e.cmdPrestige(ch, p) })
}

// isModerator reports whether p may run operator commands in ch. The
// channel owner always may.
func (e *Engine) isModerator(ch *channel, p types.PlayerID) bool {
	if p == ch.owner {
		return true
	}
	return e.deps.Permissions != nil && e.deps.Permissions.IsModerator(ch.id, p)
}

func (e *Engine) cmdEnable(ch *channel, p types.PlayerID) {
	if !e.isModerator(ch, p) {
		e.logger.Debug("queston ignored: not a moderator", zap.String("channel", ch.id), zap.String("player", string(p)))
		return
	}
	changed, _ := e.EnableSession(ch.id)
	if changed {
		e.say(ch, `Questing enabled. Type "!quest" to start a quest!`)
		e.logger.Info("questing enabled", zap.String("channel", ch.id), zap.String("by", string(p)))
		return
	}
	e.say(ch, `Questing already enabled. Type "!quest" to start a quest!`)
}

func (e *Engine) cmdDisable(ch *channel, p types.PlayerID) {
	if !e.isModerator(ch, p) {
		e.logger.Debug("questoff ignored: not a moderator", zap.String("channel", ch.id), zap.String("player", string(p)))
		return
	}
	changed, _ := e.DisableSession(ch.id)
	if changed {
		e.say(ch, "Questing disabled.")
		e.logger.Info("questing disabled", zap.String("channel", ch.id), zap.String("by", string(p)))
		return
	}
	e.say(ch, "Questing already disabled.")
}

func (e *Engine) cmdCooldown(ch *channel, p types.PlayerID, args string) {
	if !e.isModerator(ch, p) {
		return
	}
	fields := strings.Fields(args)
	if len(fields) != 1 {
		e.whisper(p, cooldownUsage)
		return
	}
	seconds, err := strconv.Atoi(fields[0])
	if err != nil {
		e.logger.Warn("bad cooldown argument", zap.String("channel", ch.id), zap.String("args", args))
		e.whisper(p, cooldownUsage)
		return
	}
	if err := e.SetCooldown(ch.id, seconds); err != nil {
		if errors.Is(err, ErrInvalidCooldown) {
			e.logger.Warn("cooldown rejected", zap.String("channel", ch.id), zap.Error(err))
			e.say(ch, fmt.Sprintf("Cooldown must be at least %d seconds.", int(e.opts.MinCooldown.Seconds())))
			return
		}
		e.logger.Error("set cooldown", zap.Error(err))
		return
	}
	e.say(ch, fmt.Sprintf("Channel cooldown set to %d seconds.", seconds))
}

func (e *Engine) cmdStats(p types.PlayerID) {
	e.whisper(p, FormatStats(e.deps.Profiles.Stats(p)))
}

func (e *Engine) cmdPrestige(ch *channel, p types.PlayerID) {
	if !e.deps.Profiles.Prestige(p) {
		e.say(ch, fmt.Sprintf("%s does not have enough exp/gold to prestige, requires %d exp and %d gold.",
			p, progression.PrestigeExp(), progression.PrestigeGold))
		return
	}
	st := e.deps.Profiles.Stats(p)
	e.logger.Info("player prestiged", zap.String("player", string(p)), zap.Int("prestige", st.Prestige))
	e.say(ch, fmt.Sprintf("%s has prestiged, and is now prestige level %d!", p, st.Prestige))
}

// FormatStats renders the stats whisper.
func FormatStats(st types.Stats) string {
	var b strings.Builder
	if st.Prestige > 0 {
		fmt.Fprintf(&b, "Prestige: %d, ", st.Prestige)
	}
	fmt.Fprintf(&b, "Level: %d (%d Exp), Gold: %d", st.Level, st.Exp, st.Gold)
	return b.String()
}

func (e *Engine) say(ch *channel, text string) {
	if e.deps.Messenger != nil {
		e.deps.Messenger.SendMessage(ch.id, text)
	}
}

func (e *Engine) whisper(p types.PlayerID, text string) {
	if e.deps.Messenger != nil {
		e.deps.Messenger.SendWhisper(p, text)
	}
}
