// Package types defines the shared data structures for the quest bot engine.
// This package contains only type definitions and the collaborator contracts
// the engine consumes; no engine logic lives here.
package types

import "strings"

// PlayerID identifies a chat participant. Values are lower-cased at the
// boundary (see NewPlayerID) so the engine can compare them directly.
type PlayerID string

// NewPlayerID normalizes a raw chat name into a PlayerID.
func NewPlayerID(name string) PlayerID {
	return PlayerID(strings.ToLower(strings.TrimSpace(name)))
}

// Party is an ordered roster; index 0 is the leader.
type Party []PlayerID

// Contains reports whether p is in the party.
func (pa Party) Contains(p PlayerID) bool {
	for _, id := range pa {
		if id == p {
			return true
		}
	}
	return false
}

// Leader returns the first member, or "" for an empty party.
func (pa Party) Leader() PlayerID {
	if len(pa) == 0 {
		return ""
	}
	return pa[0]
}

// SessionState is the per-channel quest state.
type SessionState int

const (
	Disabled SessionState = iota
	Ready
	FormingParty
	Active
	OnCooldown
)

func (s SessionState) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Ready:
		return "ready"
	case FormingParty:
		return "forming_party"
	case Active:
		return "active"
	case OnCooldown:
		return "on_cooldown"
	default:
		return "unknown"
	}
}

// Outcome is one currency/experience change applied to a set of players.
type Outcome struct {
	Players []PlayerID
	Gold    int
	Exp     int
	Item    string // optional
}

// Stats is a player's persisted progression snapshot.
type Stats struct {
	Player   PlayerID
	Gold     int
	Exp      int
	Level    int
	Prestige int
	Items    []string
}

// Channel setting keys.
const (
	SettingCooldownSeconds = "cooldownSeconds"
	SettingQuestEnabled    = "questEnabled"
)

// Messenger delivers narration. Delivery is best-effort and never retried.
type Messenger interface {
	SendMessage(channelID, text string)
	SendWhisper(player PlayerID, text string)
}

// Ledger applies currency and experience changes. Calls are treated as
// synchronous and non-blocking; the engine does not verify them.
type Ledger interface {
	ApplyReward(o Outcome)
	ApplyPenalty(o Outcome)
	PlayerLevel(p PlayerID) int
}

// Profiles exposes read/modify access used by the stats and prestige commands.
type Profiles interface {
	Stats(p PlayerID) Stats
	Prestige(p PlayerID) bool
}

// Settings reads channel configuration. Values may change between reads.
type Settings interface {
	ChannelSetting(channelID, key string) int
}

// SettingsWriter records operator changes to channel configuration.
type SettingsWriter interface {
	SetChannelSetting(channelID, key string, value int)
}

// Permissions decides who may run operator commands in a channel.
type Permissions interface {
	IsModerator(channelID string, p PlayerID) bool
}
