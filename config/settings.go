package config

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nathoo/questbot/types"
)

// fileKeys maps engine setting keys to their config file names.
var fileKeys = map[string]string{
	types.SettingCooldownSeconds: "cooldown_seconds",
	types.SettingQuestEnabled:    "quest_enabled",
}

// ChannelSettings serves per-channel settings from the config file with
// operator changes layered on top. It implements types.Settings,
// types.SettingsWriter and types.Permissions and is safe for concurrent use;
// Watch replaces the file values from the fsnotify goroutine.
type ChannelSettings struct {
	mu        sync.RWMutex
	channels  map[string]ChannelConfig
	overrides map[string]map[string]int
	path      string
	logger    *zap.Logger
}

// NewChannelSettings creates settings from the file's channel section.
func NewChannelSettings(channels map[string]ChannelConfig, logger *zap.Logger) *ChannelSettings {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ChannelSettings{
		overrides: map[string]map[string]int{},
		logger:    logger.Named("settings"),
	}
	s.Replace(channels)
	return s
}

// PersistTo makes SetChannelSetting also write changes into the config file
// at path.
func (s *ChannelSettings) PersistTo(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
}

// Replace swaps in a freshly loaded channel section. Overrides survive.
func (s *ChannelSettings) Replace(channels map[string]ChannelConfig) {
	normalized := make(map[string]ChannelConfig, len(channels))
	for name, ch := range channels {
		normalized[ChannelName(name)] = ch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = normalized
}

// Channels lists the configured channel IDs.
func (s *ChannelSettings) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, ChannelID(name))
	}
	return out
}

// ChannelSetting implements types.Settings. Unknown keys and channels read 0.
func (s *ChannelSettings) ChannelSetting(channelID, key string) int {
	name := ChannelName(channelID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.overrides[name][key]; ok {
		return v
	}
	ch := s.channels[name]
	switch key {
	case types.SettingCooldownSeconds:
		return ch.CooldownSeconds
	case types.SettingQuestEnabled:
		if ch.QuestEnabled == nil || *ch.QuestEnabled {
			return 1
		}
	}
	return 0
}

// QuestEnabled reports whether questing is on for the channel; channels
// without a setting default to enabled.
func (s *ChannelSettings) QuestEnabled(channelID string) bool {
	return s.ChannelSetting(channelID, types.SettingQuestEnabled) != 0
}

// SetChannelSetting implements types.SettingsWriter.
func (s *ChannelSettings) SetChannelSetting(channelID, key string, value int) {
	name := ChannelName(channelID)
	s.mu.Lock()
	if s.overrides[name] == nil {
		s.overrides[name] = map[string]int{}
	}
	s.overrides[name][key] = value
	path := s.path
	s.mu.Unlock()

	s.logger.Debug("channel setting changed", zap.String("channel", channelID), zap.String("key", key), zap.Int("value", value))
	fileKey, known := fileKeys[key]
	if path == "" || !known {
		return
	}
	if err := SaveChannelSetting(path, name, fileKey, value); err != nil {
		s.logger.Warn("persisting channel setting", zap.String("path", path), zap.Error(err))
	}
}

// IsModerator implements types.Permissions from the moderators list.
func (s *ChannelSettings) IsModerator(channelID string, p types.PlayerID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.channels[ChannelName(channelID)].Moderators {
		if types.NewPlayerID(m) == p {
			return true
		}
	}
	return false
}
