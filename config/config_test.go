package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_WritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, v, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	assert.Equal(t, path, v.ConfigFileUsed())

	d := Defaults()
	assert.Equal(t, d.Engine, cfg.Engine)
	assert.Equal(t, d.Storage, cfg.Storage)
	assert.Equal(t, "info", cfg.Log.Level)

	streamer, ok := cfg.Channels["streamer"]
	require.True(t, ok, "default file carries a sample channel")
	assert.Equal(t, 90, streamer.CooldownSeconds)
	require.NotNil(t, streamer.QuestEnabled)
	assert.True(t, *streamer.QuestEnabled)
}

func TestLoad_ReadsValues(t *testing.T) {
	path := writeConfig(t, `
engine:
  join_window: 20s
  min_cooldown: 10s
storage:
  driver: sqlite
  path: /tmp/players.db
channels:
  Alice:
    cooldown_seconds: 30
    quest_enabled: false
    moderators: [Bob]
`)
	cfg, _, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.Engine.JoinWindow)
	assert.Equal(t, 12*time.Second, cfg.Engine.PhaseDuration, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Storage.Driver)

	alice := cfg.Channels["alice"]
	assert.Equal(t, 30, alice.CooldownSeconds)
	require.NotNil(t, alice.QuestEnabled)
	assert.False(t, *alice.QuestEnabled)
	assert.Equal(t, []string{"Bob"}, alice.Moderators)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	t.Setenv("QUESTBOT_LOG_LEVEL", "debug")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsShortChannelCooldown(t *testing.T) {
	path := writeConfig(t, `
channels:
  streamer:
    cooldown_seconds: 2
`)
	_, _, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidCooldown)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }, false},
		{"sqlite without path", func(c *Config) { c.Storage.Driver, c.Storage.Path = "sqlite", "" }, false},
		{"zero tick", func(c *Config) { c.Engine.TickInterval = 0 }, false},
		{"default below minimum", func(c *Config) { c.Engine.DefaultCooldown = time.Second }, false},
		{"channel cooldown ok", func(c *Config) { c.Channels["x"] = ChannelConfig{CooldownSeconds: 5} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestChannelSettings(t *testing.T) {
	off := false
	s := NewChannelSettings(map[string]ChannelConfig{
		"Streamer": {CooldownSeconds: 60, Moderators: []string{"Mod"}},
		"quiet":    {QuestEnabled: &off},
	}, nil)

	assert.Equal(t, 60, s.ChannelSetting("#streamer", "cooldownSeconds"))
	assert.True(t, s.QuestEnabled("#streamer"))
	assert.False(t, s.QuestEnabled("#quiet"))
	assert.True(t, s.QuestEnabled("#unknown"), "unknown channels default to enabled")
	assert.Equal(t, 0, s.ChannelSetting("#unknown", "cooldownSeconds"))

	assert.True(t, s.IsModerator("#streamer", "mod"))
	assert.False(t, s.IsModerator("#streamer", "viewer"))
	assert.False(t, s.IsModerator("#quiet", "mod"))

	s.SetChannelSetting("#streamer", "cooldownSeconds", 15)
	assert.Equal(t, 15, s.ChannelSetting("#streamer", "cooldownSeconds"))

	// A reload replaces file values but keeps operator overrides.
	s.Replace(map[string]ChannelConfig{"streamer": {CooldownSeconds: 120}})
	assert.Equal(t, 15, s.ChannelSetting("#streamer", "cooldownSeconds"))
	assert.False(t, s.IsModerator("#streamer", "mod"))
	assert.ElementsMatch(t, []string{"#streamer"}, s.Channels())
}

func TestSaveChannelSetting_KeepsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SaveChannelSetting(path, "streamer", "cooldown_seconds", 45))
	require.NoError(t, SaveChannelSetting(path, "newcomer", "quest_enabled", 0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# questbot configuration")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Channels["streamer"].CooldownSeconds)
	require.NotNil(t, cfg.Channels["newcomer"].QuestEnabled)
	assert.False(t, *cfg.Channels["newcomer"].QuestEnabled)
}

func TestChannelSettings_PersistTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	s := NewChannelSettings(nil, zap.NewNop())
	s.PersistTo(path)
	s.SetChannelSetting("#streamer", "cooldownSeconds", 33)

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 33, cfg.Channels["streamer"].CooldownSeconds)
}

func TestReload(t *testing.T) {
	path := writeConfig(t, "channels:\n  streamer:\n    cooldown_seconds: 30\n")
	_, v, err := Load(path)
	require.NoError(t, err)
	s := NewChannelSettings(nil, nil)

	require.NoError(t, os.WriteFile(path, []byte("channels:\n  streamer:\n    cooldown_seconds: 40\n"), 0o600))
	require.NoError(t, v.ReadInConfig())
	reload(v, s, zap.NewNop(), fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Equal(t, 40, s.ChannelSetting("#streamer", "cooldownSeconds"))

	// An invalid edit keeps the previous values.
	require.NoError(t, os.WriteFile(path, []byte("channels:\n  streamer:\n    cooldown_seconds: 1\n"), 0o600))
	require.NoError(t, v.ReadInConfig())
	reload(v, s, zap.NewNop(), fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Equal(t, 40, s.ChannelSetting("#streamer", "cooldownSeconds"))
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "streamer", ChannelName("#Streamer"))
	assert.Equal(t, "#streamer", ChannelID("streamer"))
	assert.Equal(t, "#streamer", ChannelID("#streamer"))
}
