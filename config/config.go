// Package config provides configuration types, defaults and loading for
// questbot.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidCooldown is returned when a configured cooldown is below the minimum.
var ErrInvalidCooldown = errors.New("invalid cooldown")

// DefaultPath is where a default config is written when none exists.
const DefaultPath = ".questbot/config.yaml"

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"` // empty: stderr
	Development bool   `mapstructure:"development"`
}

// StorageConfig selects the player store.
type StorageConfig struct {
	Driver string        `mapstructure:"driver"` // "memory" or "sqlite"
	Path   string        `mapstructure:"path"`
	Cache  time.Duration `mapstructure:"cache_ttl"`
}

// ContentConfig locates the Lua content directory.
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

// EngineConfig holds engine timings.
type EngineConfig struct {
	Seed            int64         `mapstructure:"seed"` // 0: seed from the clock
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	JoinWindow      time.Duration `mapstructure:"join_window"`
	PhaseDuration   time.Duration `mapstructure:"phase_duration"`
	DefaultCooldown time.Duration `mapstructure:"default_cooldown"`
	MinCooldown     time.Duration `mapstructure:"min_cooldown"`
}

// ChannelConfig holds per-channel settings.
type ChannelConfig struct {
	CooldownSeconds int      `mapstructure:"cooldown_seconds"`
	QuestEnabled    *bool    `mapstructure:"quest_enabled"` // nil: enabled
	Moderators      []string `mapstructure:"moderators"`
}

// Config holds all configuration options for questbot.
type Config struct {
	Log      LogConfig                `mapstructure:"log"`
	Storage  StorageConfig            `mapstructure:"storage"`
	Content  ContentConfig            `mapstructure:"content"`
	Engine   EngineConfig             `mapstructure:"engine"`
	Channels map[string]ChannelConfig `mapstructure:"channels"`
}

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Driver: "memory", Path: ".questbot/players.db", Cache: 5 * time.Minute},
		Content: ContentConfig{Dir: "content"},
		Engine: EngineConfig{
			TickInterval:    250 * time.Millisecond,
			JoinWindow:      12 * time.Second,
			PhaseDuration:   12 * time.Second,
			DefaultCooldown: 90 * time.Second,
			MinCooldown:     5 * time.Second,
		},
		Channels: map[string]ChannelConfig{},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.cache_ttl", d.Storage.Cache)
	v.SetDefault("content.dir", d.Content.Dir)
	v.SetDefault("engine.seed", d.Engine.Seed)
	v.SetDefault("engine.tick_interval", d.Engine.TickInterval)
	v.SetDefault("engine.join_window", d.Engine.JoinWindow)
	v.SetDefault("engine.phase_duration", d.Engine.PhaseDuration)
	v.SetDefault("engine.default_cooldown", d.Engine.DefaultCooldown)
	v.SetDefault("engine.min_cooldown", d.Engine.MinCooldown)
}

// Load reads configuration into a fresh viper instance. With an explicit
// path the file is used (and created with defaults if missing). Otherwise
// the lookup order is:
//  1. .questbot/config.yaml (current directory)
//  2. ~/.config/questbot/config.yaml (user config)
//
// and a default file is written to DefaultPath when neither exists.
// QUESTBOT_* environment variables override file values.
func Load(path string) (Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("questbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := WriteDefaultConfig(path); err != nil {
				return Config{}, nil, err
			}
		}
		v.SetConfigFile(path)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "questbot"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, nil, fmt.Errorf("reading config: %w", err)
		}
		if err := WriteDefaultConfig(DefaultPath); err != nil {
			return Config{}, nil, err
		}
		v.SetConfigFile(DefaultPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, nil, fmt.Errorf("reading default config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, v, nil
}

// decode unmarshals and validates the current viper state.
func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Channels == nil {
		cfg.Channels = map[string]ChannelConfig{}
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func Validate(cfg Config) error {
	switch cfg.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.driver %q: must be memory or sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.Path == "" {
		return errors.New("storage.path is required for the sqlite driver")
	}
	e := cfg.Engine
	for name, d := range map[string]time.Duration{
		"engine.tick_interval":  e.TickInterval,
		"engine.join_window":    e.JoinWindow,
		"engine.phase_duration": e.PhaseDuration,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if e.DefaultCooldown < e.MinCooldown {
		return fmt.Errorf("engine.default_cooldown %s below engine.min_cooldown %s: %w",
			e.DefaultCooldown, e.MinCooldown, ErrInvalidCooldown)
	}
	for name, ch := range cfg.Channels {
		if ch.CooldownSeconds == 0 {
			continue
		}
		if time.Duration(ch.CooldownSeconds)*time.Second < e.MinCooldown {
			return fmt.Errorf("channels.%s.cooldown_seconds %d below %s: %w",
				name, ch.CooldownSeconds, e.MinCooldown, ErrInvalidCooldown)
		}
	}
	return nil
}

// ChannelName maps a channel ID such as "#streamer" to its config key.
func ChannelName(channelID string) string {
	return strings.ToLower(strings.TrimPrefix(channelID, "#"))
}

// ChannelID maps a config key back to a channel ID.
func ChannelID(name string) string {
	return "#" + ChannelName(name)
}
