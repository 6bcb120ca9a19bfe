package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nathoo/questbot/config"
	"github.com/nathoo/questbot/engine"
	"github.com/nathoo/questbot/engine/encounters"
	"github.com/nathoo/questbot/loader"
	"github.com/nathoo/questbot/logging"
	"github.com/nathoo/questbot/store/memory"
	"github.com/nathoo/questbot/store/sqlite"
	"github.com/nathoo/questbot/types"
)

// defaultLogFile is used by the simulator, which owns the terminal.
const defaultLogFile = ".questbot/questbot.log"

// playerStore is what the engine needs from a player store.
type playerStore interface {
	types.Ledger
	types.Profiles
}

// app is the wiring shared by the subcommands.
type app struct {
	cfg      config.Config
	viper    *viper.Viper
	logger   *zap.Logger
	settings *config.ChannelSettings
	content  *loader.Content
	store    playerStore
	closers  []func() error
}

// setupOptions vary per subcommand.
type setupOptions struct {
	logFile string // used when log.file is empty
	persist bool   // write operator changes back to the config file
	watch   bool   // reload channel settings when the file changes
}

func setup(f *flags, so setupOptions) (*app, error) {
	cfg, v, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.content != "" {
		cfg.Content.Dir = f.content
	}
	if f.seed != 0 {
		cfg.Engine.Seed = f.seed
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = so.logFile
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		File:        logFile,
		Development: cfg.Log.Development,
		Verbose:     f.verbose,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, viper: v, logger: logger}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	a.content, err = loadContent(cfg.Content.Dir, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store, err = openStore(cfg.Storage, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := a.store.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	a.settings = config.NewChannelSettings(cfg.Channels, logger)
	if so.persist {
		a.settings.PersistTo(v.ConfigFileUsed())
	}
	if so.watch {
		config.Watch(v, a.settings, logger)
	}
	return a, nil
}

// loadContent loads Lua content. A missing directory means stock content.
func loadContent(dir string, logger *zap.Logger) (*loader.Content, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.Info("no content directory, using built-in encounters", zap.String("dir", dir))
		return &loader.Content{}, nil
	}
	content, err := loader.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}
	for _, w := range content.Warnings {
		logger.Warn("content", zap.String("warning", w))
	}
	logger.Debug("content loaded", zap.String("dir", dir), zap.Strings("files", content.Files))
	return content, nil
}

func openStore(sc config.StorageConfig, logger *zap.Logger) (playerStore, error) {
	switch sc.Driver {
	case "sqlite":
		if dir := filepath.Dir(sc.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("creating storage directory: %w", err)
			}
		}
		return sqlite.Open(sc.Path, sqlite.Options{CacheTTL: sc.Cache, Logger: logger})
	default:
		return memory.New(), nil
	}
}

// engineOptions merges config and content timings.
func (a *app) engineOptions() engine.Options {
	e := a.cfg.Engine
	opts := engine.DefaultOptions()
	opts.Session.JoinWindow = e.JoinWindow
	opts.Session.PhaseDuration = e.PhaseDuration
	opts.Session.DefaultCooldown = e.DefaultCooldown
	opts.MinCooldown = e.MinCooldown
	opts.TickInterval = e.TickInterval
	opts.Seed = e.Seed
	opts.Logger = a.logger
	a.content.Apply(&opts)
	return opts
}

// newEngine builds the engine, registers the encounters and joins every
// configured channel plus channelID.
func (a *app) newEngine(messenger types.Messenger, start time.Time, channelID string) (*engine.Engine, error) {
	eng := engine.New(a.engineOptions(), engine.Deps{
		Messenger:      messenger,
		Ledger:         a.store,
		Profiles:       a.store,
		Settings:       a.settings,
		SettingsWriter: a.settings,
		Permissions:    a.settings,
	}, start)

	n, err := encounters.Register(eng.RegisterVariant, a.content.Overrides())
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.New("every encounter is disabled")
	}
	a.logger.Info("encounters registered", zap.Int("count", n), zap.Ints("party_sizes", eng.Registry().Sizes()))

	for _, id := range a.settings.Channels() {
		eng.Join(id)
	}
	eng.Join(channelID)
	return eng, nil
}

// channelID picks the channel to chat in.
func (a *app) channelID(f *flags) string {
	if f.channel != "" {
		return config.ChannelID(strings.ToLower(f.channel))
	}
	ids := a.settings.Channels()
	if len(ids) == 0 {
		return "#streamer"
	}
	return slices.Min(ids)
}

// Close releases the store and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown", zap.Error(err))
		}
	}
}
