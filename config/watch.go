package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Watch reloads the channel section into settings whenever the config file
// changes. An invalid edit is logged and the previous values stay.
func Watch(v *viper.Viper, settings *ChannelSettings, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("config")
	v.OnConfigChange(func(e fsnotify.Event) {
		reload(v, settings, logger, e)
	})
	v.WatchConfig()
	logger.Debug("watching config", zap.String("path", v.ConfigFileUsed()))
}

func reload(v *viper.Viper, settings *ChannelSettings, logger *zap.Logger, e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	cfg, err := decode(v)
	if err != nil {
		logger.Warn("ignoring config change", zap.String("file", e.Name), zap.Error(err))
		return
	}
	settings.Replace(cfg.Channels)
	logger.Info("config reloaded", zap.String("file", e.Name), zap.Int("channels", len(cfg.Channels)))
}
