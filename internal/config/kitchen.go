package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// KitchenConfig tunes the stale-ticket sweeper and station defaults.
type KitchenConfig struct {
	SweepInterval         time.Duration `mapstructure:"sweepInterval"`
	SweepTimeout          time.Duration `mapstructure:"sweepTimeout"`
	DefaultPrepTime       int           `mapstructure:"defaultPrepTime"`
	DefaultAlertThreshold int           `mapstructure:"defaultAlertThreshold"`
}

func DefaultKitchenConfig() KitchenConfig {
	return KitchenConfig{
		SweepInterval:         30 * time.Second,
		SweepTimeout:          10 * time.Second,
		DefaultPrepTime:       15,
		DefaultAlertThreshold: 20,
	}
}

type KitchenConfigHolder struct {
	current atomic.Value // holds KitchenConfig
}

// NewStaticKitchenConfigHolder wraps a fixed config; used by tests and callers without a config file.
func NewStaticKitchenConfigHolder(cfg KitchenConfig) *KitchenConfigHolder {
	holder := &KitchenConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewKitchenConfigHolder(appCfg Config, log *zap.Logger) (*KitchenConfigHolder, error) {
	v := viper.New()

	if appCfg.KitchenConfigPath != "" {
		v.SetConfigFile(appCfg.KitchenConfigPath)
	} else {
		v.SetConfigName("kitchen")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/dinein")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DINEIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultKitchenConfig()
	v.SetDefault("kitchen.sweepInterval", defaults.SweepInterval)
	v.SetDefault("kitchen.sweepTimeout", defaults.SweepTimeout)
	v.SetDefault("kitchen.defaultPrepTime", defaults.DefaultPrepTime)
	v.SetDefault("kitchen.defaultAlertThreshold", defaults.DefaultAlertThreshold)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if appCfg.KitchenConfigPath != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg KitchenConfig
	if err := v.UnmarshalKey("kitchen", &cfg); err != nil {
		return nil, err
	}
	if err := validateKitchenConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticKitchenConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated KitchenConfig
		if err := v.UnmarshalKey("kitchen", &updated); err != nil {
			log.Warn("kitchen config reload failed", zap.Error(err))
			return
		}
		if err := validateKitchenConfig(updated); err != nil {
			log.Warn("invalid kitchen config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("kitchen config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *KitchenConfigHolder) Get() KitchenConfig {
	if h == nil {
		return DefaultKitchenConfig()
	}
	cfg, ok := h.current.Load().(KitchenConfig)
	if !ok {
		return DefaultKitchenConfig()
	}
	return cfg
}

func validateKitchenConfig(cfg KitchenConfig) error {
	if cfg.SweepInterval <= 0 {
		return errors.New("kitchen.sweepInterval must be positive")
	}
	if cfg.SweepTimeout <= 0 {
		return errors.New("kitchen.sweepTimeout must be positive")
	}
	if cfg.DefaultPrepTime <= 0 {
		return errors.New("kitchen.defaultPrepTime must be positive")
	}
	if cfg.DefaultAlertThreshold <= 0 {
		return errors.New("kitchen.defaultAlertThreshold must be positive")
	}
	return nil
}
