// Package config loads runtime settings from an optional YAML file, TPD_
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. TPD_BUS_MAX_DEPTH.
const EnvPrefix = "TPD"

// Config is the complete runtime configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Bus       BusConfig       `mapstructure:"bus"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Save      SaveConfig      `mapstructure:"save"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BusConfig sizes the event bus. Mute lists glob patterns of event kinds
// that are recorded but never reach handlers.
type BusConfig struct {
	MaxDepth    int      `mapstructure:"max_depth"`
	HistorySize int      `mapstructure:"history_size"`
	Mute        []string `mapstructure:"mute"`
}

// SchedulerConfig tunes energy accounting.
type SchedulerConfig struct {
	ActionThreshold uint32 `mapstructure:"action_threshold"`
	MinRegeneration uint32 `mapstructure:"min_regeneration"`
}

// SaveConfig picks the save store. A non-empty DSN selects PostgreSQL;
// otherwise saves go to Dir.
type SaveConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxSlots int    `mapstructure:"max_slots"`
	DSN      string `mapstructure:"dsn"`
}

// ServerConfig configures the HTTP surface and simulation tick.
type ServerConfig struct {
	Addr string        `mapstructure:"addr"`
	Tick time.Duration `mapstructure:"tick"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("bus.max_depth", 10)
	v.SetDefault("bus.history_size", 1000)
	v.SetDefault("bus.mute", []string{})
	v.SetDefault("scheduler.action_threshold", 100)
	v.SetDefault("scheduler.min_regeneration", 1)
	v.SetDefault("save.dir", "./saves")
	v.SetDefault("save.max_slots", 10)
	v.SetDefault("save.dsn", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tick", 500*time.Millisecond)
}

// New returns a viper instance with defaults and environment binding set
// up. Callers may bind flags on it before calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) on top of the defaults and environment.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Bus.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("bus.max_depth must be at least 1, got %d", c.Bus.MaxDepth))
	}
	if c.Bus.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("bus.history_size must be at least 1, got %d", c.Bus.HistorySize))
	}
	if c.Save.MaxSlots < 1 {
		errs = append(errs, fmt.Errorf("save.max_slots must be at least 1, got %d", c.Save.MaxSlots))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Watch re-decodes the configuration every time the file behind v changes.
// Valid results go to onChange; decode or validation failures go to onError
// and leave the previous settings in effect.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := FromViper(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
