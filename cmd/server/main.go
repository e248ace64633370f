package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pixeldungeon/turnengine/internal/config"
)

var version = "dev" // set via ldflags during build

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command. Every subcommand shares the
// --config flag and the TPD_ environment overrides.
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "turnengine",
		Short:         "Turn scheduler and event bus for a roguelike core",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	cmd.AddCommand(newSimulateCmd(&configPath))
	cmd.AddCommand(newServeCmd(&configPath))
	return cmd
}

// loadConfig reads the config file and layers explicitly set flags on top.
func loadConfig(cmd *cobra.Command, path string, flags map[string]string) (*config.Config, *viper.Viper, error) {
	v := config.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	for key, flag := range flags {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// parseLevel maps a configured level name onto zap, defaulting to info.
func parseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// initLogger initializes the zap logger based on configuration. The
// returned level can be changed while the logger is in use.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	logger, err := zapCfg.Build()
	return logger, zapCfg.Level, err
}
