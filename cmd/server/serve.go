package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pixeldungeon/turnengine/internal/config"
	"github.com/pixeldungeon/turnengine/internal/server"
)

// newServeCmd runs the engine on a ticker and streams events over
// websocket.
func newServeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and stream bus events to websocket clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, v, err := loadConfig(cmd, *configPath, map[string]string{
				"server.addr": "addr",
				"server.tick": "tick",
			})
			if err != nil {
				return err
			}
			logger, level, err := initLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			if *configPath != "" {
				config.Watch(v, func(next *config.Config) {
					level.SetLevel(parseLevel(next.Logging.Level))
					logger.Info("config reloaded", zap.String("log_level", next.Logging.Level))
				}, func(err error) {
					logger.Warn("ignoring config change", zap.Error(err))
				})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := server.New(rt.engine, cfg.Server.Addr, cfg.Server.Tick, rt.registry, logger.Named("server"))
			logger.Info("starting turn engine",
				zap.String("version", version),
				zap.String("addr", cfg.Server.Addr),
				zap.Duration("tick", cfg.Server.Tick))

			if err := srv.Run(ctx); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("tick", 500*time.Millisecond, "frame interval")
	return cmd
}
