package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSimulateCmd runs headless frames with a scripted player.
func newSimulateCmd(configPath *string) *cobra.Command {
	var (
		frames int
		slot   int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run frames headlessly and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, *configPath, nil)
			if err != nil {
				return err
			}
			logger, _, err := initLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			summary := simulate(rt, frames)
			if slot >= 0 {
				if err := rt.engine.Save(ctx, slot); err != nil {
					return err
				}
				logger.Info("saved simulation", zap.Int("slot", slot))
			}

			cmd.Printf("frames:        %d\n", summary.frames)
			cmd.Printf("turns:         %d\n", summary.turns)
			cmd.Printf("player acts:   %d\n", summary.playerActions)
			cmd.Printf("ai acts:       %d\n", summary.aiActions)
			cmd.Printf("player damage: %d\n", rt.damage.DamageBy(rt.player))
			cmd.Printf("turns watched: %d/%d\n", rt.turns.Completed(), turnGoal)
			cmd.Printf("watchers met:  %v\n", rt.watchers.Met())
			cmd.Printf("bus stats:     %+v\n", rt.bus.Stats())
			cmd.Printf("checksum:      %016x\n", summary.checksum)
			return nil
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 20, "number of frames to run")
	cmd.Flags().IntVar(&slot, "save-slot", -1, "save slot to write when done (negative skips saving)")
	return cmd
}

type simulationSummary struct {
	frames        int
	turns         int
	playerActions int
	aiActions     int
	checksum      uint64
}

// simulate feeds the script to the engine, one action per frame.
func simulate(rt *runtime, frames int) simulationSummary {
	var out simulationSummary
	for i := 0; i < frames; i++ {
		if _, err := rt.engine.Submit(script[i%len(script)]); err != nil {
			break
		}
		report := rt.engine.Step()
		out.frames++
		out.playerActions += report.Cycle.PlayerActions
		out.aiActions += report.Cycle.AIActions
		if report.Cycle.TurnCompleted {
			out.turns++
		}
	}
	out.checksum = rt.engine.Snapshot().Checksum()
	return out
}

