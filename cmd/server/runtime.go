package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pixeldungeon/turnengine/internal/config"
	"github.com/pixeldungeon/turnengine/internal/game"
	"github.com/pixeldungeon/turnengine/internal/game/energy"
	"github.com/pixeldungeon/turnengine/internal/game/rules"
	"github.com/pixeldungeon/turnengine/internal/game/watchers"
	"github.com/pixeldungeon/turnengine/internal/save"
)

const (
	// attackDamage is what a completed attack deals in the demo dungeon.
	attackDamage = 5
	turnGoal     = 10
)

// runtime bundles everything a command needs.
type runtime struct {
	engine   *game.Engine
	bus      *rules.EventBus
	registry *prometheus.Registry
	watchers *rules.WatcherRegistry
	triggers *rules.TriggerManager
	damage   *watchers.DamageWatcher
	turns    *watchers.TurnsWatcher
	player   game.ActorID
	closers  []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// newRuntime builds the bus, the demo world and the engine from cfg.
func newRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	registry := prometheus.NewRegistry()
	metrics := rules.NewBusMetrics(registry)
	bus := rules.NewEventBus(
		rules.WithMetrics(metrics),
		rules.WithMaxDepth(cfg.Bus.MaxDepth),
		rules.WithHistorySize(cfg.Bus.HistorySize),
		rules.WithLogger(logger.Named("bus")),
	)
	bus.RegisterMiddleware(rules.NewLoggingMiddleware(logger.Named("events")))
	if len(cfg.Bus.Mute) > 0 {
		mute, err := rules.NewKindFilterMiddleware("mute", rules.PriorityHigh, cfg.Bus.Mute...)
		if err != nil {
			return nil, fmt.Errorf("failed to build mute filter: %w", err)
		}
		bus.RegisterMiddleware(mute)
	}
	bus.RegisterMiddleware(rules.NewMetricsMiddleware(metrics))

	rt := &runtime{bus: bus, registry: registry}

	world := game.NewWorld()
	rt.player = world.AddPlayer("hero", energy.New(energy.DefaultMax, 10))
	world.AddAI("rat", energy.New(80, 20))
	world.AddAI("goblin", energy.New(120, 15))
	world.AddAI("ogre", energy.New(200, 5))

	store, err := openStore(ctx, cfg.Save, logger, rt)
	if err != nil {
		return nil, err
	}

	rt.engine = game.NewEngine(world, bus, logger,
		game.WithStore(store),
		game.WithSchedulerOptions(
			game.WithDecider(game.DeciderFunc(decide)),
			game.WithActionThreshold(cfg.Scheduler.ActionThreshold),
			game.WithMinRegeneration(cfg.Scheduler.MinRegeneration),
		),
	)

	rt.triggers = rules.NewTriggerManager(bus)
	rt.triggers.Register(rules.Trigger{
		Kind:      rules.KindActionCompleted,
		Condition: isAttack,
		Build: func(e rules.Event) rules.Event {
			done := e.(rules.ActionCompleted)
			victim := rt.player
			if done.Entity == rt.player {
				ais := world.AIActors()
				if len(ais) == 0 {
					return nil
				}
				victim = ais[0]
			}
			return rules.DamageDealt{Attacker: done.Entity, Victim: victim, Damage: attackDamage}
		},
		Phase:    rules.PhaseAftermath,
		Priority: rules.PriorityNormal,
	})
	rt.triggers.Register(rules.Trigger{
		Kind: rules.KindTurnEnded,
		Build: func(rules.Event) rules.Event {
			return rules.UINotification{Message: "the dungeon stirs", Severity: "info"}
		},
		Phase:    rules.PhaseInput,
		Priority: rules.PriorityLow,
		Once:     true,
	})
	bus.SubscribeAll(rt.triggers)

	rt.watchers = rules.NewWatcherRegistry()
	rt.damage = watchers.NewDamageWatcher()
	rt.turns = watchers.NewTurnsWatcher(turnGoal)
	rt.watchers.AddWatcher(rt.damage)
	rt.watchers.AddWatcher(rt.turns)
	rt.watchers.AddWatcher(watchers.NewDeathsWatcher())
	rt.watchers.AddWatcher(watchers.NewItemsUsedWatcher(rt.player))
	bus.SubscribeAll(rt.watchers)

	return rt, nil
}

func openStore(ctx context.Context, cfg config.SaveConfig, logger *zap.Logger, rt *runtime) (save.Store, error) {
	if cfg.DSN == "" {
		return save.NewFileStore(cfg.Dir, cfg.MaxSlots, logger.Named("save")), nil
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt.closers = append(rt.closers, pool.Close)
	store := save.NewPostgresStore(pool, cfg.MaxSlots, logger.Named("save"))
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func isAttack(e rules.Event) bool {
	done, ok := e.(rules.ActionCompleted)
	if !ok || done.Cost == 0 {
		return false
	}
	return done.ActionType == game.PlayerAttack.String() || done.ActionType == game.AIAttack.String()
}

// decide makes even actors attack and odd actors wander.
func decide(id game.ActorID, _ game.ActorStore) (game.AIAction, bool) {
	if id%2 == 0 {
		return game.AIAction{Type: game.AIAttack}, true
	}
	return game.AIAction{Type: game.AIMove, Direction: game.Direction(1 + int(id)%8)}, true
}

// script is the scripted player used by simulate.
var script = []game.PlayerAction{
	{Type: game.PlayerMove, Direction: game.DirNorth},
	{Type: game.PlayerAttack, Direction: game.DirNorth},
	{Type: game.PlayerOpenInventory},
	{Type: game.PlayerWait},
}
