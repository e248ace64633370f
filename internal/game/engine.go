package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pixeldungeon/turnengine/internal/game/rules"
	"github.com/pixeldungeon/turnengine/internal/save"
)

// ErrNoStore is returned by Save and Load when the engine has no store.
var ErrNoStore = errors.New("engine has no save store")

// ErrGameOver is returned by Submit once the player has quit.
var ErrGameOver = errors.New("game is over")

// StepReport is what one Engine.Step did.
type StepReport struct {
	Frame uint64
	Cycle CycleReport
	// Delayed is the number of delayed events promoted at the frame end.
	Delayed int
	Skipped bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStore sets the save store used by Save and Load.
func WithStore(store save.Store) EngineOption {
	return func(e *Engine) { e.store = store }
}

// WithSchedulerOptions passes options through to the turn scheduler.
func WithSchedulerOptions(opts ...SchedulerOption) EngineOption {
	return func(e *Engine) { e.schedOpts = append(e.schedOpts, opts...) }
}

// WithRollbackTurns sets how many completed turns are kept for Rollback.
func WithRollbackTurns(n int) EngineOption {
	return func(e *Engine) { e.replay = NewReplay(n) }
}

// Engine runs the game loop: it feeds player input to the scheduler,
// announces turn boundaries on the bus and closes each frame. All methods
// are safe for concurrent use; bus handlers run on the calling goroutine
// while the engine lock is held and must not call back into the engine.
type Engine struct {
	logger    *zap.Logger
	mu        sync.Mutex
	world     *World
	bus       *rules.EventBus
	scheduler *TurnScheduler
	store     save.Store
	replay    *Replay
	schedOpts []SchedulerOption

	frame  uint64
	paused bool
	over   bool
}

// NewEngine wires a scheduler for world onto bus.
func NewEngine(world *World, bus *rules.EventBus, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = rules.NewEventBus(rules.WithLogger(logger))
	}
	e := &Engine{
		logger: logger,
		world:  world,
		bus:    bus,
		replay: NewReplay(DefaultRollbackTurns),
	}
	for _, opt := range opts {
		opt(e)
	}
	schedOpts := append([]SchedulerOption{WithBus(bus), WithSchedulerLogger(logger)}, e.schedOpts...)
	// Boundary events are the engine's; a caller's transition hook is replaced.
	schedOpts = append(schedOpts, WithTransitionHook(e.announce))
	e.scheduler = NewTurnScheduler(world, NewInputBuffer(), schedOpts...)
	return e
}

// Bus returns the engine's event bus. Callers must not use it while a Step
// may be running on another goroutine; use Subscribe instead.
func (e *Engine) Bus() *rules.EventBus { return e.bus }

// Scheduler returns the turn scheduler.
func (e *Engine) Scheduler() *TurnScheduler { return e.scheduler }

// World returns the actor store.
func (e *Engine) World() *World { return e.world }

// Replay returns the rollback history.
func (e *Engine) Replay() *Replay { return e.replay }

// Subscribe registers h for every event under the engine lock.
func (e *Engine) Subscribe(h rules.Handler) rules.SubscriptionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bus.SubscribeAll(h)
}

// Unsubscribe removes a registration made through Subscribe.
func (e *Engine) Unsubscribe(id rules.SubscriptionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bus.Unsubscribe(id)
}

// Submit queues a completed player action for the next Step. Quitting ends
// the game immediately and publishes GameOver.
func (e *Engine) Submit(action PlayerAction) (ActionID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.over {
		return ActionID{}, ErrGameOver
	}
	if _, ok := e.world.PlayerID(); !ok {
		e.bus.Publish(rules.ActionFailed{ActionType: action.ActionName(), Reason: "no player"})
		return ActionID{}, fmt.Errorf("submit %s: no player actor", action.ActionName())
	}

	id := e.scheduler.Input().Submit(action)
	if action.Type == PlayerQuit {
		e.over = true
		e.bus.Publish(rules.GameOver{Reason: "quit"})
		e.logger.Info("player quit", zap.Uint32("turn", e.scheduler.Meta().GlobalTurn))
	}
	return id, nil
}

// Step runs one frame: a scheduler cycle and the promotion of delayed
// events. Turn boundary events are published by announce while the cycle
// runs.
func (e *Engine) Step() StepReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.frame++
	report := StepReport{Frame: e.frame}
	if e.paused || e.over {
		report.Skipped = true
		return report
	}

	report.Cycle = e.scheduler.ProcessTurnCycle()
	if report.Cycle.TurnCompleted {
		e.replay.Record(report.Cycle.CompletedTurn, e.scheduler.Snapshot())
	}
	report.Delayed = e.bus.NextFrame()
	return report
}

// announce publishes the boundary events for a scheduler transition. It is
// called from inside ProcessTurnCycle with e.mu already held. The AI to
// player transition happens after the turn counter advanced, so the turn
// that ended is the previous one.
func (e *Engine) announce(t Transition) {
	switch t.To {
	case AITurn:
		e.bus.Publish(rules.AITurnStarted{Turn: t.GlobalTurn})
	case PlayerTurn:
		e.bus.Publish(rules.TurnEnded{Turn: t.GlobalTurn - 1})
		e.bus.Publish(rules.PlayerTurnStarted{Turn: t.GlobalTurn})
	}
}

// Pause stops Step from advancing the game.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return
	}
	e.paused = true
	e.bus.Publish(rules.GamePaused{})
}

// Resume undoes Pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return
	}
	e.paused = false
	e.bus.Publish(rules.GameResumed{})
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Over reports whether the game has ended.
func (e *Engine) Over() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.over
}

// Frame returns the number of Step calls made.
func (e *Engine) Frame() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Snapshot captures the scheduler state under the engine lock.
func (e *Engine) Snapshot() TurnSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.Snapshot()
}

// Rollback restores the state recorded n completed turns ago; Rollback(0)
// returns to the end of the latest turn. Newer recordings are discarded.
func (e *Engine) Rollback(n int) (uint32, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, turn, ok := e.replay.Back(n)
	if !ok {
		return 0, false
	}
	e.scheduler.Restore(snap)
	e.replay.Truncate(n)
	e.bus.SetCurrentPhase(snap.Meta.Phase)
	e.logger.Info("rolled back", zap.Uint32("turn", turn), zap.Int("turns_back", n))
	return turn, true
}

// Save writes the current turn state to slot.
func (e *Engine) Save(ctx context.Context, slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return ErrNoStore
	}
	playerID, _ := e.world.PlayerID()
	rec := ToRecord(e.scheduler.Snapshot(), playerID)
	if err := e.store.Save(ctx, slot, rec); err != nil {
		return fmt.Errorf("failed to save slot %d: %w", slot, err)
	}
	e.bus.Publish(rules.GameSaved{Slot: slot})
	return nil
}

// Load restores the turn state stored in slot. Actors missing from the
// world are skipped.
func (e *Engine) Load(ctx context.Context, slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return ErrNoStore
	}
	rec, err := e.store.Load(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to load slot %d: %w", slot, err)
	}
	snap, err := FromRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to decode slot %d: %w", slot, err)
	}

	restored := e.scheduler.Restore(snap)
	e.bus.SetCurrentPhase(snap.Meta.Phase)
	e.over = false
	e.bus.Publish(rules.GameLoaded{Slot: slot})
	e.logger.Info("loaded game",
		zap.Int("slot", slot),
		zap.Uint32("turn", snap.Meta.GlobalTurn),
		zap.Int("ledgers", restored))
	return nil
}
