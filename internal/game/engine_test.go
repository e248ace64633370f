package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pixeldungeon/turnengine/internal/game/rules"
	"github.com/pixeldungeon/turnengine/internal/save"
)

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *eventLog, ActorID, []ActorID) {
	t.Helper()
	world, pid, ai := newTestWorld(120, 220)
	bus := rules.NewEventBus()
	log := subscribeLog(bus)
	opts = append(opts, WithSchedulerOptions(WithDecider(attackDecider())))
	return NewEngine(world, bus, zaptest.NewLogger(t), opts...), log, pid, ai
}

func TestEngine_StepPublishesTurnBoundaries(t *testing.T) {
	engine, log, _, _ := newTestEngine(t)

	_, err := engine.Submit(PlayerAction{Type: PlayerAttack})
	require.NoError(t, err)
	report := engine.Step()

	assert.Equal(t, uint64(1), report.Frame)
	assert.True(t, report.Cycle.TurnCompleted)
	assert.Equal(t, []rules.EventKind{
		rules.KindAITurnStarted,
		rules.KindTurnEnded,
		rules.KindPlayerTurnStarted,
	}, log.kinds(rules.KindAITurnStarted, rules.KindTurnEnded, rules.KindPlayerTurnStarted))

	for _, e := range log.events {
		switch ev := e.(type) {
		case rules.AITurnStarted:
			assert.Equal(t, uint32(0), ev.Turn)
		case rules.TurnEnded:
			assert.Equal(t, uint32(0), ev.Turn)
		case rules.PlayerTurnStarted:
			assert.Equal(t, uint32(1), ev.Turn)
		}
	}
	assert.Equal(t, 1, engine.Replay().Len())
}

func TestEngine_BoundaryEventsFrameTheAITurn(t *testing.T) {
	engine, log, pid, ai := newTestEngine(t)

	_, err := engine.Submit(PlayerAction{Type: PlayerAttack})
	require.NoError(t, err)
	engine.Step()

	index := func(match func(rules.Event) bool) int {
		for i, e := range log.events {
			if match(e) {
				return i
			}
		}
		return -1
	}
	lastIndex := func(match func(rules.Event) bool) int {
		last := -1
		for i, e := range log.events {
			if match(e) {
				last = i
			}
		}
		return last
	}
	isKind := func(kind rules.EventKind) func(rules.Event) bool {
		return func(e rules.Event) bool { return e.Kind() == kind }
	}

	playerDone := index(func(e rules.Event) bool {
		ev, ok := e.(rules.ActionCompleted)
		return ok && ev.Entity == pid
	})
	aiFirst := index(func(e rules.Event) bool {
		ev, ok := e.(rules.ActionCompleted)
		return ok && ev.Entity == ai[0]
	})
	aiStarted := index(isKind(rules.KindAITurnStarted))
	lastRegen := lastIndex(isKind(rules.KindEnergyRegenerated))
	ended := index(isKind(rules.KindTurnEnded))
	started := index(isKind(rules.KindPlayerTurnStarted))

	require.NotEqual(t, -1, playerDone)
	require.NotEqual(t, -1, aiFirst)
	require.NotEqual(t, -1, lastRegen)
	assert.Less(t, playerDone, aiStarted, "AI turn starts after the player's action resolves")
	assert.Less(t, aiStarted, aiFirst, "AI turn starts before any AI action")
	assert.Less(t, lastRegen, ended, "turn ends after regeneration")
	assert.Less(t, ended, started)
}

func TestEngine_IdleStepPublishesNothing(t *testing.T) {
	engine, log, _, _ := newTestEngine(t)

	report := engine.Step()
	assert.False(t, report.Cycle.TurnCompleted)
	assert.Zero(t, log.count(rules.KindTurnEnded))
	assert.Equal(t, uint64(1), engine.Frame())
}

func TestEngine_StepPromotesDelayedEvents(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	engine.Bus().PublishDelayed(rules.LogMessage{Message: "later"})

	report := engine.Step()
	assert.Equal(t, 1, report.Delayed)
	assert.Contains(t, engine.Bus().Drain(), rules.Event(rules.LogMessage{Message: "later"}))
}

func TestEngine_PauseResume(t *testing.T) {
	engine, log, _, _ := newTestEngine(t)

	engine.Pause()
	engine.Pause()
	assert.True(t, engine.Paused())
	_, err := engine.Submit(PlayerAction{Type: PlayerMove})
	require.NoError(t, err)

	report := engine.Step()
	assert.True(t, report.Skipped)
	assert.True(t, engine.Scheduler().HasPendingActions())

	engine.Resume()
	report = engine.Step()
	assert.False(t, report.Skipped)
	assert.True(t, report.Cycle.TurnCompleted)
	assert.Equal(t, 1, log.count(rules.KindGamePaused))
	assert.Equal(t, 1, log.count(rules.KindGameResumed))
}

func TestEngine_Quit(t *testing.T) {
	engine, log, _, _ := newTestEngine(t)

	_, err := engine.Submit(PlayerAction{Type: PlayerQuit})
	require.NoError(t, err)
	assert.True(t, engine.Over())
	assert.Equal(t, 1, log.count(rules.KindGameOver))

	_, err = engine.Submit(PlayerAction{Type: PlayerMove})
	assert.True(t, errors.Is(err, ErrGameOver))
	assert.True(t, engine.Step().Skipped)
}

func TestEngine_SubmitWithoutPlayer(t *testing.T) {
	bus := rules.NewEventBus()
	log := subscribeLog(bus)
	engine := NewEngine(NewWorld(), bus, nil)

	_, err := engine.Submit(PlayerAction{Type: PlayerMove})
	assert.Error(t, err)
	assert.Equal(t, 1, log.count(rules.KindActionFailed))
}

func TestEngine_Rollback(t *testing.T) {
	engine, _, pid, _ := newTestEngine(t)

	for i := 0; i < 3; i++ {
		_, err := engine.Submit(PlayerAction{Type: PlayerWait})
		require.NoError(t, err)
		engine.Step()
	}
	assert.Equal(t, uint32(3), engine.Scheduler().Meta().GlobalTurn)

	turn, ok := engine.Rollback(2)
	require.True(t, ok)
	assert.Equal(t, uint32(0), turn)
	assert.Equal(t, uint32(1), engine.Scheduler().Meta().GlobalTurn)
	assert.Equal(t, []uint32{0}, engine.Replay().Turns())

	player, _ := engine.World().Energy(pid)
	assert.Equal(t, uint32(71), player.Current)

	_, ok = engine.Rollback(5)
	assert.False(t, ok)
}

func TestEngine_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := save.NewFileStore(t.TempDir(), 4, zaptest.NewLogger(t))
	engine, log, pid, ai := newTestEngine(t, WithStore(store))

	_, err := engine.Submit(PlayerAction{Type: PlayerAttack})
	require.NoError(t, err)
	engine.Step()
	before := engine.Snapshot()

	require.NoError(t, engine.Save(ctx, 2))
	assert.Equal(t, 1, log.count(rules.KindGameSaved))

	_, err = engine.Submit(PlayerAction{Type: PlayerWait})
	require.NoError(t, err)
	engine.Step()
	assert.NotEqual(t, before.Checksum(), engine.Snapshot().Checksum())

	require.NoError(t, engine.Load(ctx, 2))
	assert.Equal(t, 1, log.count(rules.KindGameLoaded))
	assert.Equal(t, before.Checksum(), engine.Snapshot().Checksum())

	player, _ := engine.World().Energy(pid)
	goblin, _ := engine.World().Energy(ai[0])
	assert.Equal(t, uint32(21), player.Current)
	assert.Equal(t, uint32(21), goblin.Current)

	err = engine.Load(ctx, 3)
	assert.True(t, errors.Is(err, save.ErrSlotNotFound))
}

func TestEngine_SaveWithoutStore(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	assert.True(t, errors.Is(engine.Save(context.Background(), 0), ErrNoStore))
	assert.True(t, errors.Is(engine.Load(context.Background(), 0), ErrNoStore))
}

func TestEngine_ConcurrentSubmitAndStep(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = engine.Submit(PlayerAction{Type: PlayerWait})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				engine.Step()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(100), engine.Frame())
	assert.LessOrEqual(t, engine.Replay().Len(), DefaultRollbackTurns)
}
