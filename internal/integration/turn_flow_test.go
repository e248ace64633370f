package integration

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/pixeldungeon/turnengine/internal/game"
	"github.com/pixeldungeon/turnengine/internal/game/energy"
	"github.com/pixeldungeon/turnengine/internal/game/rules"
	"github.com/pixeldungeon/turnengine/internal/game/watchers"
	"github.com/pixeldungeon/turnengine/internal/save"
)

const hitDamage = 7

type dungeon struct {
	engine   *game.Engine
	bus      *rules.EventBus
	player   game.ActorID
	ai       game.ActorID
	damage   *watchers.DamageWatcher
	deaths   *watchers.DeathsWatcher
	turns    *watchers.TurnsWatcher
	registry *rules.WatcherRegistry
}

func alwaysAttack(game.ActorID, game.ActorStore) (game.AIAction, bool) {
	return game.AIAction{Type: game.AIAttack}, true
}

// newDungeon wires an engine with a 120 energy player, a 220 energy AI,
// an attack trigger and the stock watchers.
func newDungeon(t *testing.T, bus *rules.EventBus, opts ...game.EngineOption) *dungeon {
	t.Helper()
	world := game.NewWorld()
	d := &dungeon{
		bus:    bus,
		player: world.AddPlayer("hero", energy.Energy{Current: 120, Max: 120}),
		ai:     world.AddAI("troll", energy.Energy{Current: 220, Max: 220}),
	}

	opts = append(opts, game.WithSchedulerOptions(game.WithDecider(game.DeciderFunc(alwaysAttack))))
	d.engine = game.NewEngine(world, bus, zaptest.NewLogger(t), opts...)
	d.bus = d.engine.Bus()

	triggers := rules.NewTriggerManager(d.bus)
	triggers.Register(rules.Trigger{
		Kind: rules.KindActionCompleted,
		Condition: func(e rules.Event) bool {
			return e.(rules.ActionCompleted).ActionType == game.AIAttack.String()
		},
		Build: func(e rules.Event) rules.Event {
			return rules.DamageDealt{Attacker: e.(rules.ActionCompleted).Entity, Victim: d.player, Damage: hitDamage}
		},
		Phase:    rules.PhaseAftermath,
		Priority: rules.PriorityNormal,
	})
	d.bus.SubscribeAll(triggers)

	d.damage = watchers.NewDamageWatcher()
	d.deaths = watchers.NewDeathsWatcher()
	d.turns = watchers.NewTurnsWatcher(2)
	d.registry = rules.NewWatcherRegistry()
	d.registry.AddWatcher(d.damage)
	d.registry.AddWatcher(d.deaths)
	d.registry.AddWatcher(d.turns)
	d.bus.SubscribeAll(d.registry)
	return d
}

func (d *dungeon) play(t *testing.T, action game.PlayerAction) game.StepReport {
	t.Helper()
	if _, err := d.engine.Submit(action); err != nil {
		t.Fatalf("submit %s: %v", action.ActionName(), err)
	}
	return d.engine.Step()
}

func (d *dungeon) energyOf(t *testing.T, id game.ActorID) uint32 {
	t.Helper()
	e, ok := d.engine.World().Energy(id)
	if !ok {
		t.Fatalf("actor %d has no energy ledger", id)
	}
	return e.Current
}

func TestTurnCycleDrivesTriggersAndWatchers(t *testing.T) {
	d := newDungeon(t, nil)

	var aftermath []rules.EventKind
	d.bus.SubscribeAll(rules.NewHandler("aftermath-only", func(e rules.Event) {
		aftermath = append(aftermath, e.Kind())
	}, rules.WithPhases(rules.PhaseAftermath)))

	report := d.play(t, game.PlayerAction{Type: game.PlayerMove, Direction: game.DirNorth})

	if !report.Cycle.TurnCompleted {
		t.Fatalf("expected the frame to complete a turn")
	}
	if report.Cycle.AIActions != 2 {
		t.Fatalf("expected 2 AI actions, got %d", report.Cycle.AIActions)
	}
	if got := d.energyOf(t, d.player); got != 21 {
		t.Fatalf("expected player energy 21, got %d", got)
	}
	if got := d.energyOf(t, d.ai); got != 21 {
		t.Fatalf("expected AI energy 21, got %d", got)
	}

	if got := d.damage.DamageBy(d.ai); got != 2*hitDamage {
		t.Fatalf("expected %d damage by the AI, got %d", 2*hitDamage, got)
	}
	if d.turns.Completed() != 1 || d.turns.LastTurn() != 0 {
		t.Fatalf("expected one watched turn ending turn 0, got %d ending %d", d.turns.Completed(), d.turns.LastTurn())
	}

	want := []rules.EventKind{
		rules.KindPhaseChanged,
		rules.KindDamageDealt,
		rules.KindDamageDealt,
		rules.KindEnergyRegenerated,
		rules.KindEnergyRegenerated,
	}
	if len(aftermath) != len(want) {
		t.Fatalf("expected aftermath events %v, got %v", want, aftermath)
	}
	for i := range want {
		if aftermath[i] != want[i] {
			t.Fatalf("aftermath event %d: expected %s, got %s", i, want[i], aftermath[i])
		}
	}
}

func TestInputHandlerNeverSeesResolution(t *testing.T) {
	d := newDungeon(t, nil)

	seen := map[rules.EventKind]int{}
	d.bus.SubscribeAll(rules.NewHandler("input-only", func(e rules.Event) {
		seen[e.Kind()]++
	}, rules.WithPhases(rules.PhaseInput)))

	for i := 0; i < 3; i++ {
		d.play(t, game.PlayerAction{Type: game.PlayerWait})
	}

	if seen[rules.KindActionCompleted] != 0 {
		t.Fatalf("input handler saw %d ActionCompleted events", seen[rules.KindActionCompleted])
	}
	if seen[rules.KindActionIntended] != 3 {
		t.Fatalf("expected 3 player intents in the input phase, got %d", seen[rules.KindActionIntended])
	}
	if !d.turns.ConditionMet() {
		t.Fatalf("expected the turns watcher to be satisfied after 3 turns")
	}
}

func TestDeathStormIsBoundedAndComplete(t *testing.T) {
	d := newDungeon(t, rules.NewEventBus(rules.WithMaxDepth(10)))

	d.bus.Subscribe(rules.KindEntityDied, rules.NewHandler("chain", func(e rules.Event) {
		died := e.(rules.EntityDied)
		if died.Entity < 12 {
			d.bus.Publish(rules.EntityDied{Entity: died.Entity + 1, Killer: died.Entity})
		}
		if depth := d.bus.Depth(); depth > d.bus.MaxDepth() {
			t.Errorf("dispatch depth %d exceeds %d", depth, d.bus.MaxDepth())
		}
	}))

	d.bus.Publish(rules.EntityDied{Entity: 1, Name: "patient zero"})

	if got := d.deaths.TotalDeaths(); got != 12 {
		t.Fatalf("expected 12 deaths, got %d", got)
	}
	stats := d.bus.Stats()
	if stats.Deferred != 2 || stats.Flushed != 2 {
		t.Fatalf("expected two deferred and flushed publishes, got %+v", stats)
	}
	if d.bus.BufferedLen() != 0 || d.bus.Depth() != 0 {
		t.Fatalf("bus not unwound: depth %d buffered %d", d.bus.Depth(), d.bus.BufferedLen())
	}
}

func TestMutedKindsStillReachHistory(t *testing.T) {
	bus := rules.NewEventBus()
	mute, err := rules.NewKindFilterMiddleware("mute", rules.PriorityHigh, "Energy*")
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	bus.RegisterMiddleware(mute)
	d := newDungeon(t, bus)

	delivered := 0
	d.bus.Subscribe(rules.KindEnergyRegenerated, rules.NewHandler("regen", func(rules.Event) {
		delivered++
	}))

	d.play(t, game.PlayerAction{Type: game.PlayerWait})

	if delivered != 0 {
		t.Fatalf("muted events reached %d handler calls", delivered)
	}
	historized := 0
	for _, rec := range d.bus.Records(0) {
		if rec.Event.Kind() == rules.KindEnergyRegenerated {
			if !rec.ShortCircuited {
				t.Fatalf("muted record not marked short-circuited")
			}
			historized++
		}
	}
	if historized != 2 {
		t.Fatalf("expected 2 EnergyRegenerated records in history, got %d", historized)
	}
}

func TestSaveLoadAcrossEngines(t *testing.T) {
	store := save.NewFileStore(t.TempDir(), save.DefaultMaxSlots, zaptest.NewLogger(t))
	ctx := context.Background()

	first := newDungeon(t, nil, game.WithStore(store))
	first.play(t, game.PlayerAction{Type: game.PlayerWait})
	first.play(t, game.PlayerAction{Type: game.PlayerAttack, Direction: game.DirEast})
	if err := first.engine.Save(ctx, 2); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := newDungeon(t, nil, game.WithStore(store))
	if err := second.engine.Load(ctx, 2); err != nil {
		t.Fatalf("load: %v", err)
	}
	if a, b := first.engine.Snapshot().Checksum(), second.engine.Snapshot().Checksum(); a != b {
		t.Fatalf("checksum mismatch after load: %x != %x", a, b)
	}

	move := game.PlayerAction{Type: game.PlayerMove, Direction: game.DirSouth}
	first.play(t, move)
	second.play(t, move)
	if a, b := first.engine.Snapshot().Checksum(), second.engine.Snapshot().Checksum(); a != b {
		t.Fatalf("engines diverged after load: %x != %x", a, b)
	}
	if got := second.engine.Scheduler().Meta().GlobalTurn; got != 3 {
		t.Fatalf("expected global turn 3, got %d", got)
	}
}
