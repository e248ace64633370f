package watchers

import (
	"testing"

	"github.com/pixeldungeon/turnengine/internal/game/rules"
)

func TestDamageWatcher(t *testing.T) {
	watcher := NewDamageWatcher()

	if watcher.ConditionMet() {
		t.Fatal("watcher should not have condition met initially")
	}

	watcher.Watch(rules.DamageDealt{Attacker: 1, Victim: 2, Damage: 7})
	watcher.Watch(rules.DamageDealt{Attacker: 1, Victim: 3, Damage: 5, IsCritical: true})
	watcher.Watch(rules.DamageDealt{Attacker: 2, Victim: 1, Damage: 4})
	watcher.Watch(rules.EntityMoved{Entity: 1})

	if !watcher.ConditionMet() {
		t.Fatal("watcher should have condition met after damage")
	}
	if got := watcher.DamageBy(1); got != 12 {
		t.Fatalf("expected 12 damage from attacker 1, got %d", got)
	}
	if got := watcher.CriticalsBy(1); got != 1 {
		t.Fatalf("expected 1 critical, got %d", got)
	}

	copied := watcher.Copy().(*DamageWatcher)
	watcher.Reset()
	if watcher.DamageBy(1) != 0 || watcher.ConditionMet() {
		t.Fatal("reset should clear damage totals and condition")
	}
	if copied.DamageBy(2) != 4 {
		t.Fatalf("copy should keep totals, got %d", copied.DamageBy(2))
	}
}

func TestDeathsWatcher(t *testing.T) {
	watcher := NewDeathsWatcher()

	watcher.Watch(rules.EntityDied{Entity: 5, Killer: 1, Name: "rat"})
	watcher.Watch(rules.EntityDied{Entity: 6, Name: "bat"})
	watcher.Watch(rules.EntityDied{Entity: 7, Killer: 1, Name: "orc"})

	if watcher.TotalDeaths() != 3 {
		t.Fatalf("expected 3 deaths, got %d", watcher.TotalDeaths())
	}
	if watcher.KillsBy(1) != 2 {
		t.Fatalf("expected 2 kills for entity 1, got %d", watcher.KillsBy(1))
	}
	died := watcher.Died()
	if len(died) != 3 || died[0] != 5 || died[2] != 7 {
		t.Fatalf("unexpected death order %v", died)
	}
	died[0] = 99
	if watcher.Died()[0] != 5 {
		t.Fatal("Died should return a copy")
	}
}

func TestItemsUsedWatcher(t *testing.T) {
	watcher := NewItemsUsedWatcher(1)

	if watcher.Scope() != rules.WatcherScopeActor {
		t.Fatalf("expected actor scope, got %s", watcher.Scope())
	}

	watcher.Watch(rules.ItemUsed{Entity: 1, Item: "potion"})
	watcher.Watch(rules.ItemUsed{Entity: 2, Item: "scroll"})
	watcher.Watch(rules.ItemUsed{Entity: 1, Item: "scroll"})

	if watcher.Count() != 2 {
		t.Fatalf("expected 2 items used, got %d", watcher.Count())
	}
	if used := watcher.Used(); used[0] != "potion" || used[1] != "scroll" {
		t.Fatalf("unexpected items %v", used)
	}
}

func TestTurnsWatcher(t *testing.T) {
	watcher := NewTurnsWatcher(2)

	watcher.Watch(rules.TurnEnded{Turn: 0})
	if watcher.ConditionMet() {
		t.Fatal("condition should not be met after one turn")
	}
	watcher.Watch(rules.PlayerTurnStarted{Turn: 1})
	watcher.Watch(rules.TurnEnded{Turn: 1})
	if !watcher.ConditionMet() {
		t.Fatal("condition should be met after two turns")
	}
	if watcher.Completed() != 2 || watcher.LastTurn() != 1 {
		t.Fatalf("unexpected counters: completed=%d last=%d", watcher.Completed(), watcher.LastTurn())
	}

	never := NewTurnsWatcher(0)
	never.Watch(rules.TurnEnded{Turn: 0})
	if never.ConditionMet() {
		t.Fatal("zero target should never complete")
	}
}

func TestWatchersOnBus(t *testing.T) {
	bus := rules.NewEventBus()
	registry := rules.NewWatcherRegistry()
	damage := NewDamageWatcher()
	items := NewItemsUsedWatcher(1)
	registry.AddWatcher(damage)
	registry.AddWatcher(items)
	bus.SubscribeAll(registry)

	bus.Publish(rules.DamageDealt{Attacker: 3, Victim: 1, Damage: 9})
	bus.PublishToPhase(rules.ItemUsed{Entity: 1, Item: "potion"}, rules.PriorityNormal, rules.PhaseResolution)
	bus.ProcessPhaseEvents(rules.PhaseResolution)

	if damage.DamageBy(3) != 9 {
		t.Fatalf("expected 9 damage via bus, got %d", damage.DamageBy(3))
	}
	if items.Count() != 1 {
		t.Fatalf("expected 1 item via bus, got %d", items.Count())
	}
	if registry.Watcher("1_ItemsUsedWatcher") == nil {
		t.Fatal("actor watcher should be keyed by actor and type")
	}
}
