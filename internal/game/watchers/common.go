// Package watchers holds the stock watchers used for run statistics and
// achievement tracking.
package watchers

import (
	"maps"

	"github.com/pixeldungeon/turnengine/internal/game/rules"
)

// DamageWatcher totals damage dealt per attacker.
type DamageWatcher struct {
	*rules.BaseWatcher
	dealt     map[rules.EntityID]uint64
	criticals map[rules.EntityID]int
}

// NewDamageWatcher creates a new damage watcher.
func NewDamageWatcher() *DamageWatcher {
	w := &DamageWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		dealt:       make(map[rules.EntityID]uint64),
		criticals:   make(map[rules.EntityID]int),
	}
	w.SetKey("DamageWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *DamageWatcher) Watch(event rules.Event) {
	ev, ok := event.(rules.DamageDealt)
	if !ok {
		return
	}
	w.dealt[ev.Attacker] += uint64(ev.Damage)
	if ev.IsCritical {
		w.criticals[ev.Attacker]++
	}
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *DamageWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.dealt = make(map[rules.EntityID]uint64)
	w.criticals = make(map[rules.EntityID]int)
}

// DamageBy returns the total damage dealt by attacker.
func (w *DamageWatcher) DamageBy(attacker rules.EntityID) uint64 {
	return w.dealt[attacker]
}

// CriticalsBy returns the number of critical hits landed by attacker.
func (w *DamageWatcher) CriticalsBy(attacker rules.EntityID) int {
	return w.criticals[attacker]
}

// Copy creates a copy of this watcher.
func (w *DamageWatcher) Copy() rules.Watcher {
	c := NewDamageWatcher()
	c.SetActor(w.Actor())
	c.SetCondition(w.ConditionMet())
	c.dealt = maps.Clone(w.dealt)
	c.criticals = maps.Clone(w.criticals)
	return c
}

// DeathsWatcher tracks deaths and who caused them.
type DeathsWatcher struct {
	*rules.BaseWatcher
	died  []rules.EntityID
	kills map[rules.EntityID]int // killer -> count
}

// NewDeathsWatcher creates a new deaths watcher.
func NewDeathsWatcher() *DeathsWatcher {
	w := &DeathsWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		kills:       make(map[rules.EntityID]int),
	}
	w.SetKey("DeathsWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *DeathsWatcher) Watch(event rules.Event) {
	ev, ok := event.(rules.EntityDied)
	if !ok {
		return
	}
	w.died = append(w.died, ev.Entity)
	if ev.Killer != 0 {
		w.kills[ev.Killer]++
	}
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *DeathsWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.died = nil
	w.kills = make(map[rules.EntityID]int)
}

// Died returns the entities that died, in order.
func (w *DeathsWatcher) Died() []rules.EntityID {
	return append([]rules.EntityID(nil), w.died...)
}

// KillsBy returns the number of kills credited to killer.
func (w *DeathsWatcher) KillsBy(killer rules.EntityID) int {
	return w.kills[killer]
}

// TotalDeaths returns the number of deaths seen.
func (w *DeathsWatcher) TotalDeaths() int {
	return len(w.died)
}

// Copy creates a copy of this watcher.
func (w *DeathsWatcher) Copy() rules.Watcher {
	c := NewDeathsWatcher()
	c.SetActor(w.Actor())
	c.SetCondition(w.ConditionMet())
	c.died = append([]rules.EntityID(nil), w.died...)
	c.kills = maps.Clone(w.kills)
	return c
}

// ItemsUsedWatcher tracks consumed items for one actor.
type ItemsUsedWatcher struct {
	*rules.BaseWatcher
	used []string
}

// NewItemsUsedWatcher creates a watcher scoped to actor.
func NewItemsUsedWatcher(actor rules.EntityID) *ItemsUsedWatcher {
	w := &ItemsUsedWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeActor),
	}
	w.SetActor(actor)
	return w
}

// Watch implements the Watcher interface.
func (w *ItemsUsedWatcher) Watch(event rules.Event) {
	ev, ok := event.(rules.ItemUsed)
	if !ok || ev.Entity != w.Actor() {
		return
	}
	w.used = append(w.used, ev.Item)
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *ItemsUsedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.used = nil
}

// Used returns the items used, in order.
func (w *ItemsUsedWatcher) Used() []string {
	return append([]string(nil), w.used...)
}

// Count returns the number of items used.
func (w *ItemsUsedWatcher) Count() int { return len(w.used) }

// Copy creates a copy of this watcher.
func (w *ItemsUsedWatcher) Copy() rules.Watcher {
	c := NewItemsUsedWatcher(w.Actor())
	c.SetKey(w.Key())
	c.SetCondition(w.ConditionMet())
	c.used = append([]string(nil), w.used...)
	return c
}

// TurnsWatcher counts completed turns and meets its condition once target
// turns have been survived. A zero target never completes.
type TurnsWatcher struct {
	*rules.BaseWatcher
	target    uint32
	completed uint32
	last      uint32
}

// NewTurnsWatcher creates a turns watcher.
func NewTurnsWatcher(target uint32) *TurnsWatcher {
	w := &TurnsWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		target:      target,
	}
	w.SetKey("TurnsWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *TurnsWatcher) Watch(event rules.Event) {
	ev, ok := event.(rules.TurnEnded)
	if !ok {
		return
	}
	w.completed++
	w.last = ev.Turn
	if w.target > 0 && w.completed >= w.target {
		w.SetCondition(true)
	}
}

// Reset clears the watcher's state.
func (w *TurnsWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.completed = 0
	w.last = 0
}

// Completed returns the number of TurnEnded events seen.
func (w *TurnsWatcher) Completed() uint32 { return w.completed }

// LastTurn returns the turn number of the most recent TurnEnded.
func (w *TurnsWatcher) LastTurn() uint32 { return w.last }

// Copy creates a copy of this watcher.
func (w *TurnsWatcher) Copy() rules.Watcher {
	c := NewTurnsWatcher(w.target)
	c.SetCondition(w.ConditionMet())
	c.completed = w.completed
	c.last = w.last
	return c
}
