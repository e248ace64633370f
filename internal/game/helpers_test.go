package game

import (
	"github.com/pixeldungeon/turnengine/internal/game/energy"
	"github.com/pixeldungeon/turnengine/internal/game/rules"
)

type eventLog struct {
	events []rules.Event
}

func subscribeLog(bus *rules.EventBus) *eventLog {
	log := &eventLog{}
	bus.SubscribeAll(rules.NewHandler("test-log", func(e rules.Event) {
		log.events = append(log.events, e)
	}))
	return log
}

func (l *eventLog) count(kind rules.EventKind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) kinds(filter ...rules.EventKind) []rules.EventKind {
	keep := make(map[rules.EventKind]bool, len(filter))
	for _, k := range filter {
		keep[k] = true
	}
	var out []rules.EventKind
	for _, e := range l.events {
		if len(filter) == 0 || keep[e.Kind()] {
			out = append(out, e.Kind())
		}
	}
	return out
}

// newTestWorld creates a player and AI actors with the given current
// energies. Max is the larger of the value and 100; rate is zero so only
// the regeneration floor applies.
func newTestWorld(player uint32, ai ...uint32) (*World, ActorID, []ActorID) {
	w := NewWorld()
	pid := w.AddPlayer("hero", fixedEnergy(player))
	ids := make([]ActorID, 0, len(ai))
	for _, cur := range ai {
		ids = append(ids, w.AddAI("goblin", fixedEnergy(cur)))
	}
	return w, pid, ids
}

func fixedEnergy(current uint32) energy.Energy {
	max := current
	if max < energy.DefaultMax {
		max = energy.DefaultMax
	}
	return energy.Energy{Current: current, Max: max, RegenerationRate: 0}
}

func attackDecider() AIDecider {
	return DeciderFunc(func(ActorID, ActorStore) (AIAction, bool) {
		return AIAction{Type: AIAttack}, true
	})
}
