package game

import (
	"slices"
	"sync"

	"github.com/pixeldungeon/turnengine/internal/game/energy"
)

// ActorStore gives the scheduler access to actor energy. Implementations
// may enumerate actors in any order; the scheduler sorts them itself.
type ActorStore interface {
	// PlayerID returns the player's actor, if one exists.
	PlayerID() (ActorID, bool)
	// AIActors returns the IDs of every AI actor.
	AIActors() []ActorID
	// Energy returns a mutable pointer to an actor's ledger.
	Energy(id ActorID) (*energy.Energy, bool)
}

// Actor is an energy-bearing participant.
type Actor struct {
	ID     ActorID
	Name   string
	Player bool
	Energy energy.Energy
}

// World is an in-memory ActorStore.
type World struct {
	mu     sync.RWMutex
	actors map[ActorID]*Actor
	player ActorID
	nextID ActorID
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{actors: make(map[ActorID]*Actor)}
}

// AddPlayer creates the player actor. A previous player loses its player
// flag and from then on takes turns as an AI actor.
func (w *World) AddPlayer(name string, e energy.Energy) ActorID {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.actors[w.player]; ok {
		prev.Player = false
	}
	id := w.allocateLocked()
	w.actors[id] = &Actor{ID: id, Name: name, Player: true, Energy: e}
	w.player = id
	return id
}

// AddAI creates an AI actor.
func (w *World) AddAI(name string, e energy.Energy) ActorID {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.allocateLocked()
	w.actors[id] = &Actor{ID: id, Name: name, Energy: e}
	return id
}

// Remove deletes an actor.
func (w *World) Remove(id ActorID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.actors, id)
	if w.player == id {
		w.player = 0
	}
}

func (w *World) allocateLocked() ActorID {
	w.nextID++
	return w.nextID
}

// PlayerID implements ActorStore.
func (w *World) PlayerID() (ActorID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.actors[w.player]
	return w.player, ok
}

// AIActors implements ActorStore.
func (w *World) AIActors() []ActorID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]ActorID, 0, len(w.actors))
	for id, a := range w.actors {
		if !a.Player {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Energy implements ActorStore.
func (w *World) Energy(id ActorID) (*energy.Energy, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.actors[id]
	if !ok {
		return nil, false
	}
	return &a.Energy, true
}

// Actor returns a copy of an actor record.
func (w *World) Actor(id ActorID) (Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.actors[id]
	if !ok {
		return Actor{}, false
	}
	return *a, true
}

// Len returns the number of actors.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.actors)
}
