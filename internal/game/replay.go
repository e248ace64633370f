package game

import (
	"sync"

	"github.com/pixeldungeon/turnengine/internal/game/energy"
)

// DefaultRollbackTurns is how many completed turns a Replay keeps.
const DefaultRollbackTurns = 4

// Replay records the snapshot taken at the end of each completed turn so
// the engine can step back through recent turns.
type Replay struct {
	mu           sync.RWMutex
	states       []TurnSnapshot
	turns        []uint32
	limit        int
	currentIndex int
}

// NewReplay creates a replay keeping at most limit turns.
func NewReplay(limit int) *Replay {
	if limit < 1 {
		limit = DefaultRollbackTurns
	}
	return &Replay{limit: limit}
}

// Record appends the snapshot taken after turn completed. The oldest entry
// is dropped once the limit is reached.
func (r *Replay) Record(turn uint32, snap TurnSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = append(r.states, cloneSnapshot(snap))
	r.turns = append(r.turns, turn)
	if over := len(r.states) - r.limit; over > 0 {
		r.states = r.states[over:]
		r.turns = r.turns[over:]
	}
	r.currentIndex = len(r.states)
}

// Start rewinds the cursor to the oldest recorded turn.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentIndex = 0
}

// Next returns the snapshot under the cursor and advances it.
func (r *Replay) Next() (TurnSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentIndex < len(r.states) {
		snap := r.states[r.currentIndex]
		r.currentIndex++
		return cloneSnapshot(snap), true
	}
	return TurnSnapshot{}, false
}

// Previous moves the cursor back and returns that snapshot.
func (r *Replay) Previous() (TurnSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentIndex > 0 {
		r.currentIndex--
		return cloneSnapshot(r.states[r.currentIndex]), true
	}
	return TurnSnapshot{}, false
}

// Back returns the snapshot recorded n turns before the newest one; Back(0)
// is the newest.
func (r *Replay) Back(n int) (TurnSnapshot, uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := len(r.states) - 1 - n
	if n < 0 || idx < 0 {
		return TurnSnapshot{}, 0, false
	}
	return cloneSnapshot(r.states[idx]), r.turns[idx], true
}

// Truncate drops every entry newer than the one Back(n) returns.
func (r *Replay) Truncate(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keep := len(r.states) - n
	if keep < 0 {
		keep = 0
	}
	r.states = r.states[:keep]
	r.turns = r.turns[:keep]
	r.currentIndex = keep
}

// Len returns the number of recorded turns.
func (r *Replay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// Turns returns the recorded turn numbers, oldest first.
func (r *Replay) Turns() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint32, len(r.turns))
	copy(out, r.turns)
	return out
}

func cloneSnapshot(snap TurnSnapshot) TurnSnapshot {
	out := snap
	out.Energies = make(map[ActorID]energy.Energy, len(snap.Energies))
	for id, e := range snap.Energies {
		out.Energies[id] = e
	}
	return out
}
