package game

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/pixeldungeon/turnengine/internal/game/energy"
)

// TurnSnapshot is the persisted part of the scheduler: turn state,
// bookkeeping and every actor's energy.
type TurnSnapshot struct {
	State             TurnState
	PlayerActionTaken bool
	Meta              TurnMeta
	Energies          map[ActorID]energy.Energy
}

// Snapshot captures the scheduler state and actor energies.
func (s *TurnScheduler) Snapshot() TurnSnapshot {
	snap := TurnSnapshot{
		State:             s.state,
		PlayerActionTaken: s.playerActionTaken,
		Meta:              s.meta,
		Energies:          make(map[ActorID]energy.Energy),
	}
	ids := slices.Clone(s.store.AIActors())
	if playerID, ok := s.store.PlayerID(); ok {
		ids = append(ids, playerID)
	}
	for _, id := range ids {
		if ledger, ok := s.store.Energy(id); ok {
			snap.Energies[id] = *ledger
		}
	}
	return snap
}

// Restore applies a snapshot. Energies for actors the store does not know
// are skipped. It returns the number of ledgers restored.
func (s *TurnScheduler) Restore(snap TurnSnapshot) int {
	state := snap.State
	if !state.Valid() {
		state = PlayerTurn
	}
	s.SetState(state, snap.PlayerActionTaken)
	s.SetMeta(snap.Meta)

	restored := 0
	for id, saved := range snap.Energies {
		ledger, ok := s.store.Energy(id)
		if !ok {
			continue
		}
		*ledger = saved
		ledger.Normalize()
		restored++
	}
	s.input.Reset()
	return restored
}

// Checksum fingerprints the snapshot independently of map order.
func (snap TurnSnapshot) Checksum() uint64 {
	d := xxhash.New()
	var buf [8]byte
	put32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:4], v)
		_, _ = d.Write(buf[:4])
	}
	put64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	bool32 := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}

	put32(uint32(snap.State))
	put32(bool32(snap.PlayerActionTaken))
	put32(snap.Meta.GlobalTurn)
	put32(snap.Meta.SubTurn)
	put64(uint64(snap.Meta.LastActor))
	put32(bool32(snap.Meta.HasLastActor))
	put32(uint32(snap.Meta.Phase))

	ids := make([]ActorID, 0, len(snap.Energies))
	for id := range snap.Energies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		e := snap.Energies[id]
		put64(uint64(id))
		put32(e.Current)
		put32(e.Max)
		put32(e.RegenerationRate)
	}
	return d.Sum64()
}
