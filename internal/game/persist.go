package game

import (
	"fmt"
	"slices"

	"github.com/pixeldungeon/turnengine/internal/game/energy"
	"github.com/pixeldungeon/turnengine/internal/game/rules"
	"github.com/pixeldungeon/turnengine/internal/save"
)

// ToRecord converts a snapshot into the persisted record. Energies are
// written in ascending actor order.
func ToRecord(snap TurnSnapshot, playerID ActorID) save.TurnState {
	rec := save.TurnState{
		Version:           save.CurrentVersion,
		State:             snap.State.String(),
		PlayerActionTaken: snap.PlayerActionTaken,
		GlobalTurn:        snap.Meta.GlobalTurn,
		SubTurn:           snap.Meta.SubTurn,
		LastActor:         uint64(snap.Meta.LastActor),
		HasLastActor:      snap.Meta.HasLastActor,
		Phase:             snap.Meta.Phase.String(),
		PlayerID:          uint64(playerID),
		Checksum:          snap.Checksum(),
	}

	ids := make([]ActorID, 0, len(snap.Energies))
	for id := range snap.Energies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		e := snap.Energies[id]
		rec.Energies = append(rec.Energies, save.EnergyRecord{
			Actor:            uint64(id),
			Current:          e.Current,
			Max:              e.Max,
			RegenerationRate: e.RegenerationRate,
		})
	}
	return rec
}

// FromRecord converts a migrated record back into a snapshot. A record
// whose checksum does not match its contents is rejected; migrated records
// carry no checksum and are accepted as is.
func FromRecord(rec save.TurnState) (TurnSnapshot, error) {
	state, ok := parseTurnState(rec.State)
	if !ok {
		return TurnSnapshot{}, fmt.Errorf("unknown turn state %q", rec.State)
	}
	phase := rules.PhaseInput
	if rec.Phase != "" {
		if p, ok := rules.ParsePhase(rec.Phase); ok && p != rules.PhaseAny {
			phase = p
		}
	}

	snap := TurnSnapshot{
		State:             state,
		PlayerActionTaken: rec.PlayerActionTaken,
		Meta: TurnMeta{
			GlobalTurn:   rec.GlobalTurn,
			SubTurn:      rec.SubTurn,
			LastActor:    ActorID(rec.LastActor),
			HasLastActor: rec.HasLastActor,
			Phase:        phase,
		},
		Energies: make(map[ActorID]energy.Energy, len(rec.Energies)),
	}
	for _, e := range rec.Energies {
		snap.Energies[ActorID(e.Actor)] = energy.Energy{
			Current:          e.Current,
			Max:              e.Max,
			RegenerationRate: e.RegenerationRate,
		}
	}

	if rec.Checksum != 0 && rec.Checksum != snap.Checksum() {
		return TurnSnapshot{}, fmt.Errorf("checksum mismatch: stored %x, computed %x", rec.Checksum, snap.Checksum())
	}
	return snap, nil
}

func parseTurnState(name string) (TurnState, bool) {
	for state, n := range turnStateNames {
		if n == name {
			return state, true
		}
	}
	return PlayerTurn, false
}
