// Package save persists turn and energy state between sessions.
package save

import (
	"errors"
	"fmt"
	"time"
)

// CurrentVersion is the record layout written by this package.
const CurrentVersion = 2

// DefaultPlayerEnergy seeds the player's ledger when migrating records that
// predate energy tracking.
const DefaultPlayerEnergy uint32 = 100

// State names stored in records.
const (
	StatePlayerTurn             = "PLAYER_TURN"
	StateProcessingPlayerAction = "PROCESSING_PLAYER_ACTION"
	StateAITurn                 = "AI_TURN"
	StateProcessingAIActions    = "PROCESSING_AI_ACTIONS"
)

var (
	// ErrSlotNotFound is returned when a slot holds no save.
	ErrSlotNotFound = errors.New("save slot not found")
	// ErrInvalidSlot is returned for slot numbers outside the store's range.
	ErrInvalidSlot = errors.New("invalid save slot")
	// ErrUnsupportedVersion is returned for records newer than CurrentVersion.
	ErrUnsupportedVersion = errors.New("unsupported save version")
)

// EnergyRecord is one actor's persisted ledger.
type EnergyRecord struct {
	Actor            uint64 `json:"actor"`
	Current          uint32 `json:"current"`
	Max              uint32 `json:"max"`
	RegenerationRate uint32 `json:"regeneration_rate"`
}

// TurnState is the persisted turn record.
type TurnState struct {
	Version           int            `json:"version"`
	State             string         `json:"state"`
	PlayerActionTaken bool           `json:"player_action_taken"`
	GlobalTurn        uint32         `json:"global_turn"`
	SubTurn           uint32         `json:"sub_turn"`
	LastActor         uint64         `json:"last_actor,omitempty"`
	HasLastActor      bool           `json:"has_last_actor"`
	Phase             string         `json:"phase,omitempty"`
	PlayerID          uint64         `json:"player_id"`
	Energies          []EnergyRecord `json:"energies"`
	Checksum          uint64         `json:"checksum"`
	SavedAt           time.Time      `json:"saved_at"`
}

// Migrate upgrades rec in place to CurrentVersion. Version 0 and 1 records
// carry no turn state and get the defaults: player turn, no action taken,
// player energy 100.
func Migrate(rec *TurnState) error {
	if rec.Version > CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, rec.Version)
	}
	if rec.Version < 2 {
		rec.State = StatePlayerTurn
		rec.PlayerActionTaken = false
		rec.Phase = ""
		if rec.PlayerID != 0 && rec.energyFor(rec.PlayerID) == nil {
			rec.Energies = append(rec.Energies, EnergyRecord{
				Actor:            rec.PlayerID,
				Current:          DefaultPlayerEnergy,
				Max:              DefaultPlayerEnergy,
				RegenerationRate: 1,
			})
		}
		rec.Checksum = 0
		rec.Version = CurrentVersion
	}
	if rec.State == "" {
		rec.State = StatePlayerTurn
	}
	return nil
}

func (rec *TurnState) energyFor(actor uint64) *EnergyRecord {
	for i := range rec.Energies {
		if rec.Energies[i].Actor == actor {
			return &rec.Energies[i]
		}
	}
	return nil
}

// SlotInfo describes an occupied slot.
type SlotInfo struct {
	Slot       int       `json:"slot"`
	GlobalTurn uint32    `json:"global_turn"`
	SavedAt    time.Time `json:"saved_at"`
}
