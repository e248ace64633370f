package save

import (
	"context"
	"fmt"
)

// DefaultMaxSlots bounds slot numbers when no limit is configured.
const DefaultMaxSlots = 10

// Store persists turn records by slot.
type Store interface {
	Save(ctx context.Context, slot int, rec TurnState) error
	// Load returns the record migrated to CurrentVersion.
	Load(ctx context.Context, slot int) (TurnState, error)
	Delete(ctx context.Context, slot int) error
	List(ctx context.Context) ([]SlotInfo, error)
}

func checkSlot(slot, maxSlots int) error {
	if slot < 0 || slot >= maxSlots {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidSlot, slot, maxSlots)
	}
	return nil
}
