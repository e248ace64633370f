package rules

import "fmt"

// EventCategory groups event kinds for filtering and diagnostics.
type EventCategory int

const (
	CategoryCombat EventCategory = iota
	CategoryMovement
	CategoryStatus
	CategoryItems
	CategoryAI
	CategoryEnvironment
	CategoryUI
	CategorySystem
	CategoryTurnPhase
	CategoryAction
)

var categoryNames = map[EventCategory]string{
	CategoryCombat:      "COMBAT",
	CategoryMovement:    "MOVEMENT",
	CategoryStatus:      "STATUS",
	CategoryItems:       "ITEMS",
	CategoryAI:          "AI",
	CategoryEnvironment: "ENVIRONMENT",
	CategoryUI:          "UI",
	CategorySystem:      "SYSTEM",
	CategoryTurnPhase:   "TURN_PHASE",
	CategoryAction:      "ACTION",
}

func (c EventCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CATEGORY_%d", int(c))
}

// Category classifies an event. Unknown or nil events fall into
// CategorySystem so callers never have to handle a failure.
func Category(e Event) EventCategory {
	switch e.(type) {
	case EntityMoved:
		return CategoryMovement
	case CombatStarted, DamageDealt, CombatBlocked, CombatParried, EntityDied:
		return CategoryCombat
	case StatusApplied, StatusRemoved, StatusStacked, StatusEffectTicked:
		return CategoryStatus
	case ItemPickedUp, ItemDropped, ItemUsed, ItemEquipped, ItemUnequipped:
		return CategoryItems
	case AIDecisionMade, AITargetChanged:
		return CategoryAI
	case LevelChanged, RoomDiscovered, TrapTriggered, DoorOpened, SecretDiscovered:
		return CategoryEnvironment
	case UINotification, MessageLogged:
		return CategoryUI
	case PlayerTurnStarted, AITurnStarted, TurnEnded, PhaseChanged, EnergyRegenerated:
		return CategoryTurnPhase
	case ActionIntended, ActionCompleted, ActionFailed:
		return CategoryAction
	default:
		return CategorySystem
	}
}

// KindOf returns the event's kind, or an empty kind for nil.
func KindOf(e Event) EventKind {
	if e == nil {
		return ""
	}
	return e.Kind()
}
