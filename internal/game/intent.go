package game

import (
	"fmt"

	"github.com/pixeldungeon/turnengine/internal/game/energy"
	"github.com/pixeldungeon/turnengine/internal/game/rules"
)

// ActorID identifies the player or an AI actor.
type ActorID = rules.EntityID

// Direction is a compass direction for movement and attacks.
type Direction int

const (
	DirNone Direction = iota
	DirNorth
	DirSouth
	DirEast
	DirWest
	DirNorthEast
	DirNorthWest
	DirSouthEast
	DirSouthWest
)

var directionNames = map[Direction]string{
	DirNone:      "none",
	DirNorth:     "north",
	DirSouth:     "south",
	DirEast:      "east",
	DirWest:      "west",
	DirNorthEast: "north_east",
	DirNorthWest: "north_west",
	DirSouthEast: "south_east",
	DirSouthWest: "south_west",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("direction_%d", int(d))
}

// ParseDirection converts a direction name back into a Direction. The
// empty string is DirNone.
func ParseDirection(name string) (Direction, bool) {
	if name == "" {
		return DirNone, true
	}
	for d, n := range directionNames {
		if n == name {
			return d, true
		}
	}
	return DirNone, false
}

// PlayerActionType enumerates what the input layer can produce.
type PlayerActionType int

const (
	PlayerMove PlayerActionType = iota
	PlayerAttack
	PlayerUseItem
	PlayerDropItem
	PlayerAscend
	PlayerDescend
	PlayerWait
	PlayerOpenInventory
	PlayerOpenMenu
	PlayerCloseMenu
	PlayerNavigate
	PlayerQuit
)

var playerActionNames = map[PlayerActionType]string{
	PlayerMove:          "move",
	PlayerAttack:        "attack",
	PlayerUseItem:       "use_item",
	PlayerDropItem:      "drop_item",
	PlayerAscend:        "ascend",
	PlayerDescend:       "descend",
	PlayerWait:          "wait",
	PlayerOpenInventory: "open_inventory",
	PlayerOpenMenu:      "open_menu",
	PlayerCloseMenu:     "close_menu",
	PlayerNavigate:      "navigate",
	PlayerQuit:          "quit",
}

func (t PlayerActionType) String() string {
	if name, ok := playerActionNames[t]; ok {
		return name
	}
	return fmt.Sprintf("player_action_%d", int(t))
}

// ParsePlayerActionType converts an action name such as "use_item" back
// into its type.
func ParsePlayerActionType(name string) (PlayerActionType, bool) {
	for t, n := range playerActionNames {
		if n == name {
			return t, true
		}
	}
	return PlayerWait, false
}

// AIActionType enumerates the actions an AI decider can choose.
type AIActionType int

const (
	AIMove AIActionType = iota
	AIAttack
	AIFlee
	AIUseSkill
	AIWait
)

var aiActionNames = map[AIActionType]string{
	AIMove:     "ai_move",
	AIAttack:   "ai_attack",
	AIFlee:     "ai_flee",
	AIUseSkill: "ai_use_skill",
	AIWait:     "ai_wait",
}

func (t AIActionType) String() string {
	if name, ok := aiActionNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ai_action_%d", int(t))
}

// Action is either a PlayerAction or an AIAction.
type Action interface {
	ActionName() string
	isAction()
}

// PlayerAction is an action produced by the input layer.
type PlayerAction struct {
	Type      PlayerActionType
	Direction Direction
	Target    ActorID
	ItemSlot  int
}

// ActionName implements Action.
func (a PlayerAction) ActionName() string { return a.Type.String() }

func (PlayerAction) isAction() {}

// AIAction is an action chosen by an AI decider.
type AIAction struct {
	Type      AIActionType
	Direction Direction
	Target    ActorID
	Skill     string
}

// ActionName implements Action.
func (a AIAction) ActionName() string { return a.Type.String() }

func (AIAction) isAction() {}

// EnergyCost looks up the cost of an action. Every energy deduction goes
// through this table.
func EnergyCost(action Action) uint32 {
	switch a := action.(type) {
	case PlayerAction:
		switch a.Type {
		case PlayerMove, PlayerAttack, PlayerUseItem, PlayerDropItem, PlayerAscend, PlayerDescend:
			return energy.FullAction
		case PlayerWait:
			return energy.WaitAction
		default:
			return energy.Free
		}
	case AIAction:
		switch a.Type {
		case AIMove, AIAttack, AIFlee, AIUseSkill:
			return energy.FullAction
		case AIWait:
			return energy.WaitAction
		default:
			return energy.Free
		}
	default:
		return energy.Free
	}
}

// IsFree reports whether an action costs no energy and so never ends the
// player's turn.
func IsFree(action Action) bool {
	return EnergyCost(action) == energy.Free
}

// ActionIntent is a costed action waiting to be resolved.
type ActionIntent struct {
	ActorID    ActorID
	Action     Action
	EnergyCost uint32
	// Priority orders intents of the same phase. Lower resolves first.
	Priority uint32
}

// NewActionIntent builds an intent whose cost comes from EnergyCost.
func NewActionIntent(actor ActorID, action Action, priority uint32) ActionIntent {
	return ActionIntent{
		ActorID:    actor,
		Action:     action,
		EnergyCost: EnergyCost(action),
		Priority:   priority,
	}
}

// BusPriority maps the intent priority onto the bus priority scale.
func (i ActionIntent) BusPriority() rules.Priority {
	if i.Priority > uint32(rules.PriorityLowest) {
		return rules.PriorityLowest
	}
	return rules.Priority(i.Priority)
}
