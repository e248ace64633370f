package rules

// EntityID identifies an actor or object referenced by an event.
type EntityID uint64

// EventKind is the stable tag of an event variant.
type EventKind string

const (
	KindEntityMoved        EventKind = "EntityMoved"
	KindCombatStarted      EventKind = "CombatStarted"
	KindDamageDealt        EventKind = "DamageDealt"
	KindCombatBlocked      EventKind = "CombatBlocked"
	KindCombatParried      EventKind = "CombatParried"
	KindEntityDied         EventKind = "EntityDied"
	KindStatusApplied      EventKind = "StatusApplied"
	KindStatusRemoved      EventKind = "StatusRemoved"
	KindStatusStacked      EventKind = "StatusStacked"
	KindStatusEffectTicked EventKind = "StatusEffectTicked"
	KindItemPickedUp       EventKind = "ItemPickedUp"
	KindItemDropped        EventKind = "ItemDropped"
	KindItemUsed           EventKind = "ItemUsed"
	KindItemEquipped       EventKind = "ItemEquipped"
	KindItemUnequipped     EventKind = "ItemUnequipped"
	KindAIDecisionMade     EventKind = "AIDecisionMade"
	KindAITargetChanged    EventKind = "AITargetChanged"
	KindLevelChanged       EventKind = "LevelChanged"
	KindRoomDiscovered     EventKind = "RoomDiscovered"
	KindTrapTriggered      EventKind = "TrapTriggered"
	KindDoorOpened         EventKind = "DoorOpened"
	KindSecretDiscovered   EventKind = "SecretDiscovered"
	KindUINotification     EventKind = "UINotification"
	KindMessageLogged      EventKind = "MessageLogged"
	KindGameOver           EventKind = "GameOver"
	KindVictory            EventKind = "Victory"
	KindGamePaused         EventKind = "GamePaused"
	KindGameResumed        EventKind = "GameResumed"
	KindGameSaved          EventKind = "GameSaved"
	KindGameLoaded         EventKind = "GameLoaded"
	KindLogMessage         EventKind = "LogMessage"
	KindPlayerTurnStarted  EventKind = "PlayerTurnStarted"
	KindAITurnStarted      EventKind = "AITurnStarted"
	KindTurnEnded          EventKind = "TurnEnded"
	KindPhaseChanged       EventKind = "PhaseChanged"
	KindEnergyRegenerated  EventKind = "EnergyRegenerated"
	KindActionIntended     EventKind = "ActionIntended"
	KindActionCompleted    EventKind = "ActionCompleted"
	KindActionFailed       EventKind = "ActionFailed"
)

// Event is a game occurrence. The variant set is closed: only types in this
// package implement it.
type Event interface {
	Kind() EventKind
	isEvent()
}

// EntityMoved is published when an entity changes tile.
type EntityMoved struct {
	Entity EntityID `json:"entity"`
	FromX  int      `json:"from_x"`
	FromY  int      `json:"from_y"`
	ToX    int      `json:"to_x"`
	ToY    int      `json:"to_y"`
}

type CombatStarted struct {
	Attacker EntityID `json:"attacker"`
	Defender EntityID `json:"defender"`
}

type DamageDealt struct {
	Attacker   EntityID `json:"attacker"`
	Victim     EntityID `json:"victim"`
	Damage     uint32   `json:"damage"`
	IsCritical bool     `json:"is_critical"`
}

type CombatBlocked struct {
	Attacker EntityID `json:"attacker"`
	Defender EntityID `json:"defender"`
	Blocked  uint32   `json:"blocked"`
}

type CombatParried struct {
	Attacker EntityID `json:"attacker"`
	Defender EntityID `json:"defender"`
}

type EntityDied struct {
	Entity EntityID `json:"entity"`
	Killer EntityID `json:"killer,omitempty"`
	Name   string   `json:"name"`
}

type StatusApplied struct {
	Entity    EntityID `json:"entity"`
	Status    string   `json:"status"`
	Duration  uint32   `json:"duration"`
	Intensity uint32   `json:"intensity"`
}

type StatusRemoved struct {
	Entity EntityID `json:"entity"`
	Status string   `json:"status"`
}

// StatusStacked is published when an already active status gains intensity.
type StatusStacked struct {
	Entity       EntityID `json:"entity"`
	Status       string   `json:"status"`
	OldIntensity uint32   `json:"old_intensity"`
	NewIntensity uint32   `json:"new_intensity"`
}

type StatusEffectTicked struct {
	Entity        EntityID `json:"entity"`
	Status        string   `json:"status"`
	Damage        uint32   `json:"damage"`
	RemainingTurn uint32   `json:"remaining_turns"`
}

type ItemPickedUp struct {
	Entity EntityID `json:"entity"`
	Item   string   `json:"item"`
}

type ItemDropped struct {
	Entity EntityID `json:"entity"`
	Item   string   `json:"item"`
}

type ItemUsed struct {
	Entity EntityID `json:"entity"`
	Item   string   `json:"item"`
	Effect string   `json:"effect"`
}

type ItemEquipped struct {
	Entity EntityID `json:"entity"`
	Item   string   `json:"item"`
	Slot   string   `json:"slot"`
}

type ItemUnequipped struct {
	Entity EntityID `json:"entity"`
	Item   string   `json:"item"`
	Slot   string   `json:"slot"`
}

type AIDecisionMade struct {
	Entity   EntityID `json:"entity"`
	Decision string   `json:"decision"`
}

type AITargetChanged struct {
	Entity    EntityID `json:"entity"`
	OldTarget EntityID `json:"old_target,omitempty"`
	NewTarget EntityID `json:"new_target,omitempty"`
}

type LevelChanged struct {
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

type RoomDiscovered struct {
	RoomID int `json:"room_id"`
}

type TrapTriggered struct {
	Entity   EntityID `json:"entity"`
	TrapType string   `json:"trap_type"`
}

type DoorOpened struct {
	Entity EntityID `json:"entity"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
}

type SecretDiscovered struct {
	Entity     EntityID `json:"entity"`
	SecretType string   `json:"secret_type"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
}

// UINotification carries a transient message for the presentation layer.
type UINotification struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type MessageLogged struct {
	Message string `json:"message"`
}

type GameOver struct {
	Reason string `json:"reason"`
}

type Victory struct{}

type GamePaused struct{}

type GameResumed struct{}

type GameSaved struct {
	Slot int `json:"slot"`
}

type GameLoaded struct {
	Slot int `json:"slot"`
}

type LogMessage struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

type PlayerTurnStarted struct {
	Turn uint32 `json:"turn"`
}

type AITurnStarted struct {
	Turn uint32 `json:"turn"`
}

// TurnEnded is published after a full player/AI cycle completes.
type TurnEnded struct {
	Turn uint32 `json:"turn"`
}

type PhaseChanged struct {
	From TurnPhase `json:"from"`
	To   TurnPhase `json:"to"`
}

type EnergyRegenerated struct {
	Entity  EntityID `json:"entity"`
	Amount  uint32   `json:"amount"`
	Current uint32   `json:"current"`
}

// ActionIntended is published when an actor commits to an action, before it
// is resolved and charged.
type ActionIntended struct {
	Entity     EntityID `json:"entity"`
	ActionType string   `json:"action_type"`
	Cost       uint32   `json:"cost"`
}

type ActionCompleted struct {
	Entity     EntityID `json:"entity"`
	ActionType string   `json:"action_type"`
	Cost       uint32   `json:"cost"`
}

type ActionFailed struct {
	Entity     EntityID `json:"entity"`
	ActionType string   `json:"action_type"`
	Reason     string   `json:"reason"`
}

func (EntityMoved) Kind() EventKind        { return KindEntityMoved }
func (CombatStarted) Kind() EventKind      { return KindCombatStarted }
func (DamageDealt) Kind() EventKind        { return KindDamageDealt }
func (CombatBlocked) Kind() EventKind      { return KindCombatBlocked }
func (CombatParried) Kind() EventKind      { return KindCombatParried }
func (EntityDied) Kind() EventKind         { return KindEntityDied }
func (StatusApplied) Kind() EventKind      { return KindStatusApplied }
func (StatusRemoved) Kind() EventKind      { return KindStatusRemoved }
func (StatusStacked) Kind() EventKind      { return KindStatusStacked }
func (StatusEffectTicked) Kind() EventKind { return KindStatusEffectTicked }
func (ItemPickedUp) Kind() EventKind       { return KindItemPickedUp }
func (ItemDropped) Kind() EventKind        { return KindItemDropped }
func (ItemUsed) Kind() EventKind           { return KindItemUsed }
func (ItemEquipped) Kind() EventKind       { return KindItemEquipped }
func (ItemUnequipped) Kind() EventKind     { return KindItemUnequipped }
func (AIDecisionMade) Kind() EventKind     { return KindAIDecisionMade }
func (AITargetChanged) Kind() EventKind    { return KindAITargetChanged }
func (LevelChanged) Kind() EventKind       { return KindLevelChanged }
func (RoomDiscovered) Kind() EventKind     { return KindRoomDiscovered }
func (TrapTriggered) Kind() EventKind      { return KindTrapTriggered }
func (DoorOpened) Kind() EventKind         { return KindDoorOpened }
func (SecretDiscovered) Kind() EventKind   { return KindSecretDiscovered }
func (UINotification) Kind() EventKind     { return KindUINotification }
func (MessageLogged) Kind() EventKind      { return KindMessageLogged }
func (GameOver) Kind() EventKind           { return KindGameOver }
func (Victory) Kind() EventKind            { return KindVictory }
func (GamePaused) Kind() EventKind         { return KindGamePaused }
func (GameResumed) Kind() EventKind        { return KindGameResumed }
func (GameSaved) Kind() EventKind          { return KindGameSaved }
func (GameLoaded) Kind() EventKind         { return KindGameLoaded }
func (LogMessage) Kind() EventKind         { return KindLogMessage }
func (PlayerTurnStarted) Kind() EventKind  { return KindPlayerTurnStarted }
func (AITurnStarted) Kind() EventKind      { return KindAITurnStarted }
func (TurnEnded) Kind() EventKind          { return KindTurnEnded }
func (PhaseChanged) Kind() EventKind       { return KindPhaseChanged }
func (EnergyRegenerated) Kind() EventKind  { return KindEnergyRegenerated }
func (ActionIntended) Kind() EventKind     { return KindActionIntended }
func (ActionCompleted) Kind() EventKind    { return KindActionCompleted }
func (ActionFailed) Kind() EventKind       { return KindActionFailed }

func (EntityMoved) isEvent()        {}
func (CombatStarted) isEvent()      {}
func (DamageDealt) isEvent()        {}
func (CombatBlocked) isEvent()      {}
func (CombatParried) isEvent()      {}
func (EntityDied) isEvent()         {}
func (StatusApplied) isEvent()      {}
func (StatusRemoved) isEvent()      {}
func (StatusStacked) isEvent()      {}
func (StatusEffectTicked) isEvent() {}
func (ItemPickedUp) isEvent()       {}
func (ItemDropped) isEvent()        {}
func (ItemUsed) isEvent()           {}
func (ItemEquipped) isEvent()       {}
func (ItemUnequipped) isEvent()     {}
func (AIDecisionMade) isEvent()     {}
func (AITargetChanged) isEvent()    {}
func (LevelChanged) isEvent()       {}
func (RoomDiscovered) isEvent()     {}
func (TrapTriggered) isEvent()      {}
func (DoorOpened) isEvent()         {}
func (SecretDiscovered) isEvent()   {}
func (UINotification) isEvent()     {}
func (MessageLogged) isEvent()      {}
func (GameOver) isEvent()           {}
func (Victory) isEvent()            {}
func (GamePaused) isEvent()         {}
func (GameResumed) isEvent()        {}
func (GameSaved) isEvent()          {}
func (GameLoaded) isEvent()         {}
func (LogMessage) isEvent()         {}
func (PlayerTurnStarted) isEvent()  {}
func (AITurnStarted) isEvent()      {}
func (TurnEnded) isEvent()          {}
func (PhaseChanged) isEvent()       {}
func (EnergyRegenerated) isEvent()  {}
func (ActionIntended) isEvent()     {}
func (ActionCompleted) isEvent()    {}
func (ActionFailed) isEvent()       {}
