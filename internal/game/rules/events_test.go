package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		event Event
		want  EventCategory
	}{
		{EntityMoved{}, CategoryMovement},
		{CombatStarted{}, CategoryCombat},
		{DamageDealt{}, CategoryCombat},
		{CombatBlocked{}, CategoryCombat},
		{CombatParried{}, CategoryCombat},
		{EntityDied{}, CategoryCombat},
		{StatusApplied{}, CategoryStatus},
		{StatusRemoved{}, CategoryStatus},
		{StatusStacked{}, CategoryStatus},
		{StatusEffectTicked{}, CategoryStatus},
		{ItemPickedUp{}, CategoryItems},
		{ItemDropped{}, CategoryItems},
		{ItemUsed{}, CategoryItems},
		{ItemEquipped{}, CategoryItems},
		{ItemUnequipped{}, CategoryItems},
		{AIDecisionMade{}, CategoryAI},
		{AITargetChanged{}, CategoryAI},
		{LevelChanged{}, CategoryEnvironment},
		{RoomDiscovered{}, CategoryEnvironment},
		{TrapTriggered{}, CategoryEnvironment},
		{DoorOpened{}, CategoryEnvironment},
		{SecretDiscovered{}, CategoryEnvironment},
		{UINotification{}, CategoryUI},
		{MessageLogged{}, CategoryUI},
		{GameOver{}, CategorySystem},
		{Victory{}, CategorySystem},
		{GamePaused{}, CategorySystem},
		{GameResumed{}, CategorySystem},
		{GameSaved{}, CategorySystem},
		{GameLoaded{}, CategorySystem},
		{LogMessage{}, CategorySystem},
		{PlayerTurnStarted{}, CategoryTurnPhase},
		{AITurnStarted{}, CategoryTurnPhase},
		{TurnEnded{}, CategoryTurnPhase},
		{PhaseChanged{}, CategoryTurnPhase},
		{EnergyRegenerated{}, CategoryTurnPhase},
		{ActionIntended{}, CategoryAction},
		{ActionCompleted{}, CategoryAction},
		{ActionFailed{}, CategoryAction},
	}

	seen := make(map[EventKind]bool)
	for _, tt := range tests {
		t.Run(string(tt.event.Kind()), func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.event))
		})
		assert.False(t, seen[tt.event.Kind()], "duplicate kind %s", tt.event.Kind())
		seen[tt.event.Kind()] = true
	}
}

func TestCategoryNilDefaultsToSystem(t *testing.T) {
	assert.Equal(t, CategorySystem, Category(nil))
	assert.Equal(t, EventKind(""), KindOf(nil))
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "TURN_PHASE", CategoryTurnPhase.String())
	assert.Equal(t, "CATEGORY_99", EventCategory(99).String())
}
