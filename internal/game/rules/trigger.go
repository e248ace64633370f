package rules

import (
	"sync"

	"github.com/google/uuid"
)

// Trigger reacts to one event kind by producing a follow-up event, e.g. a
// trap that applies a status when an entity moves onto it.
type Trigger struct {
	ID        string
	Kind      EventKind
	Condition func(Event) bool
	Build     func(Event) Event
	// Phase and Priority place the follow-up event.
	Phase    TurnPhase
	Priority Priority
	Once     bool
}

// Reaction is a follow-up event produced by a trigger.
type Reaction struct {
	TriggerID string
	Event     Event
	Phase     TurnPhase
	Priority  Priority
}

// PhasePublisher is the part of EventBus the trigger manager publishes to.
type PhasePublisher interface {
	PublishToPhase(event Event, priority Priority, phase TurnPhase)
}

// TriggerManager stores triggers and evaluates them in registration order.
// Subscribed to a bus it republishes reactions through PublishToPhase, so
// chains of triggers are bounded by the bus depth limit.
type TriggerManager struct {
	mu        sync.Mutex
	triggers  []Trigger
	publisher PhasePublisher
}

// NewTriggerManager creates an empty trigger manager. publisher may be nil
// when reactions are only collected through Evaluate.
func NewTriggerManager(publisher PhasePublisher) *TriggerManager {
	return &TriggerManager{publisher: publisher}
}

// Register adds a new trigger to the manager.
func (tm *TriggerManager) Register(trigger Trigger) string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if trigger.ID == "" {
		trigger.ID = uuid.NewString()
	}
	tm.triggers = append(tm.triggers, trigger)
	return trigger.ID
}

// Unregister removes a trigger by ID.
func (tm *TriggerManager) Unregister(id string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	for i, t := range tm.triggers {
		if t.ID == id {
			tm.triggers = append(tm.triggers[:i], tm.triggers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered triggers.
func (tm *TriggerManager) Len() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.triggers)
}

// Evaluate returns the reactions event produces and drops fired Once
// triggers. Conditions and builders run without the manager lock held, so
// they may register or unregister triggers. A Once trigger removed while
// its builder ran yields no reaction.
func (tm *TriggerManager) Evaluate(event Event) []Reaction {
	if event == nil {
		return nil
	}
	tm.mu.Lock()
	snapshot := append([]Trigger(nil), tm.triggers...)
	tm.mu.Unlock()

	var reactions []Reaction
	once := make(map[string]bool)
	for _, trigger := range snapshot {
		if trigger.Kind != event.Kind() || trigger.Build == nil {
			continue
		}
		if trigger.Condition != nil && !trigger.Condition(event) {
			continue
		}
		follow := trigger.Build(event)
		if follow == nil {
			continue
		}
		reactions = append(reactions, Reaction{
			TriggerID: trigger.ID,
			Event:     follow,
			Phase:     trigger.Phase,
			Priority:  trigger.Priority,
		})
		if trigger.Once {
			once[trigger.ID] = true
		}
	}
	if len(once) == 0 {
		return reactions
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	present := make(map[string]bool, len(once))
	kept := tm.triggers[:0]
	for _, trigger := range tm.triggers {
		if once[trigger.ID] {
			present[trigger.ID] = true
			continue
		}
		kept = append(kept, trigger)
	}
	for i := len(kept); i < len(tm.triggers); i++ {
		tm.triggers[i] = Trigger{}
	}
	tm.triggers = kept

	out := reactions[:0]
	for _, r := range reactions {
		if once[r.TriggerID] && !present[r.TriggerID] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Handle implements Handler.
func (tm *TriggerManager) Handle(event Event) {
	reactions := tm.Evaluate(event)
	if tm.publisher == nil {
		return
	}
	for _, r := range reactions {
		tm.publisher.PublishToPhase(r.Event, r.Priority, r.Phase)
	}
}

// Name implements Handler.
func (tm *TriggerManager) Name() string { return "triggers" }

// Priority implements Handler.
func (tm *TriggerManager) Priority() Priority { return PriorityHigh }

// ShouldHandle implements Handler.
func (tm *TriggerManager) ShouldHandle(Event) bool { return true }

// RunInPhases implements Handler.
func (tm *TriggerManager) RunInPhases() PhaseSet { return NewPhaseSet() }
