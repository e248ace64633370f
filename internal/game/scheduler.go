package game

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/pixeldungeon/turnengine/internal/game/energy"
	"github.com/pixeldungeon/turnengine/internal/game/rules"
)

// TurnState is the scheduler's position in the player/AI alternation.
type TurnState int

const (
	PlayerTurn TurnState = iota
	// ProcessingPlayerAction is reserved for multi-step player actions.
	ProcessingPlayerAction
	AITurn
	// ProcessingAIActions is reserved for multi-step AI actions.
	ProcessingAIActions
)

var turnStateNames = map[TurnState]string{
	PlayerTurn:             "PLAYER_TURN",
	ProcessingPlayerAction: "PROCESSING_PLAYER_ACTION",
	AITurn:                 "AI_TURN",
	ProcessingAIActions:    "PROCESSING_AI_ACTIONS",
}

func (s TurnState) String() string {
	if name, ok := turnStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TURN_STATE_%d", int(s))
}

// Valid reports whether s is a known state.
func (s TurnState) Valid() bool {
	_, ok := turnStateNames[s]
	return ok
}

// TurnMeta is turn bookkeeping. SubTurn counts energy-consuming actions
// within the current global turn.
type TurnMeta struct {
	GlobalTurn   uint32
	SubTurn      uint32
	LastActor    ActorID
	HasLastActor bool
	Phase        rules.TurnPhase
}

// Transition records one state change made during a cycle.
type Transition struct {
	From TurnState
	To   TurnState
	// GlobalTurn is the turn number after the transition.
	GlobalTurn uint32
}

// CycleReport summarizes one ProcessTurnCycle call.
type CycleReport struct {
	Transitions   []Transition
	PlayerActions int
	AIActions     int
	// CompletedTurn is set when the cycle finished a global turn.
	CompletedTurn    uint32
	TurnCompleted    bool
	RegeneratedTotal uint32
}

// AIDecider chooses an action for an AI actor. Returning false means the
// actor waits.
type AIDecider interface {
	Decide(actor ActorID, store ActorStore) (AIAction, bool)
}

// DeciderFunc adapts a function into an AIDecider.
type DeciderFunc func(actor ActorID, store ActorStore) (AIAction, bool)

// Decide implements AIDecider.
func (f DeciderFunc) Decide(actor ActorID, store ActorStore) (AIAction, bool) {
	return f(actor, store)
}

// SchedulerOption configures a TurnScheduler.
type SchedulerOption func(*TurnScheduler)

// WithBus connects the scheduler to an event bus. Without one the scheduler
// still runs but publishes nothing.
func WithBus(bus *rules.EventBus) SchedulerOption {
	return func(s *TurnScheduler) { s.bus = bus }
}

// WithDecider sets the AI decision collaborator.
func WithDecider(d AIDecider) SchedulerOption {
	return func(s *TurnScheduler) { s.decider = d }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *zap.Logger) SchedulerOption {
	return func(s *TurnScheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActionThreshold sets the energy an AI actor needs to act.
func WithActionThreshold(threshold uint32) SchedulerOption {
	return func(s *TurnScheduler) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithMinRegeneration sets the regeneration floor applied each turn.
func WithMinRegeneration(floor uint32) SchedulerOption {
	return func(s *TurnScheduler) {
		if floor > 0 {
			s.minRegen = floor
		}
	}
}

// WithTransitionHook sets a function called on every state change, after
// the state is updated and before the next state runs.
func WithTransitionHook(hook func(Transition)) SchedulerOption {
	return func(s *TurnScheduler) { s.onTransition = hook }
}

// TurnScheduler drives the turn state machine, charges energy and moves the
// bus through the turn phases. It is not safe for concurrent use.
type TurnScheduler struct {
	state             TurnState
	playerActionTaken bool
	meta              TurnMeta

	store     ActorStore
	input     *InputBuffer
	bus       *rules.EventBus
	decider   AIDecider
	logger    *zap.Logger
	threshold uint32
	minRegen  uint32

	onTransition func(Transition)
}

// NewTurnScheduler creates a scheduler in PlayerTurn at turn 0.
func NewTurnScheduler(store ActorStore, input *InputBuffer, opts ...SchedulerOption) *TurnScheduler {
	if input == nil {
		input = NewInputBuffer()
	}
	s := &TurnScheduler{
		state:     PlayerTurn,
		meta:      TurnMeta{Phase: rules.PhaseInput},
		store:     store,
		input:     input,
		logger:    zap.NewNop(),
		threshold: energy.ActionThreshold,
		minRegen:  energy.MinRegeneration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current turn state.
func (s *TurnScheduler) State() TurnState { return s.state }

// IsPlayerTurn reports whether the player may act.
func (s *TurnScheduler) IsPlayerTurn() bool { return s.state == PlayerTurn }

// IsAITurn reports whether AI actors are due.
func (s *TurnScheduler) IsAITurn() bool { return s.state == AITurn }

// PlayerActionTaken reports whether the player spent energy this turn.
func (s *TurnScheduler) PlayerActionTaken() bool { return s.playerActionTaken }

// HasPendingActions reports whether the input buffer holds completed
// actions that were not charged yet.
func (s *TurnScheduler) HasPendingActions() bool {
	for _, qa := range s.input.completed {
		if !s.input.IsCharged(qa.ID) {
			return true
		}
	}
	return false
}

// Input returns the input buffer the scheduler reads from.
func (s *TurnScheduler) Input() *InputBuffer { return s.input }

// Meta returns a copy of the turn bookkeeping.
func (s *TurnScheduler) Meta() TurnMeta { return s.meta }

// SetMeta replaces the turn bookkeeping, e.g. after a load.
func (s *TurnScheduler) SetMeta(meta TurnMeta) {
	if !meta.Phase.Valid() || meta.Phase == rules.PhaseAny {
		meta.Phase = rules.PhaseInput
	}
	s.meta = meta
}

// SetState forces the state machine into state. Unknown states are a
// programming error.
func (s *TurnScheduler) SetState(state TurnState, playerActionTaken bool) {
	if !s.invariant(state.Valid(), "set to unknown turn state", zap.Int("state", int(state))) {
		return
	}
	s.state = state
	s.playerActionTaken = playerActionTaken
}

// ConsumePlayerEnergy charges the player for a completed action. Each action
// is charged at most once; unknown, pending or already charged actions are
// ignored. It returns the cost charged and whether a charge happened.
func (s *TurnScheduler) ConsumePlayerEnergy(id ActionID) (uint32, bool) {
	action, ok := s.input.lookupCompleted(id)
	if !ok {
		return 0, false
	}
	playerID, ok := s.store.PlayerID()
	if !ok {
		return 0, false
	}
	ledger, ok := s.store.Energy(playerID)
	if !ok {
		return 0, false
	}

	s.input.markCharged(id)
	cost := EnergyCost(action)
	ledger.Spend(cost)
	if cost > 0 {
		s.meta.SubTurn++
		s.meta.LastActor = playerID
		s.meta.HasLastActor = true
	}
	s.logger.Debug("charged player action",
		zap.String("action", action.ActionName()),
		zap.Uint32("cost", cost),
		zap.Uint32("remaining", ledger.Current))
	return cost, true
}

// ProcessAITurns lets every AI actor with enough energy act, in ascending ID
// order, pass after pass, until no actor can act or the player's energy is
// back at max. It returns the number of actions taken.
func (s *TurnScheduler) ProcessAITurns() int {
	ids := slices.Clone(s.store.AIActors())
	slices.Sort(ids)

	acted := 0
	for !s.playerFull() {
		progressed := false
		for _, id := range ids {
			ledger, ok := s.store.Energy(id)
			if !ok || ledger.Current < s.threshold {
				continue
			}
			s.resolveAI(id, ledger)
			progressed = true
			acted++
		}
		if !progressed {
			break
		}
	}
	return acted
}

func (s *TurnScheduler) playerFull() bool {
	id, ok := s.store.PlayerID()
	if !ok {
		return false
	}
	ledger, ok := s.store.Energy(id)
	return ok && ledger.Full()
}

func (s *TurnScheduler) resolveAI(id ActorID, ledger *energy.Energy) {
	action := AIAction{Type: AIWait}
	if s.decider != nil {
		if chosen, ok := s.decider.Decide(id, s.store); ok {
			action = chosen
		}
	}
	intent := NewActionIntent(id, action, uint32(rules.PriorityNormal))
	if intent.EnergyCost == 0 {
		// Free AI actions would never drain energy.
		intent = NewActionIntent(id, AIAction{Type: AIWait}, intent.Priority)
	}

	s.enterPhase(rules.PhaseIntentQueue)
	s.publishToPhase(rules.AIDecisionMade{Entity: id, Decision: intent.Action.ActionName()}, rules.PriorityNormal)
	s.publishToPhase(rules.ActionIntended{
		Entity:     id,
		ActionType: intent.Action.ActionName(),
		Cost:       intent.EnergyCost,
	}, intent.BusPriority())
	s.processPhase()

	s.enterPhase(rules.PhaseResolution)
	ledger.Spend(intent.EnergyCost)
	s.meta.SubTurn++
	s.meta.LastActor = id
	s.meta.HasLastActor = true
	s.publishToPhase(rules.ActionCompleted{
		Entity:     id,
		ActionType: intent.Action.ActionName(),
		Cost:       intent.EnergyCost,
	}, intent.BusPriority())
	s.processPhase()

	s.logger.Debug("ai actor acted",
		zap.Uint64("actor", uint64(id)),
		zap.String("action", intent.Action.ActionName()),
		zap.Uint32("remaining", ledger.Current))
}

// ProcessTurnCycle advances the state machine. In PlayerTurn it resolves
// the actions completed this frame and, if any consumed energy, continues
// straight into the AI turn. The AI turn runs ProcessAITurns, regenerates
// every actor, advances TurnMeta and returns to PlayerTurn.
func (s *TurnScheduler) ProcessTurnCycle() CycleReport {
	var report CycleReport

	switch s.state {
	case PlayerTurn:
		charged, spent := s.processPlayerActions()
		report.PlayerActions = charged
		if !spent {
			s.enterPhase(rules.PhaseInput)
			return report
		}
		s.playerActionTaken = true
		s.transition(&report, AITurn)
		fallthrough
	case AITurn:
		report.AIActions = s.ProcessAITurns()
		report.RegeneratedTotal = s.regenerateAll()
		report.CompletedTurn = s.meta.GlobalTurn
		report.TurnCompleted = true
		s.advanceTurn()
		s.playerActionTaken = false
		s.enterPhase(rules.PhaseInput)
		s.transition(&report, PlayerTurn)
		s.logger.Info("turn completed",
			zap.Uint32("turn", report.CompletedTurn),
			zap.Int("player_actions", report.PlayerActions),
			zap.Int("ai_actions", report.AIActions))
	default:
		s.invariant(false, "turn cycle run from inactive state", zap.Stringer("state", s.state))
	}
	return report
}

// processPlayerActions runs the completed actions through the Input,
// IntentQueue and Resolution phases, charging each once.
func (s *TurnScheduler) processPlayerActions() (charged int, spent bool) {
	completed := s.input.Completed()
	if len(completed) == 0 {
		return 0, false
	}
	playerID, _ := s.store.PlayerID()

	s.enterPhase(rules.PhaseInput)
	intents := make([]ActionIntent, 0, len(completed))
	for _, qa := range completed {
		intent := NewActionIntent(playerID, qa.Action, uint32(rules.PriorityNormal))
		intents = append(intents, intent)
		s.publishToPhase(rules.ActionIntended{
			Entity:     playerID,
			ActionType: qa.Action.ActionName(),
			Cost:       intent.EnergyCost,
		}, intent.BusPriority())
	}
	s.processPhase()

	s.enterPhase(rules.PhaseIntentQueue)
	s.processPhase()

	s.enterPhase(rules.PhaseResolution)
	for i, qa := range completed {
		cost, ok := s.ConsumePlayerEnergy(qa.ID)
		if !ok {
			continue
		}
		charged++
		if cost > 0 {
			spent = true
		}
		s.publishToPhase(rules.ActionCompleted{
			Entity:     playerID,
			ActionType: qa.Action.ActionName(),
			Cost:       cost,
		}, intents[i].BusPriority())
	}
	s.processPhase()

	s.input.EndFrame()
	return charged, spent
}

// regenerateAll applies regeneration to the player and every AI actor in
// ascending ID order and returns the total gained.
func (s *TurnScheduler) regenerateAll() uint32 {
	s.enterPhase(rules.PhaseAftermath)

	ids := slices.Clone(s.store.AIActors())
	if playerID, ok := s.store.PlayerID(); ok {
		ids = append(ids, playerID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var total uint32
	for _, id := range ids {
		ledger, ok := s.store.Energy(id)
		if !ok {
			continue
		}
		gained := ledger.RegenerateAtLeast(s.minRegen)
		total = energy.SaturatingAdd(total, gained)
		s.publishToPhase(rules.EnergyRegenerated{Entity: id, Amount: gained, Current: ledger.Current}, rules.PriorityLow)
	}
	s.processPhase()
	return total
}

func (s *TurnScheduler) advanceTurn() {
	s.meta.GlobalTurn++
	s.meta.SubTurn = 0
}

func (s *TurnScheduler) transition(report *CycleReport, to TurnState) {
	from := s.state
	s.state = to
	t := Transition{From: from, To: to, GlobalTurn: s.meta.GlobalTurn}
	report.Transitions = append(report.Transitions, t)
	if s.onTransition != nil {
		s.onTransition(t)
	}
}

func (s *TurnScheduler) enterPhase(phase rules.TurnPhase) {
	from := s.meta.Phase
	s.meta.Phase = phase
	if s.bus == nil {
		return
	}
	s.bus.SetCurrentPhase(phase)
	if from != phase {
		s.bus.Publish(rules.PhaseChanged{From: from, To: phase})
	}
}

func (s *TurnScheduler) publishToPhase(event rules.Event, priority rules.Priority) {
	if s.bus != nil {
		s.bus.PublishToPhase(event, priority, s.meta.Phase)
	}
}

func (s *TurnScheduler) processPhase() {
	if s.bus != nil {
		s.bus.ProcessPhaseEvents(s.meta.Phase)
	}
}

// invariant reports cond. A false cond panics in debug builds and is
// logged and ignored otherwise.
func (s *TurnScheduler) invariant(cond bool, msg string, fields ...zap.Field) bool {
	if cond {
		return true
	}
	if debugAssertions {
		panic("turn scheduler: " + msg)
	}
	s.logger.Warn(msg, fields...)
	return false
}
