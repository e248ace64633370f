package rules

import (
	"fmt"
	"strings"
)

// TurnPhase is one of the ordered sub-stages of a turn cycle. PhaseAny is a
// wildcard used by handler registrations and never appears as a real stage.
type TurnPhase int

const (
	PhaseInput TurnPhase = iota
	PhaseIntentQueue
	PhaseResolution
	PhaseAftermath
	PhaseAny
)

var phaseNames = map[TurnPhase]string{
	PhaseInput:       "INPUT",
	PhaseIntentQueue: "INTENT_QUEUE",
	PhaseResolution:  "RESOLUTION",
	PhaseAftermath:   "AFTERMATH",
	PhaseAny:         "ANY",
}

func (p TurnPhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Valid reports whether p is a known phase, including PhaseAny.
func (p TurnPhase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// ParsePhase converts a phase name (case-insensitive) back into a TurnPhase.
func ParsePhase(name string) (TurnPhase, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for phase, n := range phaseNames {
		if n == upper {
			return phase, true
		}
	}
	return PhaseInput, false
}

// phaseSequence is the order in which a cycle visits the concrete phases.
var phaseSequence = []TurnPhase{
	PhaseInput,
	PhaseIntentQueue,
	PhaseResolution,
	PhaseAftermath,
}

// Phases returns the concrete phases in cycle order.
func Phases() []TurnPhase {
	out := make([]TurnPhase, len(phaseSequence))
	copy(out, phaseSequence)
	return out
}

// NextPhase returns the phase that follows p and whether the cycle wrapped
// back to PhaseInput.
func NextPhase(p TurnPhase) (TurnPhase, bool) {
	for i, phase := range phaseSequence {
		if phase == p {
			if i == len(phaseSequence)-1 {
				return phaseSequence[0], true
			}
			return phaseSequence[i+1], false
		}
	}
	return PhaseInput, true
}

// PhaseSet is a set of phases a handler wants to run in.
type PhaseSet map[TurnPhase]struct{}

// NewPhaseSet builds a PhaseSet. An empty argument list yields {PhaseAny}.
func NewPhaseSet(phases ...TurnPhase) PhaseSet {
	if len(phases) == 0 {
		return PhaseSet{PhaseAny: {}}
	}
	set := make(PhaseSet, len(phases))
	for _, p := range phases {
		set[p] = struct{}{}
	}
	return set
}

// Matches reports whether a handler declaring this set runs in phase p.
func (s PhaseSet) Matches(p TurnPhase) bool {
	if len(s) == 0 {
		return true
	}
	if _, ok := s[PhaseAny]; ok {
		return true
	}
	_, ok := s[p]
	return ok
}

// Sorted returns the members in ascending order.
func (s PhaseSet) Sorted() []TurnPhase {
	out := make([]TurnPhase, 0, len(s))
	for _, p := range append(Phases(), PhaseAny) {
		if _, ok := s[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Priority orders dispatch. Lower values dispatch first.
type Priority uint8

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityLowest
)

var priorityNames = map[Priority]string{
	PriorityCritical: "CRITICAL",
	PriorityHigh:     "HIGH",
	PriorityNormal:   "NORMAL",
	PriorityLow:      "LOW",
	PriorityLowest:   "LOWEST",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PRIORITY_%d", int(p))
}

// Clamp folds out-of-range values into PriorityLowest.
func (p Priority) Clamp() Priority {
	if p > PriorityLowest {
		return PriorityLowest
	}
	return p
}
