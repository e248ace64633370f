// Package energy holds the per-actor action budget and the cost table every
// scheduler deduction goes through.
package energy

import "math"

const (
	// FullAction is the cost of a move, attack or other turn-consuming action.
	FullAction uint32 = 100
	// WaitAction is the cost of waiting a turn.
	WaitAction uint32 = 50
	// Free is the cost of menu and navigation actions.
	Free uint32 = 0

	// ActionThreshold is the energy an AI actor needs before it may act.
	ActionThreshold uint32 = FullAction
	// DefaultMax is the starting energy pool for new actors.
	DefaultMax uint32 = 100
	// MinRegeneration keeps actors from stalling with a zero rate.
	MinRegeneration uint32 = 1
)

// Energy is an actor's action budget. Current never exceeds Max.
type Energy struct {
	Current          uint32 `json:"current"`
	Max              uint32 `json:"max"`
	RegenerationRate uint32 `json:"regeneration_rate"`
}

// New returns a full pool.
func New(max, rate uint32) Energy {
	return Energy{Current: max, Max: max, RegenerationRate: rate}
}

// Spend subtracts cost without going below zero and returns the amount
// actually removed.
func (e *Energy) Spend(cost uint32) uint32 {
	if cost > e.Current {
		spent := e.Current
		e.Current = 0
		return spent
	}
	e.Current -= cost
	return cost
}

// Regenerate adds the regeneration rate, or MinRegeneration if the rate is
// lower, capped at Max. It returns the amount gained.
func (e *Energy) Regenerate() uint32 {
	return e.RegenerateAtLeast(MinRegeneration)
}

// RegenerateAtLeast is Regenerate with a caller-chosen floor.
func (e *Energy) RegenerateAtLeast(floor uint32) uint32 {
	rate := e.RegenerationRate
	if rate < floor {
		rate = floor
	}
	e.Normalize()
	before := e.Current
	e.Current = SaturatingAdd(e.Current, rate)
	if e.Current > e.Max {
		e.Current = e.Max
	}
	return e.Current - before
}

// Set assigns current, clamped to Max.
func (e *Energy) Set(current uint32) {
	if current > e.Max {
		current = e.Max
	}
	e.Current = current
}

// Normalize restores Current <= Max after a raw assignment, e.g. a load.
func (e *Energy) Normalize() {
	if e.Current > e.Max {
		e.Current = e.Max
	}
}

// CanAct reports whether the pool reaches ActionThreshold.
func (e Energy) CanAct() bool { return e.Current >= ActionThreshold }

// Full reports whether Current has reached Max.
func (e Energy) Full() bool { return e.Current >= e.Max }

// SaturatingAdd returns a+b, capped at the uint32 maximum.
func SaturatingAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

// SaturatingSub returns a-b, floored at zero.
func SaturatingSub(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}
