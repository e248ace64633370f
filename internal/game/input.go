package game

import (
	"github.com/google/uuid"
)

// ActionID identifies one player action as it moves through the input
// buffer.
type ActionID = uuid.UUID

// QueuedAction is a player action held by the input buffer.
type QueuedAction struct {
	ID     ActionID
	Action PlayerAction
}

// InputBuffer stages player actions. The input layer enqueues actions as
// pending and marks them completed once they are final for the frame. Only
// completed actions can be charged, and each at most once.
type InputBuffer struct {
	pending   []QueuedAction
	completed []QueuedAction
	charged   map[ActionID]struct{}
}

// NewInputBuffer creates an empty buffer.
func NewInputBuffer() *InputBuffer {
	return &InputBuffer{charged: make(map[ActionID]struct{})}
}

// Enqueue adds action as pending and returns its ID.
func (b *InputBuffer) Enqueue(action PlayerAction) ActionID {
	id := uuid.New()
	b.pending = append(b.pending, QueuedAction{ID: id, Action: action})
	return id
}

// Complete moves a pending action to the completed list.
func (b *InputBuffer) Complete(id ActionID) bool {
	for i, qa := range b.pending {
		if qa.ID == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			b.completed = append(b.completed, qa)
			return true
		}
	}
	return false
}

// CompleteAll moves every pending action to the completed list in order.
func (b *InputBuffer) CompleteAll() int {
	n := len(b.pending)
	b.completed = append(b.completed, b.pending...)
	b.pending = nil
	return n
}

// Submit enqueues and completes an action in one step.
func (b *InputBuffer) Submit(action PlayerAction) ActionID {
	id := b.Enqueue(action)
	b.Complete(id)
	return id
}

// Completed returns the completed actions in completion order.
func (b *InputBuffer) Completed() []QueuedAction {
	out := make([]QueuedAction, len(b.completed))
	copy(out, b.completed)
	return out
}

// Pending returns the number of actions not yet completed.
func (b *InputBuffer) Pending() int { return len(b.pending) }

// lookupCompleted finds a completed action that has not been charged yet.
func (b *InputBuffer) lookupCompleted(id ActionID) (PlayerAction, bool) {
	if _, done := b.charged[id]; done {
		return PlayerAction{}, false
	}
	for _, qa := range b.completed {
		if qa.ID == id {
			return qa.Action, true
		}
	}
	return PlayerAction{}, false
}

func (b *InputBuffer) markCharged(id ActionID) {
	b.charged[id] = struct{}{}
}

// IsCharged reports whether an action has already been charged.
func (b *InputBuffer) IsCharged(id ActionID) bool {
	_, ok := b.charged[id]
	return ok
}

// EndFrame drops completed actions and the charge record. Pending actions
// carry over to the next frame.
func (b *InputBuffer) EndFrame() {
	b.completed = nil
	clear(b.charged)
}

// Reset drops everything.
func (b *InputBuffer) Reset() {
	b.pending = nil
	b.EndFrame()
}
