package rules

import "container/heap"

// PriorityEventEntry wraps a queued event with its ordering keys.
type PriorityEventEntry struct {
	Event    Event
	Priority Priority
	Sequence uint64
}

// before reports whether a dispatches ahead of b.
func (a PriorityEventEntry) before(b PriorityEventEntry) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Sequence < b.Sequence
}

type entryHeap []PriorityEventEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(PriorityEventEntry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = PriorityEventEntry{}
	*h = old[:n-1]
	return item
}

// PhaseQueue holds the pending events of one phase, ordered by priority and
// then insertion sequence.
type PhaseQueue struct {
	phase   TurnPhase
	entries entryHeap
}

// NewPhaseQueue creates an empty queue for phase.
func NewPhaseQueue(phase TurnPhase) *PhaseQueue {
	return &PhaseQueue{phase: phase}
}

// Phase returns the phase this queue belongs to.
func (q *PhaseQueue) Phase() TurnPhase { return q.phase }

// Push adds an entry.
func (q *PhaseQueue) Push(entry PriorityEventEntry) {
	heap.Push(&q.entries, entry)
}

// Pop removes and returns the next entry.
func (q *PhaseQueue) Pop() (PriorityEventEntry, bool) {
	if len(q.entries) == 0 {
		return PriorityEventEntry{}, false
	}
	return heap.Pop(&q.entries).(PriorityEventEntry), true
}

// Peek returns the next entry without removing it.
func (q *PhaseQueue) Peek() (PriorityEventEntry, bool) {
	if len(q.entries) == 0 {
		return PriorityEventEntry{}, false
	}
	return q.entries[0], true
}

// Len returns the number of pending entries.
func (q *PhaseQueue) Len() int { return len(q.entries) }

// DrainEntries empties the queue and returns the entries in dispatch order.
func (q *PhaseQueue) DrainEntries() []PriorityEventEntry {
	out := make([]PriorityEventEntry, 0, len(q.entries))
	for len(q.entries) > 0 {
		out = append(out, heap.Pop(&q.entries).(PriorityEventEntry))
	}
	return out
}

// Drain empties the queue and returns only the events, in dispatch order.
func (q *PhaseQueue) Drain() []Event {
	entries := q.DrainEntries()
	out := make([]Event, len(entries))
	for i, entry := range entries {
		out[i] = entry.Event
	}
	return out
}

// Clear drops every pending entry.
func (q *PhaseQueue) Clear() {
	q.entries = nil
}
