package rules

// DefaultMaxDepth bounds nested publish calls before events are deferred.
const DefaultMaxDepth = 10

type publishPath int

const (
	pathImmediate publishPath = iota
	pathPhase
)

// deferredPublish remembers how an overflowed event was published so the
// flush can replay it through the same path.
type deferredPublish struct {
	path     publishPath
	event    Event
	priority Priority
	phase    TurnPhase
}

// ReentrancyGuard tracks how deeply publish calls are nested and holds the
// events that arrived while the limit was reached.
type ReentrancyGuard struct {
	depth     int
	maxDepth  int
	peakDepth int
	flushing  bool
	buffer    []deferredPublish
}

// NewReentrancyGuard creates a guard. Non-positive limits use DefaultMaxDepth.
func NewReentrancyGuard(maxDepth int) *ReentrancyGuard {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &ReentrancyGuard{
		maxDepth: maxDepth,
		buffer:   make([]deferredPublish, 0, 8),
	}
}

// Enter claims one nesting level. It returns false when the limit is reached,
// in which case the caller must defer its event instead of dispatching.
// While the buffer is being flushed only the replayed publish itself may
// enter; anything it publishes is deferred behind the rest of the buffer.
func (g *ReentrancyGuard) Enter() bool {
	limit := g.maxDepth
	if g.flushing {
		limit = 1
	}
	if g.depth >= limit {
		return false
	}
	g.depth++
	if g.depth > g.peakDepth {
		g.peakDepth = g.depth
	}
	return true
}

// Exit releases one nesting level and reports whether the caller is the
// outermost frame and should flush the buffer.
func (g *ReentrancyGuard) Exit() bool {
	if g.depth > 0 {
		g.depth--
	}
	return g.depth == 0 && !g.flushing && len(g.buffer) > 0
}

func (g *ReentrancyGuard) hold(item deferredPublish) {
	g.buffer = append(g.buffer, item)
}

// next pops the oldest deferred publish.
func (g *ReentrancyGuard) next() (deferredPublish, bool) {
	if len(g.buffer) == 0 {
		return deferredPublish{}, false
	}
	item := g.buffer[0]
	g.buffer[0] = deferredPublish{}
	g.buffer = g.buffer[1:]
	return item, true
}

// Depth returns the current nesting depth.
func (g *ReentrancyGuard) Depth() int { return g.depth }

// MaxDepth returns the configured limit.
func (g *ReentrancyGuard) MaxDepth() int { return g.maxDepth }

// PeakDepth returns the deepest nesting observed since the last Reset.
func (g *ReentrancyGuard) PeakDepth() int { return g.peakDepth }

// Buffered returns the number of deferred events waiting for a flush.
func (g *ReentrancyGuard) Buffered() int { return len(g.buffer) }

// Reset clears depth tracking and drops any deferred events.
func (g *ReentrancyGuard) Reset() {
	g.depth = 0
	g.peakDepth = 0
	g.flushing = false
	g.buffer = g.buffer[:0]
}
