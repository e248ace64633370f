package rules

import (
	"go.uber.org/zap"
)

// BusStats counts bus activity since construction.
type BusStats struct {
	Published      uint64
	Dispatched     uint64
	ShortCircuited uint64
	Deferred       uint64
	Flushed        uint64
}

// BusOption configures an EventBus.
type BusOption func(*EventBus)

// WithMaxDepth sets the nesting limit for publish calls.
func WithMaxDepth(depth int) BusOption {
	return func(b *EventBus) { b.guard = NewReentrancyGuard(depth) }
}

// WithHistorySize sets how many dispatch records are retained.
func WithHistorySize(size int) BusOption {
	return func(b *EventBus) { b.history = NewHistory(size) }
}

// WithLogger sets the bus logger.
func WithLogger(logger *zap.Logger) BusOption {
	return func(b *EventBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records blocked and deferred events into m. Pair it with a
// MetricsMiddleware on the same m to count dispatches.
func WithMetrics(m *BusMetrics) BusOption {
	return func(b *EventBus) { b.metrics = m }
}

// EventBus dispatches events to handlers, queues phase-scoped events by
// priority and records a bounded history.
//
// The bus is single-threaded: handlers may publish from inside Handle, but
// calls from several goroutines must be serialized by the caller.
type EventBus struct {
	logger       *zap.Logger
	registry     *Registry
	queues       map[TurnPhase]*PhaseQueue
	legacy       []Event
	delayed      []Event
	guard        *ReentrancyGuard
	history      *History
	currentPhase TurnPhase
	sequence     uint64
	stats        BusStats
	metrics      *BusMetrics
}

// NewEventBus creates an event bus. Defaults: max depth 10, history 1000,
// current phase Input.
func NewEventBus(opts ...BusOption) *EventBus {
	b := &EventBus{
		logger:       zap.NewNop(),
		registry:     NewRegistry(),
		queues:       make(map[TurnPhase]*PhaseQueue, len(phaseNames)),
		guard:        NewReentrancyGuard(DefaultMaxDepth),
		history:      NewHistory(DefaultHistorySize),
		currentPhase: PhaseInput,
	}
	for phase := range phaseNames {
		b.queues[phase] = NewPhaseQueue(phase)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubscribeAll registers h for every event. h still only runs in the phases
// it declares.
func (b *EventBus) SubscribeAll(h Handler) SubscriptionID {
	return b.registry.AddGlobal(h)
}

// Subscribe registers h for a single event kind.
func (b *EventBus) Subscribe(kind EventKind, h Handler) SubscriptionID {
	return b.registry.AddTyped(kind, h)
}

// SubscribeForPhase binds h to phase. The binding ignores h.RunInPhases.
func (b *EventBus) SubscribeForPhase(phase TurnPhase, h Handler) SubscriptionID {
	return b.registry.AddPhase(phase, h)
}

// SubscribeWithPhases binds h to every phase it declares.
func (b *EventBus) SubscribeWithPhases(h Handler) SubscriptionID {
	return b.registry.AddDeclared(h)
}

// RegisterMiddleware appends m to the middleware chain.
func (b *EventBus) RegisterMiddleware(m Middleware) SubscriptionID {
	return b.registry.AddMiddleware(m)
}

// Unsubscribe removes a handler or middleware registration.
func (b *EventBus) Unsubscribe(id SubscriptionID) bool {
	return b.registry.Remove(id)
}

// Publish dispatches event immediately to the global and kind-keyed handlers
// that run in the current phase, and appends it to the queue returned by
// Drain.
func (b *EventBus) Publish(event Event) {
	if event == nil {
		return
	}
	if !b.guard.Enter() {
		b.hold(deferredPublish{path: pathImmediate, event: event})
		return
	}
	b.stats.Published++
	b.legacy = append(b.legacy, event)
	b.dispatch(event, b.currentPhase, b.registry.immediateTargets(event, b.currentPhase))
	b.exit()
}

// PublishDelayed parks event until the next NextFrame call.
func (b *EventBus) PublishDelayed(event Event) {
	if event == nil {
		return
	}
	b.delayed = append(b.delayed, event)
}

// NextFrame moves delayed events onto the drain queue and returns how many
// were moved.
func (b *EventBus) NextFrame() int {
	n := len(b.delayed)
	if n == 0 {
		return 0
	}
	b.legacy = append(b.legacy, b.delayed...)
	b.delayed = nil
	return n
}

// PublishToPhase queues event for phase. When publish calls are nested
// max-depth deep the event is held back and queued once the outermost call
// returns.
func (b *EventBus) PublishToPhase(event Event, priority Priority, phase TurnPhase) {
	if event == nil {
		return
	}
	queue, ok := b.queues[phase]
	if !ok {
		b.logger.Debug("ignoring event for unknown phase",
			zap.String("kind", string(event.Kind())),
			zap.Int("phase", int(phase)))
		return
	}
	if !b.guard.Enter() {
		b.hold(deferredPublish{path: pathPhase, event: event, priority: priority, phase: phase})
		return
	}
	b.sequence++
	queue.Push(PriorityEventEntry{Event: event, Priority: priority.Clamp(), Sequence: b.sequence})
	b.stats.Published++
	b.exit()
}

// PublishToCurrentPhase queues event for the bus's current phase.
func (b *EventBus) PublishToCurrentPhase(event Event, priority Priority) {
	b.PublishToPhase(event, priority, b.currentPhase)
}

// Drain empties the immediate-publish queue and returns it in publish order.
func (b *EventBus) Drain() []Event {
	out := b.legacy
	b.legacy = nil
	if out == nil {
		return []Event{}
	}
	return out
}

// DrainPhase empties one phase queue and returns its events in dispatch
// order. Other phases are untouched.
func (b *EventBus) DrainPhase(phase TurnPhase) []Event {
	queue, ok := b.queues[phase]
	if !ok {
		return []Event{}
	}
	return queue.Drain()
}

// ProcessPhaseEvents drains phase and dispatches each event through the
// middleware chain and the handlers that run in phase. Events queued for
// phase while processing stay queued for the next call. It returns the
// number of events dispatched.
func (b *EventBus) ProcessPhaseEvents(phase TurnPhase) int {
	queue, ok := b.queues[phase]
	if !ok {
		return 0
	}
	entries := queue.DrainEntries()
	processed := 0
	for i, entry := range entries {
		if !b.guard.Enter() {
			for _, rest := range entries[i:] {
				queue.Push(rest)
			}
			b.logger.Warn("phase processing nested too deeply, requeued remaining events",
				zap.Stringer("phase", phase),
				zap.Int("requeued", len(entries)-i))
			break
		}
		b.dispatch(entry.Event, phase, b.registry.phaseTargets(entry.Event, phase))
		processed++
		b.exit()
	}
	return processed
}

// ProcessCurrentPhase runs ProcessPhaseEvents for the current phase.
func (b *EventBus) ProcessCurrentPhase() int {
	return b.ProcessPhaseEvents(b.currentPhase)
}

func (b *EventBus) dispatch(event Event, phase TurnPhase, targets []registration) {
	chain := append([]middlewareRegistration(nil), b.registry.middleware...)
	proceed := true
	for _, m := range chain {
		if !m.middleware.BeforeHandle(event) {
			proceed = false
			b.logger.Debug("middleware stopped dispatch",
				zap.String("middleware", m.middleware.Name()),
				zap.String("kind", string(event.Kind())))
			break
		}
	}

	b.history.Record(HistoryRecord{
		Event:          event,
		Category:       Category(event),
		Phase:          phase,
		ShortCircuited: !proceed,
	})

	if !proceed {
		b.stats.ShortCircuited++
		b.metrics.incBlocked(event)
		return
	}

	for _, reg := range targets {
		if reg.handler.ShouldHandle(event) {
			reg.handler.Handle(event)
		}
	}
	for _, m := range chain {
		m.middleware.AfterHandle(event)
	}
	b.stats.Dispatched++
}

func (b *EventBus) hold(item deferredPublish) {
	b.guard.hold(item)
	b.stats.Deferred++
	b.metrics.incDeferred()
	b.logger.Warn("publish deferred until the bus unwinds",
		zap.String("kind", string(item.event.Kind())),
		zap.Int("depth", b.guard.Depth()),
		zap.Int("buffered", b.guard.Buffered()))
}

// exit leaves one nesting level. The outermost caller replays deferred
// events through their original path until the buffer is empty.
func (b *EventBus) exit() {
	if !b.guard.Exit() {
		return
	}
	b.guard.flushing = true
	for {
		item, ok := b.guard.next()
		if !ok {
			break
		}
		b.stats.Flushed++
		switch item.path {
		case pathImmediate:
			b.Publish(item.event)
		case pathPhase:
			b.PublishToPhase(item.event, item.priority, item.phase)
		}
	}
	b.guard.flushing = false
}

// SetCurrentPhase records the phase the turn cycle is in.
func (b *EventBus) SetCurrentPhase(phase TurnPhase) {
	if phase == b.currentPhase {
		return
	}
	b.logger.Debug("bus phase changed",
		zap.Stringer("from", b.currentPhase),
		zap.Stringer("to", phase))
	b.currentPhase = phase
}

// CurrentPhase returns the phase last set by SetCurrentPhase.
func (b *EventBus) CurrentPhase() TurnPhase { return b.currentPhase }

// History returns up to n most recent dispatched events, oldest first.
func (b *EventBus) History(n int) []Event { return b.history.Events(n) }

// Records returns up to n most recent history records, oldest first.
func (b *EventBus) Records(n int) []HistoryRecord { return b.history.Last(n) }

// ClearHistory drops the history but keeps its capacity.
func (b *EventBus) ClearHistory() { b.history.Clear() }

// Len returns the number of events waiting in the drain queue.
func (b *EventBus) Len() int { return len(b.legacy) }

// HasEvents reports whether Drain would return anything.
func (b *EventBus) HasEvents() bool { return len(b.legacy) > 0 }

// PendingInPhase returns the number of events queued for phase.
func (b *EventBus) PendingInPhase(phase TurnPhase) int {
	if queue, ok := b.queues[phase]; ok {
		return queue.Len()
	}
	return 0
}

// Pending returns the number of events queued across all phases.
func (b *EventBus) Pending() int {
	n := 0
	for _, queue := range b.queues {
		n += queue.Len()
	}
	return n
}

// DelayedLen returns the number of events waiting for NextFrame.
func (b *EventBus) DelayedLen() int { return len(b.delayed) }

// Clear drops queued, delayed and phase events. History is kept.
func (b *EventBus) Clear() {
	b.legacy = nil
	b.delayed = nil
	for _, queue := range b.queues {
		queue.Clear()
	}
}

// Depth returns the current publish nesting depth.
func (b *EventBus) Depth() int { return b.guard.Depth() }

// MaxDepth returns the configured nesting limit.
func (b *EventBus) MaxDepth() int { return b.guard.MaxDepth() }

// BufferedLen returns the number of deferred events awaiting a flush.
func (b *EventBus) BufferedLen() int { return b.guard.Buffered() }

// Stats returns a snapshot of the bus counters.
func (b *EventBus) Stats() BusStats { return b.stats }

// Middleware returns the registered middleware in dispatch order.
func (b *EventBus) Middleware() []Middleware { return b.registry.Middleware() }
