package rules

import (
	"cmp"
	"slices"
)

// Handler consumes dispatched events.
type Handler interface {
	Handle(event Event)
	Name() string
	Priority() Priority
	// ShouldHandle is evaluated before Handle; returning false skips the handler.
	ShouldHandle(event Event) bool
	// RunInPhases lists the phases the handler wants to run in. {PhaseAny}
	// means every phase.
	RunInPhases() PhaseSet
}

// Middleware wraps the handler pass of every dispatched event.
type Middleware interface {
	// BeforeHandle returns false to stop handler dispatch for this event.
	BeforeHandle(event Event) bool
	AfterHandle(event Event)
	Name() string
	Priority() Priority
}

// BaseHandler supplies the optional parts of Handler. Embed it and
// implement Handle.
type BaseHandler struct {
	HandlerName     string
	HandlerPriority Priority
	Phases          PhaseSet
}

// Name returns the handler's diagnostic name.
func (h BaseHandler) Name() string { return h.HandlerName }

// Priority returns the configured priority.
func (h BaseHandler) Priority() Priority { return h.HandlerPriority }

// ShouldHandle accepts every event.
func (h BaseHandler) ShouldHandle(Event) bool { return true }

// RunInPhases returns the configured phases or {PhaseAny}.
func (h BaseHandler) RunInPhases() PhaseSet {
	if len(h.Phases) == 0 {
		return NewPhaseSet()
	}
	return h.Phases
}

// BaseMiddleware supplies pass-through middleware behaviour.
type BaseMiddleware struct {
	MiddlewareName     string
	MiddlewarePriority Priority
}

func (m BaseMiddleware) BeforeHandle(Event) bool { return true }
func (m BaseMiddleware) AfterHandle(Event)       {}
func (m BaseMiddleware) Name() string            { return m.MiddlewareName }
func (m BaseMiddleware) Priority() Priority      { return m.MiddlewarePriority }

// HandlerOption customizes a handler built by NewHandler.
type HandlerOption func(*funcHandler)

// WithPriority sets the handler priority.
func WithPriority(p Priority) HandlerOption {
	return func(h *funcHandler) { h.HandlerPriority = p.Clamp() }
}

// WithPhases restricts the handler to the given phases.
func WithPhases(phases ...TurnPhase) HandlerOption {
	return func(h *funcHandler) { h.Phases = NewPhaseSet(phases...) }
}

// WithFilter installs a ShouldHandle predicate.
func WithFilter(filter func(Event) bool) HandlerOption {
	return func(h *funcHandler) { h.filter = filter }
}

// WithKinds accepts only the listed event kinds.
func WithKinds(kinds ...EventKind) HandlerOption {
	set := make(map[EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return WithFilter(func(e Event) bool {
		_, ok := set[KindOf(e)]
		return ok
	})
}

type funcHandler struct {
	BaseHandler
	fn     func(Event)
	filter func(Event) bool
}

// NewHandler adapts a function into a Handler with Normal priority.
func NewHandler(name string, fn func(Event), opts ...HandlerOption) Handler {
	h := &funcHandler{
		BaseHandler: BaseHandler{HandlerName: name, HandlerPriority: PriorityNormal},
		fn:          fn,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *funcHandler) Handle(event Event) {
	if h.fn != nil {
		h.fn(event)
	}
}

func (h *funcHandler) ShouldHandle(event Event) bool {
	if h.filter == nil {
		return true
	}
	return h.filter(event)
}

type funcMiddleware struct {
	BaseMiddleware
	before func(Event) bool
	after  func(Event)
}

// NewMiddleware adapts a pair of functions into a Middleware. Either may be nil.
func NewMiddleware(name string, priority Priority, before func(Event) bool, after func(Event)) Middleware {
	return &funcMiddleware{
		BaseMiddleware: BaseMiddleware{MiddlewareName: name, MiddlewarePriority: priority.Clamp()},
		before:         before,
		after:          after,
	}
}

func (m *funcMiddleware) BeforeHandle(event Event) bool {
	if m.before == nil {
		return true
	}
	return m.before(event)
}

func (m *funcMiddleware) AfterHandle(event Event) {
	if m.after != nil {
		m.after(event)
	}
}

// SubscriptionID identifies a registration for Unsubscribe.
type SubscriptionID uint64

type registration struct {
	id       SubscriptionID
	handler  Handler
	priority Priority
}

func compareRegistrations(a, b registration) int {
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

type handlerList []registration

func (l handlerList) insert(r registration) handlerList {
	i, _ := slices.BinarySearchFunc(l, r, compareRegistrations)
	return slices.Insert(l, i, r)
}

func (l handlerList) without(id SubscriptionID) (handlerList, bool) {
	for i, r := range l {
		if r.id == id {
			return slices.Delete(l, i, i+1), true
		}
	}
	return l, false
}

type middlewareRegistration struct {
	id         SubscriptionID
	middleware Middleware
	priority   Priority
}

// Registry keeps handlers and middleware sorted by priority, then
// registration order.
type Registry struct {
	nextID     SubscriptionID
	global     handlerList
	typed      map[EventKind]handlerList
	phased     map[TurnPhase]handlerList
	middleware []middlewareRegistration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		typed:  make(map[EventKind]handlerList),
		phased: make(map[TurnPhase]handlerList),
	}
}

func (r *Registry) newRegistration(h Handler) registration {
	r.nextID++
	return registration{id: r.nextID, handler: h, priority: h.Priority().Clamp()}
}

// AddGlobal registers h for every event kind.
func (r *Registry) AddGlobal(h Handler) SubscriptionID {
	reg := r.newRegistration(h)
	r.global = r.global.insert(reg)
	return reg.id
}

// AddTyped registers h for one event kind.
func (r *Registry) AddTyped(kind EventKind, h Handler) SubscriptionID {
	reg := r.newRegistration(h)
	r.typed[kind] = r.typed[kind].insert(reg)
	return reg.id
}

// AddPhase binds h to phase regardless of its declared phases.
func (r *Registry) AddPhase(phase TurnPhase, h Handler) SubscriptionID {
	reg := r.newRegistration(h)
	r.phased[phase] = r.phased[phase].insert(reg)
	return reg.id
}

// AddDeclared registers h into every phase it declares. All created
// registrations share one SubscriptionID.
func (r *Registry) AddDeclared(h Handler) SubscriptionID {
	reg := r.newRegistration(h)
	for _, phase := range h.RunInPhases().Sorted() {
		r.phased[phase] = r.phased[phase].insert(reg)
	}
	return reg.id
}

// AddMiddleware registers m.
func (r *Registry) AddMiddleware(m Middleware) SubscriptionID {
	r.nextID++
	reg := middlewareRegistration{id: r.nextID, middleware: m, priority: m.Priority().Clamp()}
	i, _ := slices.BinarySearchFunc(r.middleware, reg, func(a, b middlewareRegistration) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	r.middleware = slices.Insert(r.middleware, i, reg)
	return reg.id
}

// Remove drops every registration with id.
func (r *Registry) Remove(id SubscriptionID) bool {
	removed := false
	var ok bool
	if r.global, ok = r.global.without(id); ok {
		removed = true
	}
	for kind, list := range r.typed {
		if r.typed[kind], ok = list.without(id); ok {
			removed = true
		}
	}
	for phase, list := range r.phased {
		if r.phased[phase], ok = list.without(id); ok {
			removed = true
		}
	}
	for i, m := range r.middleware {
		if m.id == id {
			r.middleware = slices.Delete(r.middleware, i, i+1)
			removed = true
			break
		}
	}
	return removed
}

// immediateTargets returns the global and kind-keyed handlers that run for
// event while the bus sits in phase.
func (r *Registry) immediateTargets(event Event, phase TurnPhase) []registration {
	out := make([]registration, 0, len(r.global)+len(r.typed[event.Kind()]))
	for _, reg := range r.global {
		if reg.handler.RunInPhases().Matches(phase) {
			out = append(out, reg)
		}
	}
	for _, reg := range r.typed[event.Kind()] {
		if reg.handler.RunInPhases().Matches(phase) {
			out = append(out, reg)
		}
	}
	slices.SortStableFunc(out, compareRegistrations)
	return out
}

// phaseTargets extends immediateTargets with registrations bound to phase
// or to PhaseAny. Phase bindings ignore the handler's declared phases.
func (r *Registry) phaseTargets(event Event, phase TurnPhase) []registration {
	out := r.immediateTargets(event, phase)
	out = append(out, r.phased[phase]...)
	if phase != PhaseAny {
		out = append(out, r.phased[PhaseAny]...)
	}
	slices.SortStableFunc(out, compareRegistrations)
	return slices.CompactFunc(out, func(a, b registration) bool { return a.id == b.id })
}

// Middleware returns the middleware chain in dispatch order.
func (r *Registry) Middleware() []Middleware {
	out := make([]Middleware, len(r.middleware))
	for i, m := range r.middleware {
		out[i] = m.middleware
	}
	return out
}

// HandlerCount returns the number of handler registrations.
func (r *Registry) HandlerCount() int {
	n := len(r.global)
	for _, l := range r.typed {
		n += len(l)
	}
	for _, l := range r.phased {
		n += len(l)
	}
	return n
}
