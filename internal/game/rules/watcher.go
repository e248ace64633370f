package rules

import (
	"fmt"
	"reflect"
	"sync"
)

// WatcherScope says whose events a watcher counts.
type WatcherScope int

const (
	// WatcherScopeGame counts events for the whole run.
	WatcherScopeGame WatcherScope = iota
	// WatcherScopeActor counts events concerning one actor.
	WatcherScopeActor
)

func (ws WatcherScope) String() string {
	switch ws {
	case WatcherScopeGame:
		return "GAME"
	case WatcherScopeActor:
		return "ACTOR"
	default:
		return "UNKNOWN"
	}
}

// Watcher is a passive consumer that folds dispatched events into a
// condition, such as an achievement or a run statistic. Watchers never
// publish.
type Watcher interface {
	// Watch sees every event the registry receives. Unknown kinds must be
	// ignored.
	Watch(event Event)
	Reset()
	ConditionMet() bool
	Scope() WatcherScope
	// Key is unique within a registry.
	Key() string
	// Copy returns an independent deep copy.
	Copy() Watcher
}

// BaseWatcher carries the bookkeeping every watcher needs. Embed it and
// implement Watch and Copy.
type BaseWatcher struct {
	scope WatcherScope
	actor EntityID
	met   bool
	key   string
}

// NewBaseWatcher creates a base watcher with the given scope.
func NewBaseWatcher(scope WatcherScope) *BaseWatcher {
	return &BaseWatcher{scope: scope}
}

func (bw *BaseWatcher) Scope() WatcherScope { return bw.scope }

// SetActor binds an actor scoped watcher to its actor.
func (bw *BaseWatcher) SetActor(id EntityID) { bw.actor = id }

func (bw *BaseWatcher) Actor() EntityID { return bw.actor }

func (bw *BaseWatcher) ConditionMet() bool { return bw.met }

func (bw *BaseWatcher) SetCondition(met bool) { bw.met = met }

func (bw *BaseWatcher) Reset() { bw.met = false }

func (bw *BaseWatcher) Key() string { return bw.key }

func (bw *BaseWatcher) SetKey(key string) { bw.key = key }

// WatcherRegistry fans events out to watchers in registration order. It is
// a Handler, runs at PriorityLowest in every phase, and so sees an event
// after the handlers that react to it.
type WatcherRegistry struct {
	mu    sync.RWMutex
	order []Watcher
	byKey map[string]Watcher
}

// NewWatcherRegistry creates an empty registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{byKey: make(map[string]Watcher)}
}

// AddWatcher registers w. Without a key one is derived from its type and,
// for actor scoped watchers, its actor. A watcher with the same key is
// replaced.
func (wr *WatcherRegistry) AddWatcher(w Watcher) {
	if w == nil {
		return
	}
	key := w.Key()
	if key == "" {
		key = watcherKey(w)
		if setter, ok := w.(interface{ SetKey(string) }); ok {
			setter.SetKey(key)
		}
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()
	wr.removeLocked(key)
	wr.byKey[key] = w
	wr.order = append(wr.order, w)
}

// RemoveWatcher drops the watcher registered under key.
func (wr *WatcherRegistry) RemoveWatcher(key string) {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	wr.removeLocked(key)
}

func (wr *WatcherRegistry) removeLocked(key string) {
	w, ok := wr.byKey[key]
	if !ok {
		return
	}
	delete(wr.byKey, key)
	for i, cur := range wr.order {
		if cur == w {
			wr.order = append(wr.order[:i], wr.order[i+1:]...)
			return
		}
	}
}

// Watcher returns the watcher registered under key, or nil.
func (wr *WatcherRegistry) Watcher(key string) Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return wr.byKey[key]
}

// Watchers returns the registered watchers, optionally limited to the
// given scopes, in registration order.
func (wr *WatcherRegistry) Watchers(scopes ...WatcherScope) []Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	out := make([]Watcher, 0, len(wr.order))
	for _, w := range wr.order {
		if len(scopes) == 0 || containsScope(scopes, w.Scope()) {
			out = append(out, w)
		}
	}
	return out
}

func containsScope(scopes []WatcherScope, s WatcherScope) bool {
	for _, cur := range scopes {
		if cur == s {
			return true
		}
	}
	return false
}

// Met returns the keys of watchers whose condition holds.
func (wr *WatcherRegistry) Met() []string {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	var keys []string
	for _, w := range wr.order {
		if w.ConditionMet() {
			keys = append(keys, w.Key())
		}
	}
	return keys
}

// Snapshot returns deep copies of every watcher keyed by watcher key.
func (wr *WatcherRegistry) Snapshot() map[string]Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	out := make(map[string]Watcher, len(wr.byKey))
	for key, w := range wr.byKey {
		out[key] = w.Copy()
	}
	return out
}

// Reset resets the watchers in the given scopes, or all of them.
func (wr *WatcherRegistry) Reset(scopes ...WatcherScope) {
	for _, w := range wr.Watchers(scopes...) {
		w.Reset()
	}
}

// Len returns the number of registered watchers.
func (wr *WatcherRegistry) Len() int {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return len(wr.order)
}

// Handle implements Handler.
func (wr *WatcherRegistry) Handle(event Event) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	for _, w := range wr.order {
		w.Watch(event)
	}
}

func (wr *WatcherRegistry) Name() string { return "watchers" }

func (wr *WatcherRegistry) Priority() Priority { return PriorityLowest }

func (wr *WatcherRegistry) ShouldHandle(Event) bool { return true }

func (wr *WatcherRegistry) RunInPhases() PhaseSet { return NewPhaseSet() }

func watcherKey(w Watcher) string {
	t := reflect.TypeOf(w)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if w.Scope() == WatcherScopeActor {
		if a, ok := w.(interface{ Actor() EntityID }); ok {
			return fmt.Sprintf("%d_%s", a.Actor(), t.Name())
		}
	}
	return t.Name()
}
