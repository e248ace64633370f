package rules

import (
	"fmt"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// LoggingMiddleware writes a debug line for every event that passes through
// the bus.
type LoggingMiddleware struct {
	BaseMiddleware
	logger *zap.Logger
}

// NewLoggingMiddleware creates a logging middleware running at Critical
// priority so it sees events before any filter.
func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingMiddleware{
		BaseMiddleware: BaseMiddleware{MiddlewareName: "logging", MiddlewarePriority: PriorityCritical},
		logger:         logger,
	}
}

// BeforeHandle logs the event and always continues.
func (m *LoggingMiddleware) BeforeHandle(event Event) bool {
	m.logger.Debug("event",
		zap.String("kind", string(event.Kind())),
		zap.Stringer("category", Category(event)))
	return true
}

type compiledPattern struct {
	source string
	glob   glob.Glob
}

// KindFilterMiddleware stops dispatch of events whose kind matches one of a
// set of glob patterns, e.g. "Status*" or "Item{Used,Dropped}".
type KindFilterMiddleware struct {
	BaseMiddleware
	patterns []compiledPattern
}

// NewKindFilterMiddleware compiles patterns. It fails on the first pattern
// that does not compile.
func NewKindFilterMiddleware(name string, priority Priority, patterns ...string) (*KindFilterMiddleware, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid kind pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{source: pattern, glob: g})
	}
	return &KindFilterMiddleware{
		BaseMiddleware: BaseMiddleware{MiddlewareName: name, MiddlewarePriority: priority.Clamp()},
		patterns:       compiled,
	}, nil
}

// BeforeHandle returns false when the event kind matches a pattern.
func (m *KindFilterMiddleware) BeforeHandle(event Event) bool {
	return m.Match(event.Kind()) == ""
}

// Match returns the first pattern matching kind, or "".
func (m *KindFilterMiddleware) Match(kind EventKind) string {
	for _, p := range m.patterns {
		if p.glob.Match(string(kind)) {
			return p.source
		}
	}
	return ""
}

// Patterns returns the configured pattern sources.
func (m *KindFilterMiddleware) Patterns() []string {
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.source
	}
	return out
}
