package rules

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BusMetrics are the collectors for one bus. A nil *BusMetrics records
// nothing.
type BusMetrics struct {
	dispatched *prometheus.CounterVec
	blocked    *prometheus.CounterVec
	deferred   prometheus.Counter
}

// NewBusMetrics creates bus metrics and registers them with reg. A nil reg
// leaves them unregistered. Each registry takes one set.
func NewBusMetrics(reg prometheus.Registerer) *BusMetrics {
	m := &BusMetrics{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnengine_bus_events_dispatched_total",
			Help: "Total number of events dispatched to handlers",
		}, []string{"kind", "category"}),
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turnengine_bus_events_blocked_total",
			Help: "Total number of events stopped by middleware",
		}, []string{"kind"}),
		deferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnengine_bus_events_deferred_total",
			Help: "Total number of publishes deferred by the depth limit",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.dispatched, m.blocked, m.deferred)
	}
	return m
}

func (m *BusMetrics) incDispatched(event Event) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(string(event.Kind()), Category(event).String()).Inc()
}

func (m *BusMetrics) incBlocked(event Event) {
	if m == nil {
		return
	}
	m.blocked.WithLabelValues(string(event.Kind())).Inc()
}

func (m *BusMetrics) incDeferred() {
	if m == nil {
		return
	}
	m.deferred.Inc()
}

// MetricsMiddleware counts every event that completes the handler pass.
// Register it last so earlier middleware can still block events.
type MetricsMiddleware struct {
	BaseMiddleware
	metrics *BusMetrics
}

// NewMetricsMiddleware creates a metrics middleware at Lowest priority that
// records into metrics.
func NewMetricsMiddleware(metrics *BusMetrics) *MetricsMiddleware {
	return &MetricsMiddleware{
		BaseMiddleware: BaseMiddleware{MiddlewareName: "metrics", MiddlewarePriority: PriorityLowest},
		metrics:        metrics,
	}
}

// AfterHandle increments the dispatch counter.
func (m *MetricsMiddleware) AfterHandle(event Event) {
	m.metrics.incDispatched(event)
}
