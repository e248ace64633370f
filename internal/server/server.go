// Package server exposes a running engine over HTTP: a websocket event
// stream, Prometheus metrics and a health probe.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pixeldungeon/turnengine/internal/game"
)

// Metrics are the server's own collectors.
type Metrics struct {
	clientsConnected  prometheus.Gauge
	messagesBroadcast prometheus.Counter
	messagesDropped   prometheus.Counter
	framesTotal       prometheus.Counter
	turnsTotal        prometheus.Counter
}

// NewMetrics creates the server metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "turnengine_stream_clients",
			Help: "Number of connected event stream clients",
		}),
		messagesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnengine_stream_messages_total",
			Help: "Total number of events queued for broadcast",
		}),
		messagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnengine_stream_messages_dropped_total",
			Help: "Total number of stream messages dropped for slow clients",
		}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnengine_frames_total",
			Help: "Total number of engine frames stepped",
		}),
		turnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnengine_turns_completed_total",
			Help: "Total number of completed global turns",
		}),
	}
	reg.MustRegister(m.clientsConnected, m.messagesBroadcast, m.messagesDropped, m.framesTotal, m.turnsTotal)
	return m
}

// Server serves the engine's event stream and metrics and steps the engine
// on a fixed tick.
type Server struct {
	addr     string
	tick     time.Duration
	engine   *game.Engine
	hub      *Hub
	registry *prometheus.Registry
	metrics  *Metrics
	logger   *zap.Logger

	ready      chan struct{}
	listener   net.Listener
	httpServer *http.Server
}

// New creates a server for engine that serves registry on /metrics. The
// bus metrics, if any, are expected to be registered there already. A nil
// registry starts an empty one. A zero tick disables automatic stepping.
func New(engine *game.Engine, addr string, tick time.Duration, registry *prometheus.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	registry.MustRegister(collectors.NewGoCollector())
	metrics := NewMetrics(registry)

	bus := engine.Bus()
	return &Server{
		addr:     addr,
		tick:     tick,
		engine:   engine,
		hub:      NewHub(engine, bus.CurrentPhase, metrics, logger),
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Registry returns the Prometheus registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Hub returns the event stream hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/events", s.hub)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.engine.Over() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("game over\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	close(s.ready)

	subID := s.engine.Subscribe(s.hub)
	defer s.engine.Unsubscribe(subID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.runTicker(gctx)
		return nil
	})
	g.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	})

	s.logger.Info("server started", zap.String("addr", listener.Addr().String()), zap.Duration("tick", s.tick))
	runErr := g.Wait()

	s.logger.Info("server stopped")
	return runErr
}

// Ready is closed once Run is listening.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address. Only valid after Ready is closed.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) runTicker(ctx context.Context) {
	if s.tick <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step advances the engine one frame and records it.
func (s *Server) Step() game.StepReport {
	report := s.engine.Step()
	s.metrics.framesTotal.Inc()
	if report.Cycle.TurnCompleted {
		s.metrics.turnsTotal.Inc()
	}
	return report
}
