package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/turtacn/nightowl/pkg/logger"
)

var (
	// IdleSamples counts occupancy samples, partitioned by result
	// (empty, occupied, error).
	IdleSamples = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_idle_samples_total",
		Help: "Occupancy samples taken by the idle checker",
	}, []string{"result"})
	// ConsecutiveEmpty tracks the current consecutive-empty counter.
	ConsecutiveEmpty = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nightowl_consecutive_empty_samples",
		Help: "Consecutive empty occupancy samples",
	})
	// CheckerEnabled is 1 while idle polling is enabled.
	CheckerEnabled = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nightowl_checker_enabled",
		Help: "Whether the idle checker is enabled",
	})
	// ShutdownInProgress is 1 while a countdown is active.
	ShutdownInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nightowl_shutdown_in_progress",
		Help: "Whether a shutdown countdown is active",
	})
	// Countdowns counts countdowns, partitioned by outcome
	// (started, cancelled, executed).
	Countdowns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_countdowns_total",
		Help: "Shutdown countdowns by outcome",
	}, []string{"outcome"})
	// LogCommands counts recognized operator commands from the log.
	LogCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_log_commands_total",
		Help: "Operator commands dispatched from the server log",
	}, []string{"command"})
	// NotificationFailures counts server chat messages that were not delivered,
	// partitioned by reason (send, dropped).
	NotificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightowl_notification_failures_total",
		Help: "Server notifications that failed or were dropped",
	}, []string{"reason"})
)

var registerOnce sync.Once

// Register adds the nightowl collectors to the default registry. Safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			IdleSamples,
			ConsecutiveEmpty,
			CheckerEnabled,
			ShutdownInProgress,
			Countdowns,
			LogCommands,
			NotificationFailures,
		)
	})
}

// BoolGauge converts a flag to a gauge value.
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// InitMetrics registers collectors and, when addr is non-empty, starts an
// HTTP server exposing them. The returned Server is nil when addr is empty.
func InitMetrics(addr string, log logger.Logger) *Server {
	Register()
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.With("component", "metrics"),
	}

	go func() {
		s.log.Info("Metrics server starting", "addr", addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("Metrics server failed", "err", err)
		}
	}()
	return s
}

// Shutdown stops the HTTP server. Safe on a nil Server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Personal.AI order the ending
