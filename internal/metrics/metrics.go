// Package metrics exposes Prometheus counters/gauges for the trading
// core plus a minimal HTTP server serving /metrics and /healthz.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry holds every Prometheus metric the trading core emits.
type Registry struct {
	TicksProcessed   *prometheus.CounterVec
	OrdersSent       *prometheus.CounterVec
	OrdersRejected   *prometheus.CounterVec
	VenueLatencyMS   *prometheus.HistogramVec
	VenueHealthy     *prometheus.GaugeVec
	OpportunitiesSeen prometheus.Counter
	ArbExecuted      prometheus.Counter
	ArbFailed        prometheus.Counter
	QuotesSent       *prometheus.CounterVec
	Fills            *prometheus.CounterVec
	RiskRejections   *prometheus.CounterVec
	KillSwitchActive prometheus.Gauge
	TotalPosition    prometheus.Gauge
	DailyPnL         prometheus.Gauge
}

// NewRegistry builds and registers every metric with the default
// Prometheus registerer.
func NewRegistry() *Registry {
	r := &Registry{
		TicksProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tradingcore_ticks_processed_total", Help: "Ticks processed, by venue"},
			[]string{"venue"},
		),
		OrdersSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tradingcore_orders_sent_total", Help: "Orders sent, by venue and side"},
			[]string{"venue", "side"},
		),
		OrdersRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tradingcore_orders_rejected_total", Help: "Orders rejected pre-trade, by reason"},
			[]string{"reason"},
		),
		VenueLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradingcore_venue_latency_ms",
				Help:    "Observed per-venue round-trip latency in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"venue"},
		),
		VenueHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "tradingcore_venue_healthy", Help: "1 if venue is connected and healthy, else 0"},
			[]string{"venue"},
		),
		OpportunitiesSeen: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "tradingcore_arbitrage_opportunities_total", Help: "Cross-venue arbitrage opportunities detected"},
		),
		ArbExecuted: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "tradingcore_arbitrage_executed_total", Help: "Arbitrage opportunities successfully executed"},
		),
		ArbFailed: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "tradingcore_arbitrage_failed_total", Help: "Arbitrage executions that failed or timed out"},
		),
		QuotesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tradingcore_quotes_sent_total", Help: "Market-making quotes sent, by venue"},
			[]string{"venue"},
		),
		Fills: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tradingcore_fills_total", Help: "Fills received, by venue and side"},
			[]string{"venue", "side"},
		),
		RiskRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tradingcore_risk_rejections_total", Help: "Pre-trade risk rejections, by violation"},
			[]string{"violation"},
		),
		KillSwitchActive: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "tradingcore_kill_switch_active", Help: "1 if the kill switch is latched, else 0"},
		),
		TotalPosition: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "tradingcore_total_position", Help: "Aggregate position across all venues, in base units"},
		),
		DailyPnL: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "tradingcore_daily_pnl_usd", Help: "Realized + unrealized PnL for the current trading day"},
		),
	}

	prometheus.MustRegister(
		r.TicksProcessed, r.OrdersSent, r.OrdersRejected, r.VenueLatencyMS,
		r.VenueHealthy, r.OpportunitiesSeen, r.ArbExecuted, r.ArbFailed,
		r.QuotesSent, r.Fills, r.RiskRejections, r.KillSwitchActive,
		r.TotalPosition, r.DailyPnL,
	)
	return r
}

// HealthStatus is the JSON body served at /healthz.
type HealthStatus struct {
	Status           string `json:"status"`
	KillSwitchActive bool   `json:"kill_switch_active"`
	ConnectedVenues  int    `json:"connected_venues"`
}

// HealthProvider supplies the live values the /healthz handler reports.
type HealthProvider interface {
	Health() HealthStatus
}

// Server is a local-only HTTP server exposing /metrics and /healthz.
type Server struct {
	httpServer *http.Server
	health     HealthProvider
}

// NewServer builds the metrics/health server bound to addr (host:port),
// not started until Start is called.
func NewServer(addr string, health HealthProvider) *Server {
	mux := http.NewServeMux()
	s := &Server{health: health}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Health()
	w.Header().Set("Content-Type", "application/json")
	if status.KillSwitchActive {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode health response")
	}
}

// Start runs the server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("metrics server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}
