package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Scheduler loops (label: loop)
	LoopRunsTotal   *prometheus.CounterVec   // labels: loop, outcome=ok|failed
	LoopSkipsTotal  *prometheus.CounterVec   // reentrancy-guard skips
	LoopDuration    *prometheus.HistogramVec // body wall time
	LoopItemsTotal  *prometheus.CounterVec   // labels: loop, result=succeeded|failed|skipped
	LoopLastSuccess *prometheus.GaugeVec     // unix seconds of last successful cycle

	// Alerts
	AlertsFiredTotal      prometheus.Counter
	AlertsDroppedTotal    prometheus.Counter
	AlertDeliveriesTotal  *prometheus.CounterVec // labels: channel, outcome=ok|failed
	IndicatorsMissingData prometheus.Counter     // snapshots stored without an RSI

	// Store circuit breaker
	StoreCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	StoreCircuitBreakerTrips prometheus.Counter
}

// NewMetrics registers all metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoopRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pumpwatch_loop_runs_total",
			Help: "Completed loop cycles by outcome",
		}, []string{"loop", "outcome"}),
		LoopSkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pumpwatch_loop_skips_total",
			Help: "Ticks skipped because the previous cycle was still running",
		}, []string{"loop"}),
		LoopDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pumpwatch_loop_duration_seconds",
			Help:    "Loop cycle wall time",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"loop"}),
		LoopItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pumpwatch_loop_items_total",
			Help: "Per-item results inside loop cycles",
		}, []string{"loop", "result"}),
		LoopLastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pumpwatch_loop_last_success_timestamp_seconds",
			Help: "Unix time of the last successful cycle",
		}, []string{"loop"}),

		AlertsFiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pumpwatch_alerts_fired_total",
			Help: "Alerts whose RSI condition held",
		}),
		AlertsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pumpwatch_alerts_dropped_total",
			Help: "Alerts dropped because the dispatch queue was full",
		}),
		AlertDeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pumpwatch_alert_deliveries_total",
			Help: "Alert delivery attempts per channel",
		}, []string{"channel", "outcome"}),
		IndicatorsMissingData: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pumpwatch_indicators_insufficient_data_total",
			Help: "Indicator snapshots stored with at least one RSI absent",
		}),

		StoreCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pumpwatch_store_circuit_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		StoreCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pumpwatch_store_circuit_breaker_trips_total",
			Help: "Times the store circuit breaker opened",
		}),
	}

	reg.MustRegister(
		m.LoopRunsTotal,
		m.LoopSkipsTotal,
		m.LoopDuration,
		m.LoopItemsTotal,
		m.LoopLastSuccess,
		m.AlertsFiredTotal,
		m.AlertsDroppedTotal,
		m.AlertDeliveriesTotal,
		m.IndicatorsMissingData,
		m.StoreCircuitBreakerState,
		m.StoreCircuitBreakerTrips,
	)

	return m
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
