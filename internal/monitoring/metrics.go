package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_orders_total",
			Help: "Total number of simulated orders executed",
		},
		[]string{"code", "side"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_rejections_total",
			Help: "Total number of rejected orders",
		},
		[]string{"reason"},
	)

	// Run progress metrics
	sessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_sessions_total",
			Help: "Trading sessions processed",
		},
	)

	totalAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_total_assets",
			Help: "Account total assets after the latest session",
		},
	)

	heldInstruments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_held_instruments",
			Help: "Instruments held after the latest session",
		},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(rejectionsTotal)
	prometheus.MustRegister(sessionsTotal)
	prometheus.MustRegister(totalAssets)
	prometheus.MustRegister(heldInstruments)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordOrder records an executed order
func RecordOrder(code, side string) {
	ordersTotal.WithLabelValues(code, side).Inc()
}

// RecordRejection records a rejected order
func RecordRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordSession records one processed trading session and the resulting
// account state
func RecordSession(assets float64, held int) {
	sessionsTotal.Inc()
	totalAssets.Set(assets)
	heldInstruments.Set(float64(held))
}
