package metrics

import (
	"net/http"
	"time"

	"github.com/newthinker/ashare/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	tradesTotal      *prometheus.CounterVec
	signalsGenerated *prometheus.CounterVec
	ordersTotal      *prometheus.CounterVec
	monitorCycles    prometheus.Counter
	monitorDuration  prometheus.Histogram
	notifications    *prometheus.CounterVec
	poolSymbols      prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_backtests_total",
			Help: "Total number of backtests run",
		},
		[]string{"strategy", "status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ashare_backtest_duration_seconds",
			Help:    "Backtest duration in seconds, including data fetch",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_backtest_trades_total",
			Help: "Total number of simulated trades",
		},
		[]string{"action"},
	)
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_signals_generated_total",
			Help: "Total number of live signals generated",
		},
		[]string{"strategy", "action"},
	)
	r.ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_orders_total",
			Help: "Total number of orders sent to the broker",
		},
		[]string{"side", "status"},
	)
	r.monitorCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ashare_monitor_cycles_total",
			Help: "Total number of monitor cycles completed",
		},
	)
	r.monitorDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ashare_monitor_cycle_duration_seconds",
			Help:    "Monitor cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_notifications_total",
			Help: "Total number of notifications sent",
		},
		[]string{"notifier", "status"},
	)
	r.poolSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ashare_stock_pool_symbols",
			Help: "Number of symbols in the monitored stock pool",
		},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.ordersTotal)
	reg.MustRegister(r.monitorCycles)
	reg.MustRegister(r.monitorDuration)
	reg.MustRegister(r.notifications)
	reg.MustRegister(r.poolSymbols)

	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// ObserveBacktest records a backtest completion.
func (r *Registry) ObserveBacktest(strategy, status string, d time.Duration) {
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.Observe(d.Seconds())
}

// ObserveTrade records a simulated trade.
func (r *Registry) ObserveTrade(action core.Action) {
	r.tradesTotal.WithLabelValues(string(action)).Inc()
}

// ObserveSignal records a generated live signal.
func (r *Registry) ObserveSignal(strategy string, action core.Action) {
	r.signalsGenerated.WithLabelValues(strategy, string(action)).Inc()
}

// ObserveOrder records an order outcome.
func (r *Registry) ObserveOrder(side, status string) {
	r.ordersTotal.WithLabelValues(side, status).Inc()
}

// ObserveCycle records a monitor cycle completion.
func (r *Registry) ObserveCycle(d time.Duration) {
	r.monitorCycles.Inc()
	r.monitorDuration.Observe(d.Seconds())
}

// ObserveNotification records a notification attempt.
func (r *Registry) ObserveNotification(notifier, status string) {
	r.notifications.WithLabelValues(notifier, status).Inc()
}

// SetPoolSize sets the stock pool size.
func (r *Registry) SetPoolSize(size int) {
	r.poolSymbols.Set(float64(size))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
