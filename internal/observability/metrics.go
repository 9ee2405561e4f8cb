package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	checkoutsTotal   *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
	revenueTotal     prometheus.Counter
	stockDrift       prometheus.Gauge
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_pos_checkouts_total",
		Help: "Jumlah checkout berdasarkan hasil.",
	}, []string{"outcome"})
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_pos_checkout_duration_seconds",
		Help:    "Durasi checkout termasuk transaksi database.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"outcome"})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_pos_revenue_total",
		Help: "Total pendapatan dari checkout yang berhasil, dalam satuan mata uang.",
	})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "odyssey_inventory_drift_products",
		Help: "Jumlah produk yang stoknya tidak cocok dengan ledger pada rekonsiliasi terakhir.",
	})
	registry.MustRegister(requests, duration, checkouts, checkoutDuration, revenue, drift)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		checkoutsTotal:   checkouts,
		checkoutDuration: checkoutDuration,
		revenueTotal:     revenue,
		stockDrift:       drift,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCheckout mencatat hasil satu checkout. Pendapatan hanya dihitung untuk
// checkout yang ter-commit.
func (m *Metrics) ObserveCheckout(outcome string, elapsed time.Duration, total shared.Money) {
	if m == nil {
		return
	}
	m.checkoutsTotal.WithLabelValues(outcome).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == "committed" && total > 0 {
		m.revenueTotal.Add(float64(total.Cents()) / 100)
	}
}

// SetStockDrift menyimpan jumlah produk yang tidak seimbang.
func (m *Metrics) SetStockDrift(products int) {
	if m == nil {
		return
	}
	m.stockDrift.Set(float64(products))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
