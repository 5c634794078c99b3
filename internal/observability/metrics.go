package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	summariesTotal    *prometheus.CounterVec
	summaryDuration   prometheus.Histogram
	diagnosticsTotal  *prometheus.CounterVec
	carryForwardTotal *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	summaries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_finance_summaries_total",
		Help: "Financial summaries computed, by recognition model.",
	}, []string{"model"})
	summaryDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "meridian_finance_summary_duration_seconds",
		Help:    "Time spent fetching and reducing one report window.",
		Buckets: prometheus.DefBuckets,
	})
	diagnostics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_finance_diagnostics_total",
		Help: "Non-fatal record anomalies observed while reporting.",
	}, []string{"kind"})
	carryForward := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_finance_carry_forward_total",
		Help: "Carry-forward attempts by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, summaries, summaryDuration, diagnostics, carryForward)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		summariesTotal:    summaries,
		summaryDuration:   summaryDuration,
		diagnosticsTotal:  diagnostics,
		carryForwardTotal: carryForward,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveSummary records one computed summary.
func (m *Metrics) ObserveSummary(model string, took time.Duration, diagnosticKinds map[string]int) {
	if m == nil {
		return
	}
	m.summariesTotal.WithLabelValues(model).Inc()
	m.summaryDuration.Observe(took.Seconds())
	for kind, n := range diagnosticKinds {
		m.diagnosticsTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveCarryForward records a carry-forward attempt outcome:
// posted, refused, or conflict.
func (m *Metrics) ObserveCarryForward(outcome string) {
	if m == nil {
		return
	}
	m.carryForwardTotal.WithLabelValues(outcome).Inc()
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
