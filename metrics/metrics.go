package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	duplicateRejections prometheus.Counter
	saves               *prometheus.CounterVec
	discards            prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vendroute",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vendroute",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		duplicateRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vendroute",
			Name:      "duplicate_code_rejections_total",
			Help:      "Stop edits rejected because the code is already in use.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vendroute",
			Name:      "session_saves_total",
			Help:      "Save All attempts by result.",
		}, []string{"result"}),
		discards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vendroute",
			Name:      "session_discards_total",
			Help:      "Discard requests.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration, m.duplicateRejections, m.saves, m.discards,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackSessions exports the number of live editing sessions, read from count
// on every scrape.
func (m *Metrics) TrackSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "vendroute",
		Name:      "editing_sessions",
		Help:      "Live editing sessions.",
	}, func() float64 { return float64(count()) }))
}

// TrackOutbox exports the number of change-feed messages waiting to be sent.
func (m *Metrics) TrackOutbox(pending func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "vendroute",
		Name:      "outbox_pending",
		Help:      "Change-feed messages not yet published.",
	}, func() float64 { return float64(pending()) }))
}

func (m *Metrics) DuplicateRejected() {
	m.duplicateRejections.Inc()
}

// SessionSaved counts a Save All attempt.
func (m *Metrics) SessionSaved(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionDiscarded() {
	m.discards.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled with the chi route
// pattern, so /api/products/7 and /api/products/8 share a series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
