// Package metrics exposes Prometheus instrumentation for the OAuth and
// webhook paths.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the OAuth flow, webhook processing, and
// the HTTP surface.
type Metrics struct {
	OAuthStarted     prometheus.Counter
	OAuthCompleted   prometheus.Counter
	OAuthFailed      *prometheus.CounterVec
	WebhooksReceived *prometheus.CounterVec
	StoresDeleted    prometheus.Counter

	httpDuration *prometheus.HistogramVec
	registry     *prometheus.Registry
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		OAuthStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "oauth_flows_started_total",
			Help: "OAuth handshakes begun.",
		}),
		OAuthCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "oauth_flows_completed_total",
			Help: "OAuth handshakes finished with a persisted session.",
		}),
		OAuthFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_flows_failed_total",
			Help: "OAuth handshakes aborted, by stage.",
		}, []string{"stage"}),
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Webhook deliveries, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		StoresDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stores_deleted_total",
			Help: "Stores removed by uninstall cleanup.",
		}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency, by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		registry: registry,
	}
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request latency labeled with the chi route pattern,
// keeping cardinality bounded regardless of path parameters.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.WithLabelValues(
			r.Method,
			route,
			strconv.Itoa(ww.Status()),
		).Observe(time.Since(start).Seconds())
	})
}
