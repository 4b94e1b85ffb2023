// Package observability collects Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus registry and instruments.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	roleChangesTotal     *prometheus.CounterVec
	auditEnqueueFailures prometheus.Counter
	auditWriteFailures   prometheus.Counter
}

// NewMetrics initialises the registry and the base instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "haulstack_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "haulstack_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	roleChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "haulstack_role_changes_total",
		Help: "Role change requests by outcome.",
	}, []string{"outcome"})
	enqueueFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "haulstack_audit_enqueue_failures_total",
		Help: "Audit entries that could not be queued after a role change.",
	})
	writeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "haulstack_audit_write_failures_total",
		Help: "Queued audit entries the worker could not persist.",
	})
	registry.MustRegister(requests, duration, roleChanges, enqueueFailures, writeFailures)
	return &Metrics{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:        requests,
		requestDuration:      duration,
		roleChangesTotal:     roleChanges,
		auditEnqueueFailures: enqueueFailures,
		auditWriteFailures:   writeFailures,
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

// Middleware records request metrics for every HTTP request.
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

// CountRoleChange tallies a role change decision outcome: applied, denied,
// or noop.
func (m *Metrics) CountRoleChange(outcome string) {
	if m == nil {
		return
	}
	m.roleChangesTotal.WithLabelValues(outcome).Inc()
}

// AuditEnqueueFailures returns the counter for audit entries that never made
// it onto the queue.
func (m *Metrics) AuditEnqueueFailures() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.auditEnqueueFailures
}

// AuditWriteFailures returns the counter for audit entries the worker failed
// to persist.
func (m *Metrics) AuditWriteFailures() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.auditWriteFailures
}

// Registerer exposes the registry for custom metric registration.
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
