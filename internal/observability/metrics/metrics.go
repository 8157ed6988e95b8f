// Package metrics exposes Prometheus collectors for the admin console.
package metrics

import (
	goerrors "errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/dscatalog/catalog-admin/internal/errors"
)

// Result values for the role lookup counter.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultDegraded = "degraded"
)

// Registry owns the collectors and the registry they are registered in.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	navRenders          *prometheus.CounterVec
	roleLookups         *prometheus.CounterVec
}

// New creates a Registry with Go and process collectors plus the console metrics.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		navRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_nav_renders_total",
			Help: "Navigation bar renders by number of visible entries.",
		}, []string{"visible"}),
		roleLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_role_lookups_total",
			Help: "Stored role lookups at login by result.",
		}, []string{"result", "error_class"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpInFlight,
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.navRenders,
		r.roleLookups,
	)
	return r
}

// Gatherer returns the underlying registry for tests and custom exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// ObserveNavRender counts one navbar render with visible entries shown.
func (r *Registry) ObserveNavRender(visible int) {
	if r == nil {
		return
	}
	r.navRenders.WithLabelValues(strconv.Itoa(visible)).Inc()
}

// ObserveRoleLookup counts a stored-role lookup. A nil err is a success.
func (r *Registry) ObserveRoleLookup(err error) {
	if r == nil {
		return
	}
	switch {
	case err == nil:
		r.roleLookups.WithLabelValues(ResultSuccess, "").Inc()
	case apperrors.IsUnavailable(err):
		r.roleLookups.WithLabelValues(ResultDegraded, Classify(err)).Inc()
	default:
		r.roleLookups.WithLabelValues(ResultError, Classify(err)).Inc()
	}
}

// Instrument wraps next with request count, latency and in-flight metrics.
// route names the handler so path parameters do not explode label cardinality.
func (r *Registry) Instrument(route string, next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.httpInFlight.Inc()
		defer r.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, req)

		status := strconv.Itoa(sw.code)
		r.httpRequestDuration.WithLabelValues(req.Method, route, status).Observe(time.Since(start).Seconds())
		r.httpRequestsTotal.WithLabelValues(req.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Classify returns a label-safe name for err.
// Application errors are named by their code; anything else by the innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return strings.ToLower(string(code))
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return "unknown"
	}
	return strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
}
