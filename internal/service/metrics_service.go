package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

// Assignment paths and outcomes used as metric labels.
const (
	AssignPathAuto  = "auto"
	AssignPathClaim = "claim"
	AssignPathSweep = "sweep"

	OutcomeAssigned     = "assigned"
	OutcomeNoTechnician = "no_technician"
	OutcomeAtCapacity   = "at_capacity"
	OutcomeTaken        = "already_assigned"
	OutcomeFailed       = "failed"
)

// MetricsService owns the Prometheus registry for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	assignments     *prometheus.CounterVec
	locatorHits     *prometheus.CounterVec
	matcherResults  *prometheus.CounterVec
	events          *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_total",
		Help: "Assignment attempts by path and outcome",
	}, []string{"path", "outcome"})

	locatorHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_strategy_total",
		Help: "Technician lookups by the strategy that produced a candidate",
	}, []string{"strategy"})

	matcherResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matcher_results_total",
		Help: "Feed matcher runs by result kind",
	}, []string{"result"})

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Domain events handed to the broker by type and outcome",
	}, []string{"type", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		assignments, locatorHits, matcherResults, events, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		assignments:     assignments,
		locatorHits:     locatorHits,
		matcherResults:  matcherResults,
		events:          events,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordAssignment counts one assignment attempt.
func (m *MetricsService) RecordAssignment(path, outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(path, outcome).Inc()
}

// RecordLocatorStrategy counts a locator strategy that produced a technician.
func (m *MetricsService) RecordLocatorStrategy(strategy models.LocatorStrategy) {
	if m == nil {
		return
	}
	m.locatorHits.WithLabelValues(string(strategy)).Inc()
}

// RecordMatch counts a matcher run.
func (m *MetricsService) RecordMatch(result string) {
	if m == nil {
		return
	}
	m.matcherResults.WithLabelValues(result).Inc()
}

// RecordEvent counts one event delivery attempt outcome.
func (m *MetricsService) RecordEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}
