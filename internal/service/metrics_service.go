package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the prometheus registry and the collectors the API
// exposes on /metrics.
type MetricsService struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheWrites   prometheus.Counter
	cacheDuration prometheus.Histogram
	cacheRatio    prometheus.Gauge

	conflictTotal *prometheus.CounterVec

	mu       sync.Mutex
	hitCount float64
	reqCount float64
}

// NewMetricsService registers all collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "campus_booking",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campus_booking",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route, method and status.",
		}, []string{"method", "route", "status"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campus_booking",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookups that returned a value.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campus_booking",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookups that fell through to the database.",
		}),
		cacheWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campus_booking",
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Cache set operations.",
		}),
		cacheDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campus_booking",
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Latency of cache operations.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		cacheRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "campus_booking",
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Rolling cache hit ratio since process start.",
		}),
		conflictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campus_booking",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Rejected operations due to time slot conflicts.",
		}, []string{"kind"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "campus_booking",
		Subsystem: "runtime",
		Name:      "goroutines",
		Help:      "Current number of goroutines.",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	registry.MustRegister(
		s.requestDuration,
		s.requestTotal,
		s.cacheHits,
		s.cacheMisses,
		s.cacheWrites,
		s.cacheDuration,
		s.cacheRatio,
		s.conflictTotal,
		goroutines,
	)

	return s
}

// Handler serves the registry in the standard exposition format.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, route, code).Inc()
}

// RecordCacheOperation records a cache lookup and updates the hit ratio.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
	s.cacheDuration.Observe(duration.Seconds())

	s.mu.Lock()
	if hit {
		s.hitCount++
	}
	s.reqCount++
	if s.reqCount > 0 {
		s.cacheRatio.Set(s.hitCount / s.reqCount)
	}
	s.mu.Unlock()
}

// RecordCacheWrite records a cache set.
func (s *MetricsService) RecordCacheWrite(duration time.Duration) {
	s.cacheWrites.Inc()
	s.cacheDuration.Observe(duration.Seconds())
}

// RecordConflict counts a booking or schedule operation rejected with a
// time slot conflict. kind is "booking" or "schedule".
func (s *MetricsService) RecordConflict(kind string) {
	s.conflictTotal.WithLabelValues(kind).Inc()
}
