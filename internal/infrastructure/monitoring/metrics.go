package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shadowbox"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Environment cache metrics
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	CacheSize      prometheus.Gauge
	CacheWaits     prometheus.Counter
	BuildDuration  *prometheus.HistogramVec

	// Dispatch metrics
	DispatchCalls *prometheus.CounterVec

	// Lifecycle metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	// Artifact resolution metrics
	ArtifactFetches *prometheus.CounterVec

	// HTTP metrics (mirror server)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a collector backed by its own registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers every metric on reg
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envcache_hits_total",
			Help:      "Environment cache hits",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envcache_misses_total",
			Help:      "Environment cache misses",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envcache_evictions_total",
			Help:      "Environments evicted from the cache",
		}),
		CacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "envcache_size",
			Help:      "Environments currently cached",
		}),
		CacheWaits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envcache_waits_total",
			Help:      "Requests that waited for a leased environment to be released",
		}),
		BuildDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "envcache_build_duration_seconds",
			Help:      "Time to resolve an artifact and boot an environment",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"version"}),

		DispatchCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_calls_total",
			Help:      "Framework calls routed through dispatch",
		}, []string{"version", "outcome"}),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed test run units",
		}, []string{"version", "outcome"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Test run unit duration",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"version"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Lifecycle stage duration",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Lifecycle stage failures",
		}, []string{"stage"}),

		ArtifactFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_fetches_total",
			Help:      "Artifact resolutions by source and status",
		}, []string{"source", "status"}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCacheHit records an environment cache hit
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordCacheMiss records an environment build
func (m *Metrics) RecordCacheMiss(version string, build time.Duration) {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
	m.BuildDuration.WithLabelValues(version).Observe(build.Seconds())
}

// RecordEviction records an eviction and the resulting size
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.CacheEvictions.Inc()
}

// RecordCacheWait records a caller blocked on a full, fully leased cache
func (m *Metrics) RecordCacheWait() {
	if m == nil {
		return
	}
	m.CacheWaits.Inc()
}

// SetCacheSize sets the number of cached environments
func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.CacheSize.Set(float64(n))
}

// RecordDispatch records one routed framework call
func (m *Metrics) RecordDispatch(version, outcome string) {
	if m == nil {
		return
	}
	m.DispatchCalls.WithLabelValues(version, outcome).Inc()
}

// RecordRun records a finished run unit
func (m *Metrics) RecordRun(version string, passed bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "passed"
	if !passed {
		outcome = "failed"
	}
	m.RunsTotal.WithLabelValues(version, outcome).Inc()
	m.RunDuration.WithLabelValues(version).Observe(duration.Seconds())
}

// RecordStage records a lifecycle stage
func (m *Metrics) RecordStage(stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordArtifactFetch records an artifact resolution attempt
func (m *Metrics) RecordArtifactFetch(source string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ArtifactFetches.WithLabelValues(source, status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
