package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics using Prometheus with zero-allocation hot path
type PrometheusMetrics struct {
	// Decision counters (using atomic for zero-allocation)
	decisionsAllow atomic.Uint64
	decisionsDeny  atomic.Uint64
	cacheHits      atomic.Uint64
	cacheMisses    atomic.Uint64

	// Prometheus metrics (for HTTP export)
	decisionsTotal   *prometheus.CounterVec
	decisionDuration prometheus.Histogram
	batchSize        prometheus.Histogram
	batchDuration    prometheus.Histogram
	faultsTotal      *prometheus.CounterVec

	parseDuration    prometheus.Histogram
	validateDuration prometheus.Histogram
	validationIssues *prometheus.CounterVec
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of authorization decisions by outcome",
		},
		[]string{"decision"},
	)

	// Decision latency: 1µs to 10ms (sub-millisecond expected)
	decisionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_microseconds",
			Help:      "Authorization decision latency in microseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 10000},
		},
	)

	batchSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "size",
			Help:      "Number of requests per batch decision call",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	batchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_microseconds",
			Help:      "Batch decision latency in microseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
		},
	)

	faultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_faults_total",
			Help:      "Total number of contained evaluation faults by kind",
		},
		[]string{"kind"},
	)

	parseDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "parse",
			Name:      "duration_microseconds",
			Help:      "Policy set parse latency in microseconds",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 5000, 10000},
		},
	)

	validateDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validate",
			Name:      "duration_microseconds",
			Help:      "Policy set validation latency in microseconds",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 5000, 10000},
		},
	)

	validationIssues := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validate",
			Name:      "issues_total",
			Help:      "Total number of validation findings by severity",
		},
		[]string{"severity"},
	)

	cacheHitsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parse_cache",
			Name:      "hits_total",
			Help:      "Total number of parse cache hits",
		},
	)

	cacheMissesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parse_cache",
			Name:      "misses_total",
			Help:      "Total number of parse cache misses",
		},
	)

	registry.MustRegister(
		decisionsTotal,
		decisionDuration,
		batchSize,
		batchDuration,
		faultsTotal,
		parseDuration,
		validateDuration,
		validationIssues,
		cacheHitsTotal,
		cacheMissesTotal,
	)

	pm := &PrometheusMetrics{
		decisionsTotal:   decisionsTotal,
		decisionDuration: decisionDuration,
		batchSize:        batchSize,
		batchDuration:    batchDuration,
		faultsTotal:      faultsTotal,
		parseDuration:    parseDuration,
		validateDuration: validateDuration,
		validationIssues: validationIssues,
		cacheHitsTotal:   cacheHitsTotal,
		cacheMissesTotal: cacheMissesTotal,
		registry:         registry,
	}

	pm.decisionsAllow.Store(0)
	pm.decisionsDeny.Store(0)
	pm.cacheHits.Store(0)
	pm.cacheMisses.Store(0)

	return pm
}

// RecordDecision records one decision (zero-allocation hot path)
func (p *PrometheusMetrics) RecordDecision(decision string, duration time.Duration) {
	// Fast path: atomic increment (no allocations)
	if decision == "Allow" {
		p.decisionsAllow.Add(1)
	} else {
		p.decisionsDeny.Add(1)
	}

	p.decisionsTotal.WithLabelValues(decision).Inc()
	p.decisionDuration.Observe(float64(duration.Microseconds()))
}

// RecordBatch records one batch decision call
func (p *PrometheusMetrics) RecordBatch(size int, duration time.Duration) {
	p.batchSize.Observe(float64(size))
	p.batchDuration.Observe(float64(duration.Microseconds()))
}

// RecordFault records a contained evaluation fault
func (p *PrometheusMetrics) RecordFault(kind string) {
	p.faultsTotal.WithLabelValues(kind).Inc()
}

// RecordParse records a policy set parse
func (p *PrometheusMetrics) RecordParse(duration time.Duration) {
	p.parseDuration.Observe(float64(duration.Microseconds()))
}

// RecordValidation records a validation run and its finding counts
func (p *PrometheusMetrics) RecordValidation(errors, warnings int, duration time.Duration) {
	if errors > 0 {
		p.validationIssues.WithLabelValues("error").Add(float64(errors))
	}
	if warnings > 0 {
		p.validationIssues.WithLabelValues("warning").Add(float64(warnings))
	}
	p.validateDuration.Observe(float64(duration.Microseconds()))
}

// RecordCacheHit records a parse cache hit (zero-allocation)
func (p *PrometheusMetrics) RecordCacheHit() {
	p.cacheHits.Add(1)
	p.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a parse cache miss (zero-allocation)
func (p *PrometheusMetrics) RecordCacheMiss() {
	p.cacheMisses.Add(1)
	p.cacheMissesTotal.Inc()
}

// HTTPHandler returns the Prometheus HTTP handler for /metrics endpoint
func (p *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
