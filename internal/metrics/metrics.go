// Package metrics provides observability for the policy engine
package metrics

import (
	"net/http"
	"time"
)

// Metrics records what the engine and boundary do: decisions by outcome,
// latencies of the hot phases, evaluation faults by kind, and parse-cache
// traffic.
type Metrics interface {
	// Decision metrics
	RecordDecision(decision string, duration time.Duration)
	RecordBatch(size int, duration time.Duration)
	RecordFault(kind string)

	// Parse and validation metrics
	RecordParse(duration time.Duration)
	RecordValidation(errors, warnings int, duration time.Duration)

	// Parse cache metrics
	RecordCacheHit()
	RecordCacheMiss()

	// HTTP handler for Prometheus scraping
	HTTPHandler() http.Handler
}

// NoOpMetrics provides a no-op implementation for testing/disabled monitoring
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics instance
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (n *NoOpMetrics) RecordDecision(decision string, duration time.Duration)        {}
func (n *NoOpMetrics) RecordBatch(size int, duration time.Duration)                  {}
func (n *NoOpMetrics) RecordFault(kind string)                                       {}
func (n *NoOpMetrics) RecordParse(duration time.Duration)                            {}
func (n *NoOpMetrics) RecordValidation(errors, warnings int, duration time.Duration) {}
func (n *NoOpMetrics) RecordCacheHit()                                               {}
func (n *NoOpMetrics) RecordCacheMiss()                                              {}

// HTTPHandler returns a no-op handler
func (n *NoOpMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# NoOp metrics - monitoring disabled\n"))
	})
}
